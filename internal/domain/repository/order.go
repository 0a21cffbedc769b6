package repository

import (
	"context"
	"time"

	"github.com/polkiloo/marketpay/internal/domain/model"
)

// OrderRepository describes persistence operations with orders and their
// line items.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Order, error)

	// SelectBatchForDispatch atomically claims paid orders awaiting
	// fulfillment so concurrent workers never dispatch the same order twice.
	SelectBatchForDispatch(ctx context.Context, limit int) ([]model.Order, error)
	MarkDispatched(ctx context.Context, orderID int64) error
	ReleaseDispatch(ctx context.Context, orderID int64) error
}
