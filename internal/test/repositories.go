package test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
)

// OrderRepositoryStub stores orders in-memory for tests.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders map[int64]*model.Order
	Next   int64
	Err    error
}

// NewOrderRepositoryStub constructs the stub with initialized state.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{Orders: make(map[int64]*model.Order), Next: 1}
}

// Create assigns an identifier and stores the order.
func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = s.Next
	order.CreatedAt = time.Now()
	s.Next++
	for i := range order.Items {
		order.Items[i].ID = order.ID*100 + int64(i)
		order.Items[i].OrderID = order.ID
	}
	s.Orders[order.ID] = order
	return order, nil
}

// GetByID fetches a stored order or reports not found.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.Orders[id]; ok {
		return order, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser returns the user's stored orders.
func (s *OrderRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, order := range s.Orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

// ListCreatedBetween filters stored orders by creation time.
func (s *OrderRepositoryStub) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, order := range s.Orders {
		if !order.CreatedAt.Before(from) && order.CreatedAt.Before(to) {
			out = append(out, *order)
		}
	}
	return out, nil
}

// ListByIDs returns stored orders matching the given identifiers.
func (s *OrderRepositoryStub) ListByIDs(ctx context.Context, ids []int64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, id := range ids {
		if order, ok := s.Orders[id]; ok {
			out = append(out, *order)
		}
	}
	return out, nil
}

// SelectBatchForDispatch claims orders awaiting fulfillment.
func (s *OrderRepositoryStub) SelectBatchForDispatch(ctx context.Context, limit int) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, order := range s.Orders {
		if order.Status == model.OrderStatusAwaitingFulfillment && len(out) < limit {
			out = append(out, *order)
		}
	}
	return out, nil
}

// MarkDispatched records a completed dispatch.
func (s *OrderRepositoryStub) MarkDispatched(ctx context.Context, orderID int64) error {
	return nil
}

// ReleaseDispatch returns a claimed order for retry.
func (s *OrderRepositoryStub) ReleaseDispatch(ctx context.Context, orderID int64) error {
	return nil
}

// PaymentRepositoryStub stores payment attempts in-memory for tests.
type PaymentRepositoryStub struct {
	mu       sync.Mutex
	Payments map[string]*model.Payment
	Next     int64
	Err      error
}

// NewPaymentRepositoryStub constructs the stub with initialized state.
func NewPaymentRepositoryStub() *PaymentRepositoryStub {
	return &PaymentRepositoryStub{Payments: make(map[string]*model.Payment), Next: 1}
}

// Create stores a new pending attempt keyed by reference.
func (s *PaymentRepositoryStub) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.Payments[payment.Reference]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	payment.ID = s.Next
	payment.Status = model.PaymentStatusPending
	payment.CreatedAt = time.Now()
	s.Next++
	s.Payments[payment.Reference] = payment
	return payment, nil
}

// GetByReference fetches a stored attempt or reports not found.
func (s *PaymentRepositoryStub) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment, ok := s.Payments[reference]; ok {
		return payment, nil
	}
	return nil, domainErrors.ErrNotFound
}

// LatestPending returns the newest pending attempt for (order, channel).
func (s *PaymentRepositoryStub) LatestPending(ctx context.Context, orderID int64, channel model.PaymentChannel) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Payment
	for _, payment := range s.Payments {
		if payment.OrderID != orderID || payment.Channel != channel || payment.Status != model.PaymentStatusPending {
			continue
		}
		if latest == nil || payment.CreatedAt.After(latest.CreatedAt) {
			latest = payment
		}
	}
	if latest == nil {
		return nil, domainErrors.ErrNotFound
	}
	return latest, nil
}

// HasPaid reports whether any attempt for the order settled.
func (s *PaymentRepositoryStub) HasPaid(ctx context.Context, orderID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.Payments {
		if payment.OrderID == orderID && (payment.Status == model.PaymentStatusPaid || payment.Status == model.PaymentStatusRefunded) {
			return true, nil
		}
	}
	return false, nil
}

// SetRedirect stores the captured redirect for a gateway attempt.
func (s *PaymentRepositoryStub) SetRedirect(ctx context.Context, paymentID int64, redirectURL, providerRef string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.Payments {
		if payment.ID == paymentID {
			payment.RedirectURL = redirectURL
			payment.ProviderRef = providerRef
			payment.ProviderRaw = raw
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

// Cancel moves a pending attempt to CANCELED.
func (s *PaymentRepositoryStub) Cancel(ctx context.Context, paymentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.Payments {
		if payment.ID == paymentID && payment.Status == model.PaymentStatusPending {
			payment.Status = model.PaymentStatusCanceled
		}
	}
	return nil
}

// MarkFailed transitions PENDING to FAILED.
func (s *PaymentRepositoryStub) MarkFailed(ctx context.Context, paymentID int64, raw json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.Payments {
		if payment.ID == paymentID && payment.Status == model.PaymentStatusPending {
			payment.Status = model.PaymentStatusFailed
			return true, nil
		}
	}
	return false, nil
}

// Settle applies the conditional PAID transition.
func (s *PaymentRepositoryStub) Settle(ctx context.Context, params repository.SettleParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.Payments {
		if payment.ID != params.PaymentID {
			continue
		}
		if payment.Status != model.PaymentStatusPending {
			return false, nil
		}
		payment.Status = model.PaymentStatusPaid
		paidAt := params.PaidAt
		payment.PaidAt = &paidAt
		payment.Fee = params.Fee
		payment.ProviderRef = params.ProviderRef
		for _, sibling := range s.Payments {
			if sibling.OrderID == payment.OrderID && sibling.ID != payment.ID && sibling.Status == model.PaymentStatusPending {
				sibling.Status = model.PaymentStatusCanceled
			}
		}
		return true, nil
	}
	return false, nil
}

// Refund applies the PAID to REFUNDED transition.
func (s *PaymentRepositoryStub) Refund(ctx context.Context, paymentID int64, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.Payments {
		if payment.ID == paymentID && payment.Status == model.PaymentStatusPaid {
			payment.Status = model.PaymentStatusRefunded
			payment.Refunded = amount
			return true, nil
		}
	}
	return false, nil
}

// AppendEvent is a no-op recorder.
func (s *PaymentRepositoryStub) AppendEvent(ctx context.Context, paymentID int64, eventType model.PaymentEventType, payload json.RawMessage) error {
	return nil
}

// ListSettledBetween returns settled attempts inside the window.
func (s *PaymentRepositoryStub) ListSettledBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, payment := range s.Payments {
		if payment.PaidAt == nil {
			continue
		}
		if !payment.PaidAt.Before(from) && payment.PaidAt.Before(to) {
			out = append(out, *payment)
		}
	}
	return out, nil
}

// ListByOrderIDs returns every attempt for the given orders.
func (s *PaymentRepositoryStub) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, payment := range s.Payments {
		for _, id := range orderIDs {
			if payment.OrderID == id {
				out = append(out, *payment)
			}
		}
	}
	return out, nil
}

// SupplierRepositoryStub serves a fixed supplier set.
type SupplierRepositoryStub struct {
	Suppliers map[int64]*model.Supplier
}

// NewSupplierRepositoryStub constructs the stub with initialized state.
func NewSupplierRepositoryStub(suppliers ...model.Supplier) *SupplierRepositoryStub {
	stub := &SupplierRepositoryStub{Suppliers: make(map[int64]*model.Supplier)}
	for i := range suppliers {
		stub.Suppliers[suppliers[i].ID] = &suppliers[i]
	}
	return stub
}

// GetByID fetches one supplier.
func (s *SupplierRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Supplier, error) {
	if supplier, ok := s.Suppliers[id]; ok {
		return supplier, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ListByIDs returns known suppliers among the given identifiers.
func (s *SupplierRepositoryStub) ListByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error) {
	var out []model.Supplier
	for _, id := range ids {
		if supplier, ok := s.Suppliers[id]; ok {
			out = append(out, *supplier)
		}
	}
	return out, nil
}

// PurchaseOrderRepositoryStub stores per-supplier sub-orders in-memory.
type PurchaseOrderRepositoryStub struct {
	mu     sync.Mutex
	POs    map[int64]*model.PurchaseOrder
	Next   int64
	ListFn func(context.Context, []int64) ([]model.PurchaseOrder, error)
}

// NewPurchaseOrderRepositoryStub constructs the stub with initialized state.
func NewPurchaseOrderRepositoryStub() *PurchaseOrderRepositoryStub {
	return &PurchaseOrderRepositoryStub{POs: make(map[int64]*model.PurchaseOrder), Next: 1}
}

// Create inserts the purchase order, rejecting duplicates per (order, supplier).
func (s *PurchaseOrderRepositoryStub) Create(ctx context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.POs {
		if existing.OrderID == po.OrderID && existing.SupplierID == po.SupplierID {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	po.ID = s.Next
	s.Next++
	for i := range po.Items {
		po.Items[i].ID = po.ID*100 + int64(i)
		po.Items[i].PurchaseOrderID = po.ID
	}
	s.POs[po.ID] = po
	return po, nil
}

// GetByOrderAndSupplier fetches a stored purchase order.
func (s *PurchaseOrderRepositoryStub) GetByOrderAndSupplier(ctx context.Context, orderID, supplierID int64) (*model.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, po := range s.POs {
		if po.OrderID == orderID && po.SupplierID == supplierID {
			return po, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ListByOrderIDs returns purchase orders for the given orders.
func (s *PurchaseOrderRepositoryStub) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.PurchaseOrder, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, orderIDs)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PurchaseOrder
	for _, po := range s.POs {
		for _, id := range orderIDs {
			if po.OrderID == id {
				out = append(out, *po)
			}
		}
	}
	return out, nil
}

// UpdateStatus advances a stored purchase order.
func (s *PurchaseOrderRepositoryStub) UpdateStatus(ctx context.Context, poID int64, status model.PurchaseOrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if po, ok := s.POs[poID]; ok {
		po.Status = status
		return nil
	}
	return domainErrors.ErrNotFound
}

// UpdateItemStep records per-item dispatch progress.
func (s *PurchaseOrderRepositoryStub) UpdateItemStep(ctx context.Context, itemID int64, step model.ItemStepStatus, externalRef, receiptURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, po := range s.POs {
		for i := range po.Items {
			if po.Items[i].ID == itemID {
				po.Items[i].StepStatus = step
				if externalRef != "" {
					po.Items[i].ExternalRef = externalRef
				}
				if receiptURL != "" {
					po.Items[i].ReceiptURL = receiptURL
				}
				return nil
			}
		}
	}
	return domainErrors.ErrNotFound
}

// ActivityRepositoryStub records appended activities.
type ActivityRepositoryStub struct {
	mu         sync.Mutex
	Activities []model.OrderActivity
}

// Append stores the activity row.
func (s *ActivityRepositoryStub) Append(ctx context.Context, activity *model.OrderActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Activities = append(s.Activities, *activity)
	return nil
}

// ListByOrder returns stored activities for the order.
func (s *ActivityRepositoryStub) ListByOrder(ctx context.Context, orderID int64) ([]model.OrderActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OrderActivity
	for _, activity := range s.Activities {
		if activity.OrderID == orderID {
			out = append(out, activity)
		}
	}
	return out, nil
}
