package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/adapter/receipt"
	"github.com/polkiloo/marketpay/internal/adapter/supplier"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type stubOrderRepository struct {
	createFn         func(context.Context, *model.Order) (*model.Order, error)
	getByIDFn        func(context.Context, int64) (*model.Order, error)
	listByUserFn     func(context.Context, int64) ([]model.Order, error)
	listCreatedFn    func(context.Context, time.Time, time.Time) ([]model.Order, error)
	listByIDsFn      func(context.Context, []int64) ([]model.Order, error)
	selectBatchFn    func(context.Context, int) ([]model.Order, error)
	markDispatchedFn func(context.Context, int64) error
	releaseFn        func(context.Context, int64) error
}

func (s stubOrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	return s.createFn(ctx, order)
}

func (s stubOrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubOrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.listByUserFn(ctx, userID)
}

func (s stubOrderRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return s.listCreatedFn(ctx, from, to)
}

func (s stubOrderRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Order, error) {
	return s.listByIDsFn(ctx, ids)
}

func (s stubOrderRepository) SelectBatchForDispatch(ctx context.Context, limit int) ([]model.Order, error) {
	return s.selectBatchFn(ctx, limit)
}

func (s stubOrderRepository) MarkDispatched(ctx context.Context, orderID int64) error {
	return s.markDispatchedFn(ctx, orderID)
}

func (s stubOrderRepository) ReleaseDispatch(ctx context.Context, orderID int64) error {
	return s.releaseFn(ctx, orderID)
}

type stubPaymentRepository struct {
	createFn         func(context.Context, *model.Payment) (*model.Payment, error)
	getByReferenceFn func(context.Context, string) (*model.Payment, error)
	latestPendingFn  func(context.Context, int64, model.PaymentChannel) (*model.Payment, error)
	hasPaidFn        func(context.Context, int64) (bool, error)
	setRedirectFn    func(context.Context, int64, string, string, json.RawMessage) error
	cancelFn         func(context.Context, int64) error
	markFailedFn     func(context.Context, int64, json.RawMessage) (bool, error)
	settleFn         func(context.Context, repository.SettleParams) (bool, error)
	refundFn         func(context.Context, int64, decimal.Decimal) (bool, error)
	appendEventFn    func(context.Context, int64, model.PaymentEventType, json.RawMessage) error
	listSettledFn    func(context.Context, time.Time, time.Time) ([]model.Payment, error)
	listByOrdersFn   func(context.Context, []int64) ([]model.Payment, error)
}

func (s stubPaymentRepository) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	return s.createFn(ctx, payment)
}

func (s stubPaymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	return s.getByReferenceFn(ctx, reference)
}

func (s stubPaymentRepository) LatestPending(ctx context.Context, orderID int64, channel model.PaymentChannel) (*model.Payment, error) {
	return s.latestPendingFn(ctx, orderID, channel)
}

func (s stubPaymentRepository) HasPaid(ctx context.Context, orderID int64) (bool, error) {
	return s.hasPaidFn(ctx, orderID)
}

func (s stubPaymentRepository) SetRedirect(ctx context.Context, paymentID int64, redirectURL, providerRef string, raw json.RawMessage) error {
	return s.setRedirectFn(ctx, paymentID, redirectURL, providerRef, raw)
}

func (s stubPaymentRepository) Cancel(ctx context.Context, paymentID int64) error {
	return s.cancelFn(ctx, paymentID)
}

func (s stubPaymentRepository) MarkFailed(ctx context.Context, paymentID int64, raw json.RawMessage) (bool, error) {
	return s.markFailedFn(ctx, paymentID, raw)
}

func (s stubPaymentRepository) Settle(ctx context.Context, params repository.SettleParams) (bool, error) {
	return s.settleFn(ctx, params)
}

func (s stubPaymentRepository) Refund(ctx context.Context, paymentID int64, amount decimal.Decimal) (bool, error) {
	return s.refundFn(ctx, paymentID, amount)
}

func (s stubPaymentRepository) AppendEvent(ctx context.Context, paymentID int64, eventType model.PaymentEventType, payload json.RawMessage) error {
	if s.appendEventFn == nil {
		return nil
	}
	return s.appendEventFn(ctx, paymentID, eventType, payload)
}

func (s stubPaymentRepository) ListSettledBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	return s.listSettledFn(ctx, from, to)
}

func (s stubPaymentRepository) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.Payment, error) {
	return s.listByOrdersFn(ctx, orderIDs)
}

type stubPurchaseOrderRepository struct {
	createFn     func(context.Context, *model.PurchaseOrder) (*model.PurchaseOrder, error)
	getFn        func(context.Context, int64, int64) (*model.PurchaseOrder, error)
	listByOrders func(context.Context, []int64) ([]model.PurchaseOrder, error)
	updateStatus func(context.Context, int64, model.PurchaseOrderStatus) error
	updateItemFn func(context.Context, int64, model.ItemStepStatus, string, string) error
}

func (s stubPurchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
	return s.createFn(ctx, po)
}

func (s stubPurchaseOrderRepository) GetByOrderAndSupplier(ctx context.Context, orderID, supplierID int64) (*model.PurchaseOrder, error) {
	return s.getFn(ctx, orderID, supplierID)
}

func (s stubPurchaseOrderRepository) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.PurchaseOrder, error) {
	return s.listByOrders(ctx, orderIDs)
}

func (s stubPurchaseOrderRepository) UpdateStatus(ctx context.Context, poID int64, status model.PurchaseOrderStatus) error {
	return s.updateStatus(ctx, poID, status)
}

func (s stubPurchaseOrderRepository) UpdateItemStep(ctx context.Context, itemID int64, step model.ItemStepStatus, externalRef, receiptURL string) error {
	return s.updateItemFn(ctx, itemID, step, externalRef, receiptURL)
}

type stubSupplierRepository struct {
	getByIDFn   func(context.Context, int64) (*model.Supplier, error)
	listByIDsFn func(context.Context, []int64) ([]model.Supplier, error)
}

func (s stubSupplierRepository) GetByID(ctx context.Context, id int64) (*model.Supplier, error) {
	return s.getByIDFn(ctx, id)
}

func (s stubSupplierRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error) {
	return s.listByIDsFn(ctx, ids)
}

type stubActivityRepository struct {
	appendFn func(context.Context, *model.OrderActivity) error
	listFn   func(context.Context, int64) ([]model.OrderActivity, error)
}

func (s stubActivityRepository) Append(ctx context.Context, activity *model.OrderActivity) error {
	if s.appendFn == nil {
		return nil
	}
	return s.appendFn(ctx, activity)
}

func (s stubActivityRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.OrderActivity, error) {
	return s.listFn(ctx, orderID)
}

type stubGatewayClient struct {
	initializeFn func(context.Context, gateway.InitializeRequest) (*gateway.InitializeResult, error)
	verifyFn     func(context.Context, string) (*gateway.VerifyResult, error)
}

func (s stubGatewayClient) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	return s.initializeFn(ctx, req)
}

func (s stubGatewayClient) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	return s.verifyFn(ctx, reference)
}

type stubReceiptIssuer struct {
	issueFn func(context.Context, int64) (*receipt.Receipt, error)
}

func (s stubReceiptIssuer) IssueIfNeeded(ctx context.Context, paymentID int64) (*receipt.Receipt, error) {
	if s.issueFn == nil {
		return nil, nil
	}
	return s.issueFn(ctx, paymentID)
}

type stubSupplierAPI struct {
	placeFn   func(context.Context, supplier.PlaceRequest) (string, error)
	payFn     func(context.Context, string) error
	receiptFn func(context.Context, string) (string, error)
}

func (s stubSupplierAPI) Place(ctx context.Context, req supplier.PlaceRequest) (string, error) {
	return s.placeFn(ctx, req)
}

func (s stubSupplierAPI) Pay(ctx context.Context, externalRef string) error {
	return s.payFn(ctx, externalRef)
}

func (s stubSupplierAPI) FetchReceipt(ctx context.Context, externalRef string) (string, error) {
	return s.receiptFn(ctx, externalRef)
}

type stubNotifier struct {
	sendFn func(context.Context, string, string) (string, error)
}

func (s stubNotifier) Send(ctx context.Context, destination, message string) (string, error) {
	if s.sendFn == nil {
		return "msg", nil
	}
	return s.sendFn(ctx, destination, message)
}
