package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
	"github.com/polkiloo/marketpay/internal/pkg/money"
)

// ProfitUseCase aggregates windowed profit reports for operators.
type ProfitUseCase struct {
	orders         repository.OrderRepository
	payments       repository.PaymentRepository
	purchaseOrders repository.PurchaseOrderRepository
	logger         *slog.Logger
}

// NewProfitUseCase constructs ProfitUseCase.
func NewProfitUseCase(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	purchaseOrders repository.PurchaseOrderRepository,
	logger *slog.Logger,
) *ProfitUseCase {
	return &ProfitUseCase{orders: orders, payments: payments, purchaseOrders: purchaseOrders, logger: logger}
}

// ComputeWindow builds the profit report for [from, to). Cashflow mode scopes
// by settlement time; sales mode scopes by order creation time and includes
// every payment those orders ever saw.
func (u *ProfitUseCase) ComputeWindow(ctx context.Context, mode model.ProfitMode, from, to time.Time) (*model.ProfitReport, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: window end must be after start", domainErrors.ErrValidation)
	}

	var (
		orders   []model.Order
		payments []model.Payment
		err      error
	)
	switch mode {
	case model.ProfitModeCashflow:
		payments, err = u.payments.ListSettledBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		orderIDs := uniqueOrderIDs(payments)
		orders, err = u.orders.ListByIDs(ctx, orderIDs)
		if err != nil {
			return nil, err
		}
	case model.ProfitModeSales:
		orders, err = u.orders.ListCreatedBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(orders))
		for i := range orders {
			ids[i] = orders[i].ID
		}
		payments, err = u.payments.ListByOrderIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: profit mode %q", domainErrors.ErrValidation, mode)
	}

	orderIDs := make([]int64, len(orders))
	ordersByID := make(map[int64]*model.Order, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
		ordersByID[orders[i].ID] = &orders[i]
	}
	purchaseOrders, err := u.purchaseOrders.ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	feesByOrder := make(map[int64]decimal.Decimal, len(purchaseOrders))
	for _, po := range purchaseOrders {
		feesByOrder[po.OrderID] = feesByOrder[po.OrderID].Add(po.PlatformFee)
	}

	report := &model.ProfitReport{}
	perOrder := aggregatePayments(payments)

	for orderID, agg := range perOrder {
		order, ok := ordersByID[orderID]
		if !ok {
			u.logger.Warn("settled payment without order in window", slog.Int64("order", orderID))
			continue
		}

		report.RevenuePaid = report.RevenuePaid.Add(agg.paid)
		report.Refunds = report.Refunds.Add(agg.refunded)
		report.GatewayFees = report.GatewayFees.Add(agg.fees)

		factor := money.EffectiveFactor(agg.paid, agg.refunded, order.Total)
		report.TaxCollected = report.TaxCollected.Add(order.Tax.Mul(factor).Round(2))

		// Commission comes from the dispatched purchase-order snapshots; the
		// order-level service fee substitutes until dispatch has run. The two
		// sources are never mixed for one order.
		comms, dispatched := feesByOrder[orderID]
		if !dispatched {
			comms = order.ServiceFee
		}
		report.CommsNet = report.CommsNet.Add(comms.Mul(factor).Round(2))

		margin := orderMargin(order)
		if margin.IsNegative() {
			u.logger.Warn("anomalous negative margin", slog.Int64("order", orderID), slog.String("margin", margin.StringFixed(2)))
		}
		report.MarginNet = report.MarginNet.Add(margin.Mul(factor).Round(2))
	}

	report.RevenueNet = report.RevenuePaid.Sub(report.Refunds)
	report.GrossProfit = report.MarginNet.Add(report.CommsNet).Sub(report.GatewayFees)
	return report, nil
}

type paymentAggregate struct {
	paid     decimal.Decimal
	refunded decimal.Decimal
	fees     decimal.Decimal
}

// aggregatePayments folds settled and refunded attempts per order. Attempts
// that never reached PAID contribute nothing.
func aggregatePayments(payments []model.Payment) map[int64]paymentAggregate {
	perOrder := make(map[int64]paymentAggregate)
	for _, p := range payments {
		if p.Status != model.PaymentStatusPaid && p.Status != model.PaymentStatusRefunded {
			continue
		}
		agg := perOrder[p.OrderID]
		agg.paid = agg.paid.Add(p.Amount)
		agg.fees = agg.fees.Add(p.Fee)
		if p.Status == model.PaymentStatusRefunded {
			agg.refunded = agg.refunded.Add(p.Refunded)
		}
		perOrder[p.OrderID] = agg
	}
	return perOrder
}

// orderMargin sums (unit price - supplier cost) * quantity over lines with a
// known supplier cost. Lines without a cost snapshot are skipped.
func orderMargin(order *model.Order) decimal.Decimal {
	margin := decimal.Zero
	for _, item := range order.Items {
		if item.SupplierCost == nil {
			continue
		}
		perUnit := item.UnitPrice.Sub(*item.SupplierCost)
		margin = margin.Add(perUnit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return margin
}

func uniqueOrderIDs(payments []model.Payment) []int64 {
	seen := make(map[int64]struct{}, len(payments))
	ids := make([]int64, 0, len(payments))
	for _, p := range payments {
		if _, ok := seen[p.OrderID]; !ok {
			seen[p.OrderID] = struct{}{}
			ids = append(ids, p.OrderID)
		}
	}
	return ids
}
