package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/adapter/receipt"
	"github.com/polkiloo/marketpay/internal/config"
	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
	"github.com/polkiloo/marketpay/internal/pkg/auth"
	"github.com/polkiloo/marketpay/internal/pkg/money"
)

// ReconcileUseCase converges every payment signal (shopper verify calls,
// gateway webhooks, operator approvals) onto the single attempt state
// machine. All paths settle through the same conditional transition, so
// concurrent signals for one attempt produce exactly one PAID row.
type ReconcileUseCase struct {
	payments repository.PaymentRepository
	gateway  gateway.Client
	receipts receipt.Issuer
	verifier *auth.WebhookVerifier
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconcileUseCase constructs ReconcileUseCase.
func NewReconcileUseCase(
	payments repository.PaymentRepository,
	gw gateway.Client,
	receipts receipt.Issuer,
	verifier *auth.WebhookVerifier,
	cfg *config.Config,
	logger *slog.Logger,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		payments: payments,
		gateway:  gw,
		receipts: receipts,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// webhookEvent is the signed notification body posted by the gateway.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Fees      int64  `json:"fees"`
		Channel   string `json:"channel"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// VerifyPayment polls the gateway (or applies the configured approval policy
// for manual channels) and returns the payment's current state. Terminal
// attempts short-circuit without touching the gateway.
func (u *ReconcileUseCase) VerifyPayment(ctx context.Context, userID int64, reference string) (*model.Payment, error) {
	payment, err := u.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	if payment.Status.Terminal() {
		return payment, nil
	}

	switch payment.Channel {
	case model.ChannelGateway:
		return u.verifyWithGateway(ctx, payment)
	case model.ChannelTrial, model.ChannelBankTransfer:
		if u.cfg.ApprovalMode == config.ApprovalManual {
			return payment, nil
		}
		return u.settle(ctx, payment, settleSignal{
			paidAt:    u.now(),
			eventType: model.EventVerifyPaid,
			activity:  fmt.Sprintf("payment received via %s", payment.Channel),
		})
	default:
		return nil, domainErrors.ErrUnknownChannel
	}
}

func (u *ReconcileUseCase) verifyWithGateway(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	result, err := u.gateway.Verify(ctx, payment.Reference)
	if err != nil {
		u.appendEvent(ctx, payment.ID, model.EventVerifyError, errorPayload(err))
		return nil, err
	}

	if result.Status == gateway.VerifySuccess {
		if result.Reference != "" && result.Reference != payment.Reference {
			u.appendEvent(ctx, payment.ID, model.EventVerifyMismatch, result.Raw)
			return nil, domainErrors.ErrReferenceMismatch
		}
		if !result.Amount.Equal(payment.Amount) {
			u.appendEvent(ctx, payment.ID, model.EventVerifyMismatch, result.Raw)
			return nil, fmt.Errorf("%w: charged %s, expected %s",
				domainErrors.ErrAmountMismatch, result.Amount.StringFixed(2), payment.Amount.StringFixed(2))
		}

		paidAt := u.now()
		if result.PaidAt != nil {
			paidAt = *result.PaidAt
		}
		return u.settle(ctx, payment, settleSignal{
			paidAt:      paidAt,
			fee:         result.Fee,
			providerRef: result.ProviderRef,
			raw:         result.Raw,
			eventType:   model.EventVerifyPaid,
			activity:    "payment received via gateway",
		})
	}

	if result.Status == gateway.VerifyFailed {
		changed, err := u.payments.MarkFailed(ctx, payment.ID, result.Raw)
		if err != nil {
			return nil, err
		}
		if changed {
			u.appendEvent(ctx, payment.ID, model.EventVerifyFailed, result.Raw)
			payment.Status = model.PaymentStatusFailed
			return payment, nil
		}
		// A concurrent signal settled the attempt first; report what won.
		return u.payments.GetByReference(ctx, payment.Reference)
	}

	// Abandoned or unknown: the shopper may still complete the checkout.
	u.appendEvent(ctx, payment.ID, model.EventVerifyPending, result.Raw)
	return payment, nil
}

// HandleWebhook processes a signed gateway notification. The signature is
// checked over the raw body before parsing. Anything that was either applied
// or is irrelevant acks with nil so the gateway stops retrying.
func (u *ReconcileUseCase) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !u.verifier.Valid(body, signature) {
		return domainErrors.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: malformed webhook body", domainErrors.ErrValidation)
	}
	if event.Data.Reference == "" {
		return fmt.Errorf("%w: webhook without reference", domainErrors.ErrValidation)
	}

	payment, err := u.payments.GetByReference(ctx, event.Data.Reference)
	if errors.Is(err, domainErrors.ErrNotFound) {
		// Not ours. Ack so the gateway does not retry forever.
		u.logger.Warn("webhook for unknown reference", slog.String("reference", event.Data.Reference))
		return nil
	}
	if err != nil {
		return err
	}

	if !u.cfg.WebhookChannelAllowed(payment.Channel) {
		u.appendEvent(ctx, payment.ID, model.EventWebhookIgnoredChannel, body)
		return nil
	}
	if payment.Status.Terminal() {
		return nil
	}

	switch event.Event {
	case "charge.success":
		if money.ToMinorUnits(payment.Amount) != event.Data.Amount {
			u.appendEvent(ctx, payment.ID, model.EventVerifyMismatch, body)
			return nil
		}
		paidAt := u.now()
		if event.Data.PaidAt != "" {
			if parsed, err := time.Parse(time.RFC3339, event.Data.PaidAt); err == nil {
				paidAt = parsed
			}
		}
		_, err := u.settle(ctx, payment, settleSignal{
			paidAt:      paidAt,
			fee:         money.FromMinorUnits(event.Data.Fees),
			providerRef: fmt.Sprintf("%d", event.Data.ID),
			raw:         body,
			eventType:   model.EventWebhookMarkPaid,
			activity:    "payment received via gateway webhook",
		})
		return err
	case "charge.failed":
		changed, err := u.payments.MarkFailed(ctx, payment.ID, body)
		if err != nil {
			return err
		}
		if changed {
			u.appendEvent(ctx, payment.ID, model.EventWebhookMarkFailed, body)
		}
		return nil
	default:
		u.logger.Info("ignoring webhook event", slog.String("event", event.Event))
		return nil
	}
}

// ApprovePayment is the operator action that settles a pending manual-channel
// attempt. Gateway attempts can only settle through the gateway.
func (u *ReconcileUseCase) ApprovePayment(ctx context.Context, reference string) (*model.Payment, error) {
	payment, err := u.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Channel == model.ChannelGateway {
		return nil, fmt.Errorf("%w: gateway attempts settle via verification", domainErrors.ErrValidation)
	}
	if payment.Status.Terminal() {
		return nil, domainErrors.ErrNotPending
	}
	return u.settle(ctx, payment, settleSignal{
		paidAt:    u.now(),
		eventType: model.EventManualApproved,
		activity:  fmt.Sprintf("payment approved by operator via %s", payment.Channel),
	})
}

// RefundPayment performs the admin PAID -> REFUNDED transition for the full
// amount.
func (u *ReconcileUseCase) RefundPayment(ctx context.Context, reference string) (*model.Payment, error) {
	payment, err := u.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.PaymentStatusPaid {
		return nil, fmt.Errorf("%w: only paid attempts can be refunded", domainErrors.ErrValidation)
	}
	done, err := u.payments.Refund(ctx, payment.ID, payment.Amount)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, domainErrors.ErrNotPending
	}
	return u.payments.GetByReference(ctx, reference)
}

type settleSignal struct {
	paidAt      time.Time
	fee         decimal.Decimal
	providerRef string
	raw         json.RawMessage
	eventType   model.PaymentEventType
	activity    string
}

// settle applies the atomic PAID transition. Losing the race is not an
// error: the attempt is reloaded and the winner's terminal state returned.
func (u *ReconcileUseCase) settle(ctx context.Context, payment *model.Payment, signal settleSignal) (*model.Payment, error) {
	won, err := u.payments.Settle(ctx, repository.SettleParams{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		PaidAt:      signal.paidAt,
		Fee:         signal.fee,
		ProviderRef: signal.providerRef,
		ProviderRaw: signal.raw,
		EventType:   signal.eventType,
		Activity:    signal.activity,
	})
	if err != nil {
		return nil, err
	}
	if !won {
		return u.payments.GetByReference(ctx, payment.Reference)
	}

	if _, err := u.receipts.IssueIfNeeded(ctx, payment.ID); err != nil {
		// Receipts are best-effort; the remote side deduplicates on retry.
		u.logger.Error("receipt issue failed", slog.Int64("payment", payment.ID), slog.String("error", err.Error()))
	}

	return u.payments.GetByReference(ctx, payment.Reference)
}

func (u *ReconcileUseCase) appendEvent(ctx context.Context, paymentID int64, eventType model.PaymentEventType, payload json.RawMessage) {
	if err := u.payments.AppendEvent(ctx, paymentID, eventType, payload); err != nil {
		u.logger.Error("append payment event failed",
			slog.Int64("payment", paymentID),
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()))
	}
}

func errorPayload(err error) json.RawMessage {
	raw, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return nil
	}
	return raw
}
