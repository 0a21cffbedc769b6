package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/config"
	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
)

// referenceRetries bounds the uniqueness-collision retry loop before the
// generator falls back to a uuid-suffixed composition.
const referenceRetries = 5

// BankDetails are the synthetic transfer instructions returned for
// trial and bank-transfer attempts. No gateway is contacted.
type BankDetails struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Reference     string `json:"reference"`
}

// AttemptResult is what checkout gets back from InitAttempt.
type AttemptResult struct {
	Payment     *model.Payment
	Resumed     bool
	RedirectURL string
	BankDetails *BankDetails
}

// PaymentUseCase creates, reuses and rotates PENDING payment attempts.
type PaymentUseCase struct {
	orders     repository.OrderRepository
	payments   repository.PaymentRepository
	activities repository.ActivityRepository
	gateway    gateway.Client
	cfg        *config.Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	activities repository.ActivityRepository,
	gw gateway.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		orders:     orders,
		payments:   payments,
		activities: activities,
		gateway:    gw,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// InitAttempt returns a payment attempt for (order, channel), reusing a fresh
// pending attempt so a shopper reloading checkout does not spawn duplicate
// gateway-side transactions.
func (u *PaymentUseCase) InitAttempt(ctx context.Context, userID, orderID int64, channel model.PaymentChannel) (*AttemptResult, error) {
	switch channel {
	case model.ChannelGateway, model.ChannelBankTransfer, model.ChannelTrial:
	default:
		return nil, domainErrors.ErrUnknownChannel
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	if !order.Total.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be positive", domainErrors.ErrValidation)
	}

	paid, err := u.payments.HasPaid(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, domainErrors.ErrAlreadyPaid
	}

	existing, err := u.payments.LatestPending(ctx, orderID, channel)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if u.isFresh(existing) {
			return u.result(existing, true), nil
		}
		if err := u.payments.Cancel(ctx, existing.ID); err != nil {
			return nil, err
		}
		u.logActivity(ctx, orderID, model.ActivityAttemptRotated, fmt.Sprintf("stale attempt %s canceled", existing.Reference))
	}

	payment, err := u.createAttempt(ctx, order, userID, channel)
	if err != nil {
		return nil, err
	}

	if channel == model.ChannelGateway {
		init, err := u.gateway.Initialize(ctx, gateway.InitializeRequest{
			Reference:   payment.Reference,
			Amount:      payment.Amount,
			Currency:    u.cfg.Currency,
			CallbackURL: u.cfg.GatewayCallbackURL,
			Metadata: map[string]any{
				"order_id": order.ID,
				"user_id":  userID,
			},
		})
		if err != nil {
			// The attempt stays PENDING without a redirect; the freshness
			// check rotates it on the next init call.
			return nil, err
		}
		if err := u.payments.SetRedirect(ctx, payment.ID, init.AuthorizationURL, init.ProviderRef, init.Raw); err != nil {
			return nil, err
		}
		payment.RedirectURL = init.AuthorizationURL
		payment.ProviderRef = init.ProviderRef
		payment.ProviderRaw = init.Raw
	}

	return u.result(payment, false), nil
}

// isFresh reports whether a pending attempt may be handed back unchanged.
// Gateway attempts additionally require a captured redirect URL.
func (u *PaymentUseCase) isFresh(p *model.Payment) bool {
	if u.now().Sub(p.CreatedAt) >= u.cfg.AttemptTTL {
		return false
	}
	if p.Channel == model.ChannelGateway && p.RedirectURL == "" {
		return false
	}
	return true
}

func (u *PaymentUseCase) createAttempt(ctx context.Context, order *model.Order, userID int64, channel model.PaymentChannel) (*model.Payment, error) {
	provider := "manual"
	if channel == model.ChannelGateway {
		provider = "gateway"
	}

	for i := 0; i < referenceRetries; i++ {
		payment := &model.Payment{
			OrderID:   order.ID,
			UserID:    userID,
			Reference: newReference(),
			Channel:   channel,
			Provider:  provider,
			Amount:    order.Total,
		}
		created, err := u.payments.Create(ctx, payment)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, err
		}
	}

	// Collisions exhausted the retries; compose a reference that cannot
	// collide.
	payment := &model.Payment{
		OrderID:   order.ID,
		UserID:    userID,
		Reference: fmt.Sprintf("PM-%d-%s", order.ID, uuid.NewString()),
		Channel:   channel,
		Provider:  provider,
		Amount:    order.Total,
	}
	return u.payments.Create(ctx, payment)
}

func (u *PaymentUseCase) result(p *model.Payment, resumed bool) *AttemptResult {
	res := &AttemptResult{Payment: p, Resumed: resumed, RedirectURL: p.RedirectURL}
	if p.Channel == model.ChannelBankTransfer || p.Channel == model.ChannelTrial {
		res.BankDetails = &BankDetails{
			BankName:      "MarketPay Settlement Bank",
			AccountNumber: fmt.Sprintf("%010d", p.OrderID*37+p.ID),
			AccountName:   "MarketPay Escrow",
			Reference:     p.Reference,
		}
	}
	return res
}

func (u *PaymentUseCase) logActivity(ctx context.Context, orderID int64, activityType, message string) {
	err := u.activities.Append(ctx, &model.OrderActivity{OrderID: orderID, Type: activityType, Message: message})
	if err != nil {
		u.logger.Error("append order activity failed", slog.Int64("order", orderID), slog.String("error", err.Error()))
	}
}

// newReference builds a short random payment reference.
func newReference() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return "PM-" + hex.EncodeToString(buf)
}
