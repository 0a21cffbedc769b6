package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/pkg/money"
)

// VerifyStatus is the normalized gateway-side transaction state.
type VerifyStatus string

const (
	VerifySuccess   VerifyStatus = "success"
	VerifyFailed    VerifyStatus = "failed"
	VerifyAbandoned VerifyStatus = "abandoned"
	VerifyUnknown   VerifyStatus = "unknown"
)

// InitializeRequest starts a hosted checkout transaction on the gateway.
// Amount is in major units; the wire carries integer minor units.
type InitializeRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult is the normalized initialize response.
type InitializeResult struct {
	AuthorizationURL string
	ProviderRef      string
	Raw              json.RawMessage
}

// VerifyResult is the normalized verify response.
type VerifyResult struct {
	Status      VerifyStatus
	Reference   string
	ProviderRef string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Channel     string
	PaidAt      *time.Time
	Raw         json.RawMessage
}

// Client exposes the two gateway operations the engine depends on.
type Client interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	baseURL    *url.URL
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a gateway client with a bounded request timeout.
func NewHTTPClient(baseURL, secret string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("gateway url must be absolute")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: parsed,
		secret:  secret,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type initializePayload struct {
	Reference   string         `json:"reference"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	CallbackURL string         `json:"callback_url"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Fees      int64  `json:"fees"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

// Initialize starts a hosted checkout and returns the redirect URL.
func (c *HTTPClient) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	payload := initializePayload{
		Reference:   req.Reference,
		Amount:      money.ToMinorUnits(req.Amount),
		Currency:    req.Currency,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	env, raw, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("gateway rejected initialize: %s", env.Message)
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode initialize data: %w", err)
	}

	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		ProviderRef:      data.Reference,
		Raw:              raw,
	}, nil
}

// Verify fetches the gateway-side state of a transaction. Transport failures
// surface as ErrGatewayUnavailable so the payment is never marked FAILED on a
// network error.
func (c *HTTPClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	env, raw, err := c.get(ctx, path.Join("/transaction/verify", url.PathEscape(reference)))
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return &VerifyResult{Status: VerifyUnknown, Reference: reference, Raw: raw}, nil
	}

	var data verifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode verify data: %w", err)
	}

	result := &VerifyResult{
		Status:      normalizeStatus(data.Status),
		Reference:   data.Reference,
		ProviderRef: fmt.Sprintf("%d", data.ID),
		Amount:      money.FromMinorUnits(data.Amount),
		Fee:         money.FromMinorUnits(data.Fees),
		Channel:     data.Channel,
		Raw:         raw,
	}
	if data.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			result.PaidAt = &paidAt
		}
	}
	return result, nil
}

func normalizeStatus(status string) VerifyStatus {
	switch status {
	case "success":
		return VerifySuccess
	case "failed":
		return VerifyFailed
	case "abandoned":
		return VerifyAbandoned
	default:
		return VerifyUnknown
	}
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, payload any) (*envelope, json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
}

func (c *HTTPClient) get(ctx context.Context, endpoint string) (*envelope, json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body io.Reader) (*envelope, json.RawMessage, error) {
	target := *c.baseURL
	target.Path = path.Join(target.Path, endpoint)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domainErrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body: %v", domainErrors.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error("gateway request failed", slog.Int("status", resp.StatusCode), slog.String("endpoint", endpoint))
		return nil, nil, fmt.Errorf("%w: %s", domainErrors.ErrGatewayUnavailable, resp.Status)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return &env, raw, nil
}
