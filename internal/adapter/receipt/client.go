package receipt

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
)

// Receipt is the issued document reference returned by the receipt service.
type Receipt struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Issuer is the black-box receipt collaborator. Issuing twice for the same
// payment is a no-op on the remote side and returns the existing receipt.
type Issuer interface {
	IssueIfNeeded(ctx context.Context, paymentID int64) (*Receipt, error)
}

// HTTPIssuer implements Issuer via the receipt service HTTP API.
type HTTPIssuer struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPIssuer creates a receipt client with a default timeout.
func NewHTTPIssuer(baseURL string, logger *slog.Logger) (*HTTPIssuer, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse receipt url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("receipt url must be absolute")
	}
	return &HTTPIssuer{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// IssueIfNeeded asks the receipt service to issue a receipt for the payment.
func (c *HTTPIssuer) IssueIfNeeded(ctx context.Context, paymentID int64) (*Receipt, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/receipts")

	body, err := json.Marshal(map[string]int64{"payment_id": paymentID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var receipt Receipt
		if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
			return nil, err
		}
		return &receipt, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("receipt request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return nil, fmt.Errorf("receipt service error: %s", resp.Status)
	}
}

// NoopIssuer is used when no receipt service is configured.
type NoopIssuer struct{}

func (NoopIssuer) IssueIfNeeded(context.Context, int64) (*Receipt, error) {
	return nil, nil
}
