package supplier

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
)

// PlaceRequest asks a drop-ship supplier to place one item order.
type PlaceRequest struct {
	SupplierID int64           `json:"supplier_id"`
	ProductRef string          `json:"product_ref"`
	Quantity   int             `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	OrderRef   string          `json:"order_ref"`
}

// APIClient is the three-step drop-ship contract: place, pay, fetch receipt.
// Each step is invoked at most once per recorded item state; resumption after
// a partial failure starts from the first unrecorded step.
type APIClient interface {
	Place(ctx context.Context, req PlaceRequest) (externalRef string, err error)
	Pay(ctx context.Context, externalRef string) error
	FetchReceipt(ctx context.Context, externalRef string) (receiptURL string, err error)
}

// Notifier delivers the one-way dispatch summary for stocking suppliers.
// Failures are logged by callers, never fatal.
type Notifier interface {
	Send(ctx context.Context, destination, message string) (messageID string, err error)
}

// HTTPClient implements APIClient and Notifier over HTTP.
type HTTPClient struct {
	apiURL     *url.URL
	notifyURL  *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient builds the supplier-facing client. Either URL may be empty;
// the corresponding operations then fail with a configuration error.
func NewHTTPClient(apiURL, notifyURL string, logger *slog.Logger) (*HTTPClient, error) {
	client := &HTTPClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	var err error
	if apiURL != "" {
		if client.apiURL, err = parseAbs(apiURL, "supplier api"); err != nil {
			return nil, err
		}
	}
	if notifyURL != "" {
		if client.notifyURL, err = parseAbs(notifyURL, "notify"); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func parseAbs(raw, name string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", name, err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("%s url must be absolute", name)
	}
	return parsed, nil
}

// Place submits the item order to the supplier.
func (c *HTTPClient) Place(ctx context.Context, req PlaceRequest) (string, error) {
	if c.apiURL == nil {
		return "", fmt.Errorf("supplier api not configured")
	}
	var resp struct {
		Reference string `json:"reference"`
	}
	if err := c.call(ctx, c.apiURL, http.MethodPost, "/orders", req, &resp); err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", fmt.Errorf("supplier returned empty reference")
	}
	return resp.Reference, nil
}

// Pay settles a previously placed item order.
func (c *HTTPClient) Pay(ctx context.Context, externalRef string) error {
	if c.apiURL == nil {
		return fmt.Errorf("supplier api not configured")
	}
	return c.call(ctx, c.apiURL, http.MethodPost, path.Join("/orders", url.PathEscape(externalRef), "pay"), nil, nil)
}

// FetchReceipt retrieves the supplier receipt URL for a paid item order.
func (c *HTTPClient) FetchReceipt(ctx context.Context, externalRef string) (string, error) {
	if c.apiURL == nil {
		return "", fmt.Errorf("supplier api not configured")
	}
	var resp struct {
		ReceiptURL string `json:"receipt_url"`
	}
	if err := c.call(ctx, c.apiURL, http.MethodGet, path.Join("/orders", url.PathEscape(externalRef), "receipt"), nil, &resp); err != nil {
		return "", err
	}
	return resp.ReceiptURL, nil
}

// Send delivers a one-way notification message.
func (c *HTTPClient) Send(ctx context.Context, destination, message string) (string, error) {
	if c.notifyURL == nil {
		return "", fmt.Errorf("notify service not configured")
	}
	payload := map[string]string{"destination": destination, "message": message}
	var resp struct {
		MessageID string `json:"message_id"`
	}
	if err := c.call(ctx, c.notifyURL, http.MethodPost, "/messages", payload, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (c *HTTPClient) call(ctx context.Context, base *url.URL, method, endpoint string, payload, out any) error {
	target := *base
	target.Path = path.Join(target.Path, endpoint)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("supplier request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(raw)),
		)
		return fmt.Errorf("supplier error: %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
