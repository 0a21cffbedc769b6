package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/marketpay/internal/domain/model"
)

// ApprovalMode selects how non-gateway channels settle: "auto" approves on a
// single shopper verify call, "manual" waits for an operator.
type ApprovalMode string

const (
	ApprovalAuto   ApprovalMode = "auto"
	ApprovalManual ApprovalMode = "manual"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	GatewayAddress     string
	GatewaySecret      string
	GatewayCallbackURL string
	ReceiptAddress     string
	SupplierAPIAddress string
	NotifyAddress      string
	AuthSecret         string
	Currency           string
	ApprovalMode       ApprovalMode
	WebhookChannels    []model.PaymentChannel
	AttemptTTL         time.Duration
	GatewayTimeout     time.Duration
	DispatchInterval   time.Duration
	DispatchBatchSize  int
	DispatchMaxRetries int
	WorkerPoolSize     int
	ShutdownTimeout    time.Duration
}

const (
	defaultRunAddress       = ":8080"
	defaultAuthSecret       = "change-me-in-production"
	defaultCurrency         = "NGN"
	defaultAttemptTTL       = 60 * time.Minute
	defaultGatewayTimeout   = 15 * time.Second
	defaultDispatchInterval = 3 * time.Second
	defaultDispatchBatch    = 16
	defaultDispatchRetries  = 3
	defaultWorkerPoolSize   = 4
	defaultShutdownTimeout  = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		GatewayAddress:     getString(lookup, "GATEWAY_ADDRESS", ""),
		GatewaySecret:      getString(lookup, "GATEWAY_SECRET", ""),
		GatewayCallbackURL: getString(lookup, "GATEWAY_CALLBACK_URL", ""),
		ReceiptAddress:     getString(lookup, "RECEIPT_SERVICE_ADDRESS", ""),
		SupplierAPIAddress: getString(lookup, "SUPPLIER_API_ADDRESS", ""),
		NotifyAddress:      getString(lookup, "NOTIFY_ADDRESS", ""),
		AuthSecret:         getString(lookup, "AUTH_SECRET", defaultAuthSecret),
		Currency:           getString(lookup, "CURRENCY", defaultCurrency),
		ApprovalMode:       ApprovalMode(getString(lookup, "APPROVAL_MODE", string(ApprovalAuto))),
		WebhookChannels:    parseChannels(getString(lookup, "WEBHOOK_CHANNELS", "")),
		AttemptTTL:         getDuration(lookup, "ATTEMPT_TTL", defaultAttemptTTL),
		GatewayTimeout:     getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		DispatchInterval:   getDuration(lookup, "DISPATCH_POLL_INTERVAL", defaultDispatchInterval),
		DispatchBatchSize:  getInt(lookup, "DISPATCH_BATCH_SIZE", defaultDispatchBatch),
		DispatchMaxRetries: getInt(lookup, "DISPATCH_MAX_RETRIES", defaultDispatchRetries),
		WorkerPoolSize:     getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("marketpay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		attemptTTLStr      = cfg.AttemptTTL.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		approvalModeStr    = string(cfg.ApprovalMode)
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.GatewayAddress, "g", cfg.GatewayAddress, "Payment gateway base URL")
	fs.StringVar(&cfg.GatewaySecret, "gateway-secret", cfg.GatewaySecret, "Secret for gateway API and webhook signatures")
	fs.StringVar(&cfg.GatewayCallbackURL, "callback-url", cfg.GatewayCallbackURL, "URL the gateway redirects shoppers back to")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "Secret for verifying principal tokens")
	fs.StringVar(&approvalModeStr, "approval-mode", approvalModeStr, "Non-gateway channel approval: auto or manual")
	fs.StringVar(&attemptTTLStr, "attempt-ttl", attemptTTLStr, "Pending attempt reuse window")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent dispatch workers")
	fs.IntVar(&cfg.DispatchBatchSize, "dispatch-batch", cfg.DispatchBatchSize, "Maximum orders per dispatch batch")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.AttemptTTL, err = time.ParseDuration(attemptTTLStr); err != nil {
		return nil, fmt.Errorf("invalid attempt ttl: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	switch ApprovalMode(approvalModeStr) {
	case ApprovalAuto, ApprovalManual:
		cfg.ApprovalMode = ApprovalMode(approvalModeStr)
	default:
		return nil, fmt.Errorf("invalid approval mode %q", approvalModeStr)
	}

	if secretFile, ok := lookup("GATEWAY_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read gateway secret file: %w", err)
		}
		cfg.GatewaySecret = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.DispatchBatchSize <= 0 {
		cfg.DispatchBatchSize = defaultDispatchBatch
	}

	if cfg.DispatchMaxRetries <= 0 {
		cfg.DispatchMaxRetries = defaultDispatchRetries
	}

	if cfg.DispatchInterval <= 0 {
		cfg.DispatchInterval = defaultDispatchInterval
	}

	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = defaultAttemptTTL
	}

	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayAddress == "" {
		return nil, fmt.Errorf("gateway address must be provided")
	}

	if cfg.GatewaySecret == "" {
		return nil, fmt.Errorf("gateway secret must be provided")
	}

	return cfg, nil
}

// WebhookChannelAllowed reports whether webhook events for channel should be
// processed. An empty allow-list accepts every channel.
func (c *Config) WebhookChannelAllowed(channel model.PaymentChannel) bool {
	if len(c.WebhookChannels) == 0 {
		return true
	}
	for _, allowed := range c.WebhookChannels {
		if allowed == channel {
			return true
		}
	}
	return false
}

func parseChannels(raw string) []model.PaymentChannel {
	if raw == "" {
		return nil
	}
	var channels []model.PaymentChannel
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			channels = append(channels, model.PaymentChannel(part))
		}
	}
	return channels
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
