package logger

import (
	"log/slog"
	"os"
)

// New creates the process-wide slog.Logger. JSON output so log lines from the
// HTTP layer, the reconciliation engine and the dispatch worker stay machine
// readable.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", "marketpay"))
}
