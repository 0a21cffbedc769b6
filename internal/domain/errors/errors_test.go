package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"not found", ErrNotFound},
		{"already exists", ErrAlreadyExists},
		{"validation", ErrValidation},
		{"already paid", ErrAlreadyPaid},
		{"not pending", ErrNotPending},
		{"amount mismatch", ErrAmountMismatch},
		{"reference mismatch", ErrReferenceMismatch},
		{"invalid signature", ErrInvalidSignature},
		{"gateway unavailable", ErrGatewayUnavailable},
		{"unknown channel", ErrUnknownChannel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tc.err)
			if !stdErrors.Is(wrapped, tc.err) {
				t.Fatalf("expected wrapped error to match sentinel: %v", tc.err)
			}
		})
	}
}
