package receipt

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestIssueIfNeededReturnsReceipt(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["payment_id"] != 77 {
			t.Errorf("unexpected payment id %d", req["payment_id"])
		}
		_, _ = w.Write([]byte(`{"id":"rcpt_1","url":"https://receipts.local/rcpt_1.pdf"}`))
	}))
	defer server.Close()

	issuer, err := NewHTTPIssuer(server.URL, testLogger())
	if err != nil {
		t.Fatalf("create issuer: %v", err)
	}

	receipt, err := issuer.IssueIfNeeded(context.Background(), 77)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if receipt == nil || receipt.ID != "rcpt_1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestIssueIfNeededNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	issuer, err := NewHTTPIssuer(server.URL, testLogger())
	if err != nil {
		t.Fatalf("create issuer: %v", err)
	}
	receipt, err := issuer.IssueIfNeeded(context.Background(), 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if receipt != nil {
		t.Fatalf("expected nil receipt, got %+v", receipt)
	}
}

func TestIssueIfNeededServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	issuer, err := NewHTTPIssuer(server.URL, testLogger())
	if err != nil {
		t.Fatalf("create issuer: %v", err)
	}
	if _, err := issuer.IssueIfNeeded(context.Background(), 1); err == nil {
		t.Fatal("expected error on 500")
	}
}
