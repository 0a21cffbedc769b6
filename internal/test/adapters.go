package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/adapter/receipt"
	"github.com/polkiloo/marketpay/internal/adapter/supplier"
)

// GatewayClientStub fakes the payment gateway.
type GatewayClientStub struct {
	InitializeFn func(context.Context, gateway.InitializeRequest) (*gateway.InitializeResult, error)
	VerifyFn     func(context.Context, string) (*gateway.VerifyResult, error)
}

var _ gateway.Client = (*GatewayClientStub)(nil)

// Initialize delegates to the override or returns a hosted checkout URL.
func (s *GatewayClientStub) Initialize(ctx context.Context, req gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	if s.InitializeFn != nil {
		return s.InitializeFn(ctx, req)
	}
	return &gateway.InitializeResult{
		AuthorizationURL: "https://pay.example/" + req.Reference,
		ProviderRef:      "prov-" + req.Reference,
	}, nil
}

// Verify delegates to the override or reports success for the reference.
func (s *GatewayClientStub) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	if s.VerifyFn != nil {
		return s.VerifyFn(ctx, reference)
	}
	return &gateway.VerifyResult{Status: gateway.VerifySuccess, Reference: reference}, nil
}

// ReceiptIssuerStub records issued receipts.
type ReceiptIssuerStub struct {
	IssueFn func(context.Context, int64) (*receipt.Receipt, error)

	mu     sync.Mutex
	Issued []int64
}

var _ receipt.Issuer = (*ReceiptIssuerStub)(nil)

// IssueIfNeeded records the payment and returns a canned receipt.
func (s *ReceiptIssuerStub) IssueIfNeeded(ctx context.Context, paymentID int64) (*receipt.Receipt, error) {
	if s.IssueFn != nil {
		return s.IssueFn(ctx, paymentID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Issued = append(s.Issued, paymentID)
	return &receipt.Receipt{ID: fmt.Sprintf("rcpt-%d", paymentID), URL: "https://receipts.example/r"}, nil
}

// SupplierAPIStub fakes the drop-ship supplier call sequence.
type SupplierAPIStub struct {
	PlaceFn   func(context.Context, supplier.PlaceRequest) (string, error)
	PayFn     func(context.Context, string) error
	ReceiptFn func(context.Context, string) (string, error)

	mu     sync.Mutex
	Placed []supplier.PlaceRequest
	Paid   []string
}

var _ supplier.APIClient = (*SupplierAPIStub)(nil)

// Place records the request and mints an external reference.
func (s *SupplierAPIStub) Place(ctx context.Context, req supplier.PlaceRequest) (string, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, req)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Placed = append(s.Placed, req)
	return fmt.Sprintf("ext-%d", len(s.Placed)), nil
}

// Pay records the settled external reference.
func (s *SupplierAPIStub) Pay(ctx context.Context, externalRef string) error {
	if s.PayFn != nil {
		return s.PayFn(ctx, externalRef)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Paid = append(s.Paid, externalRef)
	return nil
}

// FetchReceipt returns a canned receipt URL.
func (s *SupplierAPIStub) FetchReceipt(ctx context.Context, externalRef string) (string, error) {
	if s.ReceiptFn != nil {
		return s.ReceiptFn(ctx, externalRef)
	}
	return "https://supplier.example/receipts/" + externalRef, nil
}

// NotifierStub records dispatch summaries sent to stocking suppliers.
type NotifierStub struct {
	SendFn func(context.Context, string, string) (string, error)

	mu   sync.Mutex
	Sent []string
}

var _ supplier.Notifier = (*NotifierStub)(nil)

// Send records the outgoing message.
func (s *NotifierStub) Send(ctx context.Context, destination, message string) (string, error) {
	if s.SendFn != nil {
		return s.SendFn(ctx, destination, message)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, message)
	return "msg-1", nil
}
