package errors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrNotPending         = errors.New("payment not pending")
	ErrAmountMismatch     = errors.New("payment amount does not equal order total")
	ErrReferenceMismatch  = errors.New("provider reference mismatch")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrUnknownChannel     = errors.New("unknown payment channel")
)
