package service

import (
	"errors"
	"fmt"
)

// Business-rule rejections. These are terminal: the withdrawal and payment
// processors never retry them, and the HTTP layer maps each to a specific
// client-facing outcome.
var (
	ErrForbidden              = errors.New("operation not permitted for this role")
	ErrInsufficientBalance    = errors.New("insufficient available balance")
	ErrDailyCountLimit        = errors.New("daily withdrawal count limit reached")
	ErrDailyAmountLimit       = errors.New("daily withdrawal amount limit exceeded")
	ErrWithdrawalNotFound     = errors.New("withdrawal not found")
	ErrInvalidTransition      = errors.New("invalid withdrawal status transition")
	ErrIdempotencyKeyConflict = errors.New("idempotency key already used by another caller")
	ErrContractNotFound       = errors.New("contract not found")
	ErrContractNotActive      = errors.New("contract is not active")
	ErrAmountMismatch         = errors.New("amount does not match contract rent")
	ErrProviderRejected       = errors.New("payment provider rejected the request")
	ErrPaymentNotFound        = errors.New("payment not found")

	// ErrConflict is the generic failure surfaced once the bounded retry
	// loop exhausts its attempts on serialization conflicts.
	ErrConflict = errors.New("unable to complete operation due to concurrent updates")
)

// ValidationError rejects malformed input before any transaction opens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
