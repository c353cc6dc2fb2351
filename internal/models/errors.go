package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDuplicateEntry     = errors.New("duplicate entry")
)

// InvalidArgumentError reports a contract violation detected before any
// storage call, such as a non-positive quantity or a malformed QR code.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation applied to an entity whose current
// status does not permit the transition, e.g. confirming payment on a
// non-pending order. It is distinct from a business denial so operators can
// tell a stale or fraudulent request apart from a normal sold-out outcome.
type InvalidStateError struct {
	Entity string
	ID     int
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d cannot %s in status %s", e.Entity, e.ID, e.Op, e.Status)
}

// TransientError wraps an infrastructure failure (lock timeout, deadlock,
// dropped connection) that the caller may safely retry. The guarded-write
// design makes retries idempotent: re-running a reserve re-checks capacity
// and re-running a check-in on a consumed ticket reports AlreadyUsed.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
