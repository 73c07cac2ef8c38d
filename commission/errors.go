/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place. Only two failure classes exist at this layer:

  1. Domain validation errors - pension provision/commission rate out of
     range. Returned immediately, abort the calculation, no partial result.
     ValidateAmounts adds a negative-amount check for sales that are
     recorded; Calculate itself never returns it.
  2. Store errors - already classified by the store (not found, conflict).

  Missing or inactive rate configuration is NOT an error: it degrades to a
  zero-valued CommissionResult. Goal overflow is a typed result in package
  goals, not an error.

USAGE:
  _, err := commission.Calculate(...)
  if errors.Is(err, commission.ErrInvalidProvisionRate) {
      // err.Error() is the literal message shown to the agent
  }

SEE ALSO:
  - validate.go: Produces ValidationError
  - store.go: Uses the store sentinels
*/
package commission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidProvisionRate is wrapped by the provision rate ValidationError.
	ErrInvalidProvisionRate = errors.New("invalid provision rate")

	// ErrInvalidCommissionRate is wrapped by the commission rate ValidationError.
	ErrInvalidCommissionRate = errors.New("invalid commission rate")

	// ErrNegativeAmount is wrapped by the ValidationError for a negative
	// salary, premium, amount or accumulation in a recorded sale.
	ErrNegativeAmount = errors.New("negative amount")

	// ErrUnknownMode is returned for a calculation mode other than simple/agreement.
	ErrUnknownMode = errors.New("unknown calculation mode")

	// ErrMissingInput is returned when Calculate is called without a sale input.
	ErrMissingInput = errors.New("missing sale input")

	// ErrDuplicateIdempotencyKey is returned when a sale with the same
	// idempotency key was already recorded. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrConcurrentModification is returned by a conditional write that lost
	// a race. The caller re-reads and retries.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNotFound is returned by stores for a missing record where absence
	// cannot be expressed as a nil result.
	ErrNotFound = errors.New("not found")
)

// Literal messages shown to agents. Callers match on these strings.
const (
	MsgInvalidProvisionRate  = "אחוז הפרשה חייב להיות בין 18.5 ל-23"
	MsgInvalidCommissionRate = "אחוז עמלה חייב להיות בין 6 ל-8"
	MsgNegativeAmount        = "הסכום אינו יכול להיות שלילי"
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports an out-of-range domain input. Error() is exactly
// the agent-facing message.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	kind    error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.kind }

// Detail includes the offending value, for logs.
func (e *ValidationError) Detail() string {
	return fmt.Sprintf("%s=%s: %s", e.Field, e.Value, e.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidationError returns true for domain validation failures.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsValidationError(err) ||
		errors.Is(err, ErrUnknownMode) ||
		errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}
