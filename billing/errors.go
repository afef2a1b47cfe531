/*
errors.go - Error taxonomy shared by the engine and the finance operations

PURPOSE:
  One place for every error the system surfaces. The policy, in order of
  preference:
  1. Business-rule violations are checked proactively and refused
     (ErrInsufficientBalance, ErrBillAlreadyPaid) - nothing is mutated.
  2. Missing user-visible records are reported, not crashed on
     (ErrPaymentRecordNotFound, ErrRecordNotFound).
  3. Malformed historical data is logged and SKIPPED - the dataset is
     user-entered and has always contained broken records; aggregation
     continues over the valid remainder.
  4. Store failures abort the operation with no built-in retry; any balance
     adjustment already applied is compensated before the error surfaces.
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreUnavailable wraps any persistence failure. Transient; the user
	// retries manually.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInsufficientBalance is returned when a cash-affecting operation
	// exceeds the cash balance. Checked before mutating anything.
	ErrInsufficientBalance = errors.New("insufficient cash balance")

	// ErrPaymentRecordNotFound is returned when a reversal finds no payment
	// marker in either storage location. User-visible, non-fatal.
	ErrPaymentRecordNotFound = errors.New("payment record not found")

	// ErrMalformedRecord marks a ledger entry missing required fields. Such
	// records are skipped with a warning, never a hard failure.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrBillAlreadyPaid is returned when paying a bill that already has a
	// payment marker for the month. Enforces marker uniqueness at write time.
	ErrBillAlreadyPaid = errors.New("bill already paid")

	// ErrNothingToPay is returned when paying a zero or negative amount.
	ErrNothingToPay = errors.New("nothing to pay")

	// ErrCardExists is returned when creating or renaming a card to a name
	// already in use. Names are the foreign key charges reference.
	ErrCardExists = errors.New("card name already exists")

	// ErrCardNotFound is returned when an operation references an unknown card.
	ErrCardNotFound = errors.New("card not found")

	// ErrRecordNotFound is returned by record operations on a missing id.
	ErrRecordNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports the shortfall of a refused operation.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient cash balance: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// MalformedRecordError identifies a skipped ledger entry.
type MalformedRecordError struct {
	Path   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at %s: %s", e.Path, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault rather than
// a system failure. The API maps these to 4xx statuses.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrBillAlreadyPaid) ||
		errors.Is(err, ErrNothingToPay) ||
		errors.Is(err, ErrCardExists)
}

// IsNotFound reports whether the error names a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaymentRecordNotFound) ||
		errors.Is(err, ErrCardNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}
