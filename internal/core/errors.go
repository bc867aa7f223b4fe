package core

import (
	"errors"
	"fmt"
)

// Issuance and rendering failures. All of them are recoverable by the caller
// and are meant to be surfaced verbatim.
var (
	ErrFormat          = errors.New("reference format error")
	ErrSeriesMismatch  = errors.New("reference series mismatch")
	ErrOutOfRange      = errors.New("reference out of checkbook range")
	ErrConflict        = errors.New("reference already issued")
	ErrExhausted       = errors.New("checkbook exhausted")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingTemplate = errors.New("missing template")
	ErrMissingLayout   = errors.New("missing layout")

	ErrInvalidPosition = errors.New("invalid position")
	ErrBankMismatch    = errors.New("checkbook belongs to another bank")
	ErrNotFound        = errors.New("not found")
)

// ReferenceError describes why a reference was rejected by validation.
// It unwraps to one of ErrFormat, ErrSeriesMismatch or ErrOutOfRange.
type ReferenceError struct {
	Kind      error
	Reference string
	Reason    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %q: %s", e.Kind, e.Reference, e.Reason)
}

func (e *ReferenceError) Unwrap() error {
	return e.Kind
}

// IsValidationError reports whether err rejects caller input rather than
// signalling a storage or infrastructure failure.
func IsValidationError(err error) bool {
	for _, target := range []error{ErrFormat, ErrSeriesMismatch, ErrOutOfRange, ErrInvalidAmount, ErrMissingLayout, ErrInvalidPosition, ErrBankMismatch, ErrEmptyPayee, ErrPayeeTooLong, ErrEmptyCity, ErrInvalidSeries, ErrInvalidRange, ErrNumberTooLarge, ErrUsedCount, ErrInvalidDay, ErrInvalidMonth, ErrInvalidDate} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
