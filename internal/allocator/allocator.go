// Package allocator hands out and validates check references for numbered
// checkbooks. Issuance is delegated to a Store that performs the uniqueness
// check, the insert and the counter increment as one transaction.
package allocator

import (
	"context"
	"errors"
	"fmt"

	"imprimecheque/internal/core"
	"imprimecheque/internal/log"
)

// Store is the persistence port used by the allocator.
type Store interface {
	GetCheckbook(ctx context.Context, id int64) (core.Checkbook, error)
	// ReferenceExists is advisory: its answer may be stale by the time the
	// caller acts on it.
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	// IssueCheck atomically increments the checkbook's used count and records
	// the check. It fails with core.ErrExhausted when the checkbook is full
	// and with core.ErrConflict when the reference was already issued,
	// leaving no trace in either case.
	IssueCheck(ctx context.Context, check core.CheckRecord) (core.CheckRecord, error)
}

type Allocator struct {
	store  Store
	logger *log.Logger
}

func New(store Store, logger *log.Logger) *Allocator {
	if logger == nil {
		logger = log.Default(log.ComponentAllocator)
	}
	return &Allocator{store: store, logger: logger.WithComponent(log.ComponentAllocator)}
}

// Next returns the reference following the checkbook's used count. It is a
// suggestion, not a reservation.
func Next(cb core.Checkbook) (string, error) {
	if cb.State() == core.Exhausted {
		return "", fmt.Errorf("checkbook %d: %w", cb.ID, core.ErrExhausted)
	}
	return core.FormatReference(cb.Series, cb.StartNumber+cb.UsedCount), nil
}

// NextAvailableReference loads the checkbook and returns Next for it.
func (a *Allocator) NextAvailableReference(ctx context.Context, checkbookID int64) (string, error) {
	cb, err := a.store.GetCheckbook(ctx, checkbookID)
	if err != nil {
		return "", fmt.Errorf("load checkbook: %w", err)
	}
	return Next(cb)
}

// SuggestReference is NextAvailableReference corrected for out-of-order
// issuance: when the counter-derived number is already taken it walks the
// range, wrapping to the start, and returns the first free number.
func (a *Allocator) SuggestReference(ctx context.Context, checkbookID int64) (string, error) {
	cb, err := a.store.GetCheckbook(ctx, checkbookID)
	if err != nil {
		return "", fmt.Errorf("load checkbook: %w", err)
	}
	first, err := Next(cb)
	if err != nil {
		return "", err
	}

	capacity := cb.Capacity()
	offset := cb.UsedCount
	for i := int64(0); i < capacity; i++ {
		n := cb.StartNumber + (offset+i)%capacity
		ref := core.FormatReference(cb.Series, n)
		taken, err := a.store.ReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("check reference: %w", err)
		}
		if !taken {
			if ref != first {
				a.logger.WarnContext(ctx, "Suggested reference already issued, skipped ahead",
					log.FieldCheckbookID, checkbookID,
					"counter_reference", first,
					log.FieldReference, ref)
			}
			return ref, nil
		}
	}
	return "", fmt.Errorf("checkbook %d: every number already issued: %w", cb.ID, core.ErrExhausted)
}

// Validate checks a reference against a checkbook without touching storage.
func Validate(reference string, cb core.Checkbook) error {
	series, number, err := core.ParseReference(reference)
	if err != nil {
		return err
	}
	canonical := core.FormatReference(series, number)
	if series != core.NormalizeSeries(cb.Series) {
		return &core.ReferenceError{
			Kind:      core.ErrSeriesMismatch,
			Reference: canonical,
			Reason:    fmt.Sprintf("series must be %s", core.NormalizeSeries(cb.Series)),
		}
	}
	if !cb.Contains(number) {
		return &core.ReferenceError{
			Kind:      core.ErrOutOfRange,
			Reference: canonical,
			Reason: fmt.Sprintf("number must be between %s and %s",
				core.FormatReference(cb.Series, cb.StartNumber), core.FormatReference(cb.Series, cb.EndNumber)),
		}
	}
	return nil
}

// ValidateReference loads the checkbook and validates reference against it.
func (a *Allocator) ValidateReference(ctx context.Context, reference string, checkbookID int64) error {
	cb, err := a.store.GetCheckbook(ctx, checkbookID)
	if err != nil {
		return fmt.Errorf("load checkbook: %w", err)
	}
	return Validate(reference, cb)
}

// IssueReference validates reference against the checkbook and records the
// check in one storage transaction. check carries the caller's fields; its
// reference, checkbook and bank are filled in here.
func (a *Allocator) IssueReference(ctx context.Context, reference string, checkbookID int64, check core.CheckRecord) (core.CheckRecord, error) {
	cb, err := a.store.GetCheckbook(ctx, checkbookID)
	if err != nil {
		return core.CheckRecord{}, fmt.Errorf("load checkbook: %w", err)
	}
	if err := Validate(reference, cb); err != nil {
		return core.CheckRecord{}, err
	}
	if cb.State() == core.Exhausted {
		return core.CheckRecord{}, fmt.Errorf("checkbook %d: %w", cb.ID, core.ErrExhausted)
	}

	canonical, _ := core.CanonicalReference(reference)
	check.Reference = canonical
	check.CheckbookID = cb.ID
	check.BankID = cb.BankID

	issued, err := a.store.IssueCheck(ctx, check)
	switch {
	case err == nil:
		return issued, nil
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrExhausted):
		return core.CheckRecord{}, err
	default:
		return core.CheckRecord{}, fmt.Errorf("issue check: %w", err)
	}
}
