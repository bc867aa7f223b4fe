// Package memory is an in-process store. Issuance is serialized per
// checkbook; the reference set is shared by all checkbooks.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"imprimecheque/internal/core"
	"imprimecheque/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type checkbookEntry struct {
	mu sync.Mutex
	cb core.Checkbook
}

type calibrationKey struct {
	userID, bankID int64
}

type Store struct {
	mu           sync.RWMutex
	banks        map[int64]core.Bank
	checkbooks   map[int64]*checkbookEntry
	calibrations map[calibrationKey]core.Calibration
	nextID       int64

	refsMu sync.Mutex
	checks map[string]core.CheckRecord

	now func() time.Time
}

func New() *Store {
	return &Store{
		banks:        map[int64]core.Bank{},
		checkbooks:   map[int64]*checkbookEntry{},
		calibrations: map[calibrationKey]core.Calibration{},
		checks:       map[string]core.CheckRecord{},
		now:          time.Now,
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) entry(id int64) (*checkbookEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.checkbooks[id]
	if !ok {
		return nil, fmt.Errorf("checkbook %d: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) GetCheckbook(_ context.Context, id int64) (core.Checkbook, error) {
	e, err := s.entry(id)
	if err != nil {
		return core.Checkbook{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cb, nil
}

func (s *Store) ListCheckbooks(_ context.Context, bankID int64, availableOnly bool) ([]core.Checkbook, error) {
	s.mu.RLock()
	entries := make([]*checkbookEntry, 0, len(s.checkbooks))
	for _, e := range s.checkbooks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []core.Checkbook
	for _, e := range entries {
		e.mu.Lock()
		cb := e.cb
		e.mu.Unlock()
		if bankID != 0 && cb.BankID != bankID {
			continue
		}
		if availableOnly && cb.Remaining() <= 0 {
			continue
		}
		out = append(out, cb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCheckbook(_ context.Context, cb core.Checkbook) (core.Checkbook, error) {
	cb.Series = core.NormalizeSeries(cb.Series)
	if err := cb.Validate(); err != nil {
		return core.Checkbook{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.banks[cb.BankID]; !ok {
		return core.Checkbook{}, fmt.Errorf("bank %d: %w", cb.BankID, core.ErrNotFound)
	}
	cb.ID = s.id()
	s.checkbooks[cb.ID] = &checkbookEntry{cb: cb}
	return cb, nil
}

func (s *Store) ReferenceExists(_ context.Context, reference string) (bool, error) {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return false, err
	}
	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	_, ok := s.checks[ref]
	return ok, nil
}

// IssueCheck holds the checkbook lock across the capacity check, the
// uniqueness check and the insert.
func (s *Store) IssueCheck(ctx context.Context, check core.CheckRecord) (core.CheckRecord, error) {
	e, err := s.entry(check.CheckbookID)
	if err != nil {
		return core.CheckRecord{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cb.Remaining() <= 0 {
		return core.CheckRecord{}, fmt.Errorf("checkbook %d: %w", e.cb.ID, core.ErrExhausted)
	}

	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	if _, ok := s.checks[check.Reference]; ok {
		return core.CheckRecord{}, fmt.Errorf("%s: %w", check.Reference, core.ErrConflict)
	}
	if err := ctx.Err(); err != nil {
		return core.CheckRecord{}, err
	}

	s.mu.Lock()
	check.ID = s.id()
	s.mu.Unlock()
	check.CreatedAt = s.now()
	s.checks[check.Reference] = check
	e.cb.UsedCount++
	return check, nil
}

func (s *Store) GetCheck(_ context.Context, reference string) (core.CheckRecord, error) {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return core.CheckRecord{}, err
	}
	s.refsMu.Lock()
	defer s.refsMu.Unlock()
	c, ok := s.checks[ref]
	if !ok {
		return core.CheckRecord{}, fmt.Errorf("check %s: %w", ref, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetBank(_ context.Context, id int64) (core.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.banks[id]
	if !ok {
		return core.Bank{}, fmt.Errorf("bank %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBanks(_ context.Context) ([]core.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Bank, 0, len(s.banks))
	for _, b := range s.banks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertBank(_ context.Context, b core.Bank) (core.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.banks {
		if existing.Code == b.Code {
			b.ID = id
			s.banks[id] = b
			return b, nil
		}
	}
	b.ID = s.id()
	s.banks[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBankPositions(_ context.Context, bankID int64, positions core.FieldLayout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banks[bankID]
	if !ok {
		return fmt.Errorf("bank %d: %w", bankID, core.ErrNotFound)
	}
	b.Positions = positions
	s.banks[bankID] = b
	return nil
}

func (s *Store) GetCalibration(_ context.Context, userID, bankID int64) (*core.FieldLayout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calibrations[calibrationKey{userID, bankID}]
	if !ok {
		return nil, nil
	}
	l := c.Positions
	return &l, nil
}

func (s *Store) SaveCalibration(_ context.Context, c core.Calibration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.banks[c.BankID]; !ok {
		return fmt.Errorf("bank %d: %w", c.BankID, core.ErrNotFound)
	}
	c.UpdatedAt = s.now()
	s.calibrations[calibrationKey{c.UserID, c.BankID}] = c
	return nil
}
