package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imprimecheque/internal/core"
)

// Runs against a disposable database: TEST_DATABASE_URL=postgres://... go test ./internal/storage/postgres
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIssueCheckPostgres(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	code := fmt.Sprintf("T%d", time.Now().UnixNano()%1_000_000_000)
	bank, err := s.UpsertBank(ctx, core.Bank{Code: code, Name: "Test bank"})
	require.NoError(t, err)
	series := string(rune('A'+time.Now().Nanosecond()%26)) + "Z"
	cb, err := s.CreateCheckbook(ctx, core.Checkbook{BankID: bank.ID, AgencyCode: "001", Series: series, StartNumber: 1, EndNumber: 3})
	require.NoError(t, err)

	ref := core.FormatReference(series, 1)
	if exists, _ := s.ReferenceExists(ctx, ref); exists {
		t.Skip("reference left over from an earlier run")
	}

	rec := core.CheckRecord{
		CheckbookID: cb.ID, BankID: bank.ID, UserID: 1,
		Fields: core.FieldValues{City: "Alger", Date: core.NewDate(2025, 1, 15), Payee: "x", Amount: core.Money{Cents: 100}},
	}

	var wg sync.WaitGroup
	errs := make([]error, 6)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := rec
			r.Reference = ref
			_, errs[i] = s.IssueCheck(ctx, r)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, core.ErrConflict)
	}
	assert.Equal(t, 1, ok)

	got, err := s.GetCheckbook(ctx, cb.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UsedCount)

	check, err := s.GetCheck(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "15/01/2025", check.Fields.Date.FormatFR())
}
