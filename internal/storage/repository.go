package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"imprimecheque/internal/core"
	"imprimecheque/internal/layout"
)

var _ Store = (*SQLiteRepository)(nil)

// Every transaction starts with BEGIN IMMEDIATE so that concurrent
// issuances queue on the write lock instead of failing on upgrade.
const sqliteParams = "_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := Migrate(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite check register ready", "path", dbPath, "schema_version", version)

	db, err := sql.Open("sqlite", dbPath+"?"+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return newRepository(db), nil
}

func newRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) GetCheckbook(ctx context.Context, id int64) (core.Checkbook, error) {
	cb, err := r.queries.GetCheckbook(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Checkbook{}, fmt.Errorf("checkbook %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Checkbook{}, fmt.Errorf("get checkbook: %w", err)
	}
	return toCoreCheckbook(cb), nil
}

func (r *SQLiteRepository) ListCheckbooks(ctx context.Context, bankID int64, availableOnly bool) ([]core.Checkbook, error) {
	var (
		rows []Checkbook
		err  error
	)
	if bankID == 0 {
		rows, err = r.queries.ListCheckbooks(ctx)
	} else {
		rows, err = r.queries.ListCheckbooksByBank(ctx, bankID)
	}
	if err != nil {
		return nil, fmt.Errorf("list checkbooks: %w", err)
	}

	out := make([]core.Checkbook, 0, len(rows))
	for _, row := range rows {
		cb := toCoreCheckbook(row)
		if availableOnly && cb.Remaining() <= 0 {
			continue
		}
		out = append(out, cb)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCheckbook(ctx context.Context, cb core.Checkbook) (core.Checkbook, error) {
	cb.Series = core.NormalizeSeries(cb.Series)
	if err := cb.Validate(); err != nil {
		return core.Checkbook{}, err
	}
	row, err := r.queries.CreateCheckbook(ctx, CreateCheckbookParams{
		BankID:      cb.BankID,
		AgencyCode:  cb.AgencyCode,
		AgencyName:  cb.AgencyName,
		Series:      cb.Series,
		StartNumber: cb.StartNumber,
		EndNumber:   cb.EndNumber,
		UsedCount:   cb.UsedCount,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return core.Checkbook{}, fmt.Errorf("create checkbook: %w", err)
	}

	slog.InfoContext(ctx, "Checkbook saved to SQLite",
		"id", row.ID,
		"bank_id", row.BankID,
		"series", row.Series,
		"start", row.StartNumber,
		"end", row.EndNumber)

	return toCoreCheckbook(row), nil
}

func (r *SQLiteRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return false, err
	}
	n, err := r.queries.CountChecksByReference(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("count checks: %w", err)
	}
	return n > 0, nil
}

// IssueCheck runs the conditional increment and the insert in one
// transaction. A zero-row increment means the checkbook is full; a unique
// violation on insert means the reference is taken and the rollback undoes
// the increment.
func (r *SQLiteRepository) IssueCheck(ctx context.Context, check core.CheckRecord) (core.CheckRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.CheckRecord{}, fmt.Errorf("begin issuance: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	n, err := q.IncrementUsedCount(ctx, check.CheckbookID)
	if err != nil {
		return core.CheckRecord{}, fmt.Errorf("increment used count: %w", err)
	}
	if n == 0 {
		if _, err := q.GetCheckbook(ctx, check.CheckbookID); errors.Is(err, sql.ErrNoRows) {
			return core.CheckRecord{}, fmt.Errorf("checkbook %d: %w", check.CheckbookID, core.ErrNotFound)
		}
		return core.CheckRecord{}, fmt.Errorf("checkbook %d: %w", check.CheckbookID, core.ErrExhausted)
	}

	row, err := q.CreateCheck(ctx, CreateCheckParams{
		Reference:   check.Reference,
		CheckbookID: check.CheckbookID,
		BankID:      check.BankID,
		UserID:      check.UserID,
		City:        check.Fields.City,
		IssueDate:   check.Fields.Date.ISO(),
		Payee:       check.Fields.Payee,
		AmountCents: check.Fields.Amount.Cents,
		CreatedAt:   r.now(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.CheckRecord{}, fmt.Errorf("%s: %w", check.Reference, core.ErrConflict)
		}
		return core.CheckRecord{}, fmt.Errorf("insert check: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.CheckRecord{}, fmt.Errorf("commit issuance: %w", err)
	}

	slog.InfoContext(ctx, "Check saved to SQLite",
		"id", row.ID,
		"reference", row.Reference,
		"checkbook_id", row.CheckbookID,
		"amount_cents", row.AmountCents)

	return toCoreCheck(row)
}

func (r *SQLiteRepository) GetCheck(ctx context.Context, reference string) (core.CheckRecord, error) {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return core.CheckRecord{}, err
	}
	row, err := r.queries.GetCheckByReference(ctx, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CheckRecord{}, fmt.Errorf("check %s: %w", ref, core.ErrNotFound)
	}
	if err != nil {
		return core.CheckRecord{}, fmt.Errorf("get check: %w", err)
	}
	return toCoreCheck(row)
}

func (r *SQLiteRepository) GetBank(ctx context.Context, id int64) (core.Bank, error) {
	row, err := r.queries.GetBank(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bank{}, fmt.Errorf("bank %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Bank{}, fmt.Errorf("get bank: %w", err)
	}
	return toCoreBank(row)
}

func (r *SQLiteRepository) ListBanks(ctx context.Context) ([]core.Bank, error) {
	rows, err := r.queries.ListBanks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	out := make([]core.Bank, 0, len(rows))
	for _, row := range rows {
		b, err := toCoreBank(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) UpsertBank(ctx context.Context, b core.Bank) (core.Bank, error) {
	positions, err := layout.Marshal(b.Positions)
	if err != nil {
		return core.Bank{}, err
	}
	row, err := r.queries.UpsertBank(ctx, UpsertBankParams{
		Code:      b.Code,
		Name:      b.Name,
		Positions: string(positions),
		Template:  b.Template,
		UpdatedAt: r.now(),
	})
	if err != nil {
		return core.Bank{}, fmt.Errorf("upsert bank: %w", err)
	}
	return toCoreBank(row)
}

func (r *SQLiteRepository) UpdateBankPositions(ctx context.Context, bankID int64, positions core.FieldLayout) error {
	data, err := layout.Marshal(positions)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateBankPositions(ctx, UpdateBankPositionsParams{
		Positions: string(data),
		UpdatedAt: r.now(),
		ID:        bankID,
	})
	if err != nil {
		return fmt.Errorf("update bank positions: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bank %d: %w", bankID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetCalibration(ctx context.Context, userID, bankID int64) (*core.FieldLayout, error) {
	row, err := r.queries.GetCalibration(ctx, GetCalibrationParams{UserID: userID, BankID: bankID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calibration: %w", err)
	}
	l, err := layout.Parse([]byte(row.Positions))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *SQLiteRepository) SaveCalibration(ctx context.Context, c core.Calibration) error {
	data, err := layout.Marshal(c.Positions)
	if err != nil {
		return err
	}
	err = r.queries.UpsertCalibration(ctx, UpsertCalibrationParams{
		UserID:    c.UserID,
		BankID:    c.BankID,
		Positions: string(data),
		UpdatedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func toCoreCheckbook(cb Checkbook) core.Checkbook {
	return core.Checkbook{
		ID:          cb.ID,
		BankID:      cb.BankID,
		AgencyCode:  cb.AgencyCode,
		AgencyName:  cb.AgencyName,
		Series:      cb.Series,
		StartNumber: cb.StartNumber,
		EndNumber:   cb.EndNumber,
		UsedCount:   cb.UsedCount,
	}
}

func toCoreCheck(c Check) (core.CheckRecord, error) {
	date, err := core.ParseFlexibleDate(c.IssueDate)
	if err != nil {
		return core.CheckRecord{}, fmt.Errorf("check %s: issue date: %w", c.Reference, err)
	}
	return core.CheckRecord{
		ID:          c.ID,
		Reference:   c.Reference,
		CheckbookID: c.CheckbookID,
		BankID:      c.BankID,
		UserID:      c.UserID,
		Fields: core.FieldValues{
			City:   c.City,
			Date:   date,
			Payee:  c.Payee,
			Amount: core.Money{Cents: c.AmountCents},
		},
		CreatedAt: c.CreatedAt,
	}, nil
}

func toCoreBank(b Bank) (core.Bank, error) {
	positions, err := layout.Parse([]byte(b.Positions))
	if err != nil {
		return core.Bank{}, fmt.Errorf("bank %d: %w", b.ID, err)
	}
	return core.Bank{
		ID:        b.ID,
		Code:      b.Code,
		Name:      b.Name,
		Positions: positions,
		Template:  b.Template,
	}, nil
}
