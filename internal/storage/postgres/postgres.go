// Package postgres stores checkbooks and issued checks in PostgreSQL
// through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"imprimecheque/internal/core"
	"imprimecheque/internal/layout"
	"imprimecheque/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Bank struct {
	ID        int64  `gorm:"primaryKey"`
	Code      string `gorm:"size:32;uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	Positions string `gorm:"type:jsonb;not null;default:'{}'"`
	Template  string `gorm:"not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Checkbook struct {
	ID          int64  `gorm:"primaryKey"`
	BankID      int64  `gorm:"index;not null"`
	Bank        Bank   `gorm:"constraint:OnDelete:RESTRICT"`
	AgencyCode  string `gorm:"not null"`
	AgencyName  string `gorm:"not null;default:''"`
	Series      string `gorm:"size:2;not null"`
	StartNumber int64  `gorm:"not null;check:start_number_valid,start_number >= 0"`
	EndNumber   int64  `gorm:"not null;check:end_number_valid,end_number <= 9999999"`
	UsedCount   int64  `gorm:"not null;default:0"`
	CreatedAt   time.Time
}

// Check.Reference is unique across every checkbook.
type Check struct {
	ID          int64     `gorm:"primaryKey"`
	Reference   string    `gorm:"size:9;uniqueIndex;not null"`
	CheckbookID int64     `gorm:"index;not null"`
	Checkbook   Checkbook `gorm:"constraint:OnDelete:RESTRICT"`
	BankID      int64     `gorm:"not null"`
	UserID      int64     `gorm:"not null"`
	City        string    `gorm:"not null"`
	IssueDate   time.Time `gorm:"type:date;not null"`
	Payee       string    `gorm:"not null"`
	AmountCents int64     `gorm:"not null;check:amount_positive,amount_cents > 0"`
	CreatedAt   time.Time
}

type UserBankCalibration struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"uniqueIndex:idx_calibration_user_bank;not null"`
	BankID    int64  `gorm:"uniqueIndex:idx_calibration_user_bank;not null"`
	Positions string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Bank{}, &Checkbook{}, &Check{}, &UserBankCalibration{}); err != nil {
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func (s *Store) GetCheckbook(ctx context.Context, id int64) (core.Checkbook, error) {
	var m Checkbook
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return core.Checkbook{}, notFound(err, "checkbook", id)
	}
	return m.toCore(), nil
}

func (s *Store) ListCheckbooks(ctx context.Context, bankID int64, availableOnly bool) ([]core.Checkbook, error) {
	q := s.db.WithContext(ctx).Order("id")
	if bankID != 0 {
		q = q.Where("bank_id = ?", bankID)
	}
	if availableOnly {
		q = q.Where("used_count < end_number - start_number + 1")
	}
	var rows []Checkbook
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list checkbooks: %w", err)
	}
	out := make([]core.Checkbook, len(rows))
	for i, m := range rows {
		out[i] = m.toCore()
	}
	return out, nil
}

func (s *Store) CreateCheckbook(ctx context.Context, cb core.Checkbook) (core.Checkbook, error) {
	cb.Series = core.NormalizeSeries(cb.Series)
	if err := cb.Validate(); err != nil {
		return core.Checkbook{}, err
	}
	m := Checkbook{
		BankID:      cb.BankID,
		AgencyCode:  cb.AgencyCode,
		AgencyName:  cb.AgencyName,
		Series:      cb.Series,
		StartNumber: cb.StartNumber,
		EndNumber:   cb.EndNumber,
		UsedCount:   cb.UsedCount,
	}
	if err := s.db.WithContext(ctx).Omit("Bank").Create(&m).Error; err != nil {
		return core.Checkbook{}, fmt.Errorf("create checkbook: %w", err)
	}
	return m.toCore(), nil
}

func (s *Store) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return false, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&Check{}).Where("reference = ?", ref).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count checks: %w", err)
	}
	return n > 0, nil
}

// IssueCheck locks the checkbook row through the conditional update, then
// inserts the check. A duplicate reference aborts the transaction.
func (s *Store) IssueCheck(ctx context.Context, check core.CheckRecord) (core.CheckRecord, error) {
	m := Check{
		Reference:   check.Reference,
		CheckbookID: check.CheckbookID,
		BankID:      check.BankID,
		UserID:      check.UserID,
		City:        check.Fields.City,
		IssueDate:   check.Fields.Date.Time,
		Payee:       check.Fields.Payee,
		AmountCents: check.Fields.Amount.Cents,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Checkbook{}).
			Where("id = ? AND used_count < end_number - start_number + 1", check.CheckbookID).
			UpdateColumn("used_count", gorm.Expr("used_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("increment used count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&Checkbook{}).Where("id = ?", check.CheckbookID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("checkbook %d: %w", check.CheckbookID, core.ErrNotFound)
			}
			return fmt.Errorf("checkbook %d: %w", check.CheckbookID, core.ErrExhausted)
		}
		if err := tx.Omit("Checkbook").Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%s: %w", check.Reference, core.ErrConflict)
			}
			return fmt.Errorf("insert check: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.CheckRecord{}, err
	}

	slog.InfoContext(ctx, "Check saved to Postgres",
		"id", m.ID,
		"reference", m.Reference,
		"checkbook_id", m.CheckbookID)

	return m.toCore(), nil
}

func (s *Store) GetCheck(ctx context.Context, reference string) (core.CheckRecord, error) {
	ref, err := core.CanonicalReference(reference)
	if err != nil {
		return core.CheckRecord{}, err
	}
	var m Check
	if err := s.db.WithContext(ctx).Where("reference = ?", ref).First(&m).Error; err != nil {
		return core.CheckRecord{}, notFound(err, "check", ref)
	}
	return m.toCore(), nil
}

func (s *Store) GetBank(ctx context.Context, id int64) (core.Bank, error) {
	var m Bank
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return core.Bank{}, notFound(err, "bank", id)
	}
	return m.toCore()
}

func (s *Store) ListBanks(ctx context.Context) ([]core.Bank, error) {
	var rows []Bank
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	out := make([]core.Bank, 0, len(rows))
	for _, m := range rows {
		b, err := m.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) UpsertBank(ctx context.Context, b core.Bank) (core.Bank, error) {
	positions, err := layout.Marshal(b.Positions)
	if err != nil {
		return core.Bank{}, err
	}
	m := Bank{Code: b.Code, Name: b.Name, Positions: string(positions), Template: b.Template}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "positions", "template", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return core.Bank{}, fmt.Errorf("upsert bank: %w", err)
	}
	return m.toCore()
}

func (s *Store) UpdateBankPositions(ctx context.Context, bankID int64, positions core.FieldLayout) error {
	data, err := layout.Marshal(positions)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&Bank{}).Where("id = ?", bankID).
		Updates(map[string]any{"positions": string(data), "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("update bank positions: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("bank %d: %w", bankID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) GetCalibration(ctx context.Context, userID, bankID int64) (*core.FieldLayout, error) {
	var m UserBankCalibration
	err := s.db.WithContext(ctx).Where("user_id = ? AND bank_id = ?", userID, bankID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calibration: %w", err)
	}
	l, err := layout.Parse([]byte(m.Positions))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) SaveCalibration(ctx context.Context, c core.Calibration) error {
	data, err := layout.Marshal(c.Positions)
	if err != nil {
		return err
	}
	m := UserBankCalibration{UserID: c.UserID, BankID: c.BankID, Positions: string(data)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "bank_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"positions", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	return nil
}

func (m Checkbook) toCore() core.Checkbook {
	return core.Checkbook{
		ID:          m.ID,
		BankID:      m.BankID,
		AgencyCode:  m.AgencyCode,
		AgencyName:  m.AgencyName,
		Series:      m.Series,
		StartNumber: m.StartNumber,
		EndNumber:   m.EndNumber,
		UsedCount:   m.UsedCount,
	}
}

func (m Check) toCore() core.CheckRecord {
	return core.CheckRecord{
		ID:          m.ID,
		Reference:   m.Reference,
		CheckbookID: m.CheckbookID,
		BankID:      m.BankID,
		UserID:      m.UserID,
		Fields: core.FieldValues{
			City:   m.City,
			Date:   core.NewDate(m.IssueDate.Year(), int(m.IssueDate.Month()), m.IssueDate.Day()),
			Payee:  m.Payee,
			Amount: core.Money{Cents: m.AmountCents},
		},
		CreatedAt: m.CreatedAt,
	}
}

func (m Bank) toCore() (core.Bank, error) {
	positions, err := layout.Parse([]byte(m.Positions))
	if err != nil {
		return core.Bank{}, fmt.Errorf("bank %d: %w", m.ID, err)
	}
	return core.Bank{ID: m.ID, Code: m.Code, Name: m.Name, Positions: positions, Template: m.Template}, nil
}
