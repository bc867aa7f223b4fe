package storage

import (
	"context"

	"imprimecheque/internal/core"
)

// Ports implemented by every backend (sqlite, postgres, memory).
type (
	CheckbookReader interface {
		GetCheckbook(ctx context.Context, id int64) (core.Checkbook, error)
		// ListCheckbooks returns the checkbooks of a bank, or of every bank
		// when bankID is zero. availableOnly hides exhausted checkbooks.
		ListCheckbooks(ctx context.Context, bankID int64, availableOnly bool) ([]core.Checkbook, error)
	}

	CheckIssuer interface {
		ReferenceExists(ctx context.Context, reference string) (bool, error)
		// IssueCheck increments the checkbook's used count and inserts the
		// check in one transaction. core.ErrExhausted is reported before
		// core.ErrConflict.
		IssueCheck(ctx context.Context, check core.CheckRecord) (core.CheckRecord, error)
		GetCheck(ctx context.Context, reference string) (core.CheckRecord, error)
	}

	BankStore interface {
		GetBank(ctx context.Context, id int64) (core.Bank, error)
		ListBanks(ctx context.Context) ([]core.Bank, error)
		UpdateBankPositions(ctx context.Context, bankID int64, positions core.FieldLayout) error
	}

	CalibrationStore interface {
		// GetCalibration returns nil when the user never calibrated the bank.
		GetCalibration(ctx context.Context, userID, bankID int64) (*core.FieldLayout, error)
		SaveCalibration(ctx context.Context, c core.Calibration) error
	}

	// SeedWriter loads reference data. UpsertBank matches on bank code.
	SeedWriter interface {
		UpsertBank(ctx context.Context, b core.Bank) (core.Bank, error)
		CreateCheckbook(ctx context.Context, cb core.Checkbook) (core.Checkbook, error)
	}

	Store interface {
		CheckbookReader
		CheckIssuer
		BankStore
		CalibrationStore
		SeedWriter
		Close() error
	}
)
