package memory

import (
	"context"
	"errors"
	"testing"

	"imprimecheque/internal/core"
)

func TestMemoryStoreIssue(t *testing.T) {
	ctx := context.Background()
	s := New()
	bank, _ := s.UpsertBank(ctx, core.Bank{Code: "BEA", Name: "Banque Extérieure d'Algérie"})
	cb, err := s.CreateCheckbook(ctx, core.Checkbook{BankID: bank.ID, Series: "xy", StartNumber: 10, EndNumber: 11})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.IssueCheck(ctx, core.CheckRecord{Reference: "XY0000010", CheckbookID: cb.ID}); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if _, err := s.IssueCheck(ctx, core.CheckRecord{Reference: "XY0000010", CheckbookID: cb.ID}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.IssueCheck(ctx, core.CheckRecord{Reference: "XY0000011", CheckbookID: cb.ID}); err != nil {
		t.Fatalf("second issue: %v", err)
	}
	// exhaustion wins over the duplicate reference
	if _, err := s.IssueCheck(ctx, core.CheckRecord{Reference: "XY0000011", CheckbookID: cb.ID}); !errors.Is(err, core.ErrExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}

	got, _ := s.GetCheckbook(ctx, cb.ID)
	if got.UsedCount != 2 {
		t.Fatalf("used count = %d, want 2", got.UsedCount)
	}
	if ok, _ := s.ReferenceExists(ctx, "xy0000011"); !ok {
		t.Fatal("issued reference not found")
	}
	avail, _ := s.ListCheckbooks(ctx, 0, true)
	if len(avail) != 0 {
		t.Fatalf("exhausted checkbook listed as available: %+v", avail)
	}
}

func TestMemoryStoreCancelledIssue(t *testing.T) {
	s := New()
	bank, _ := s.UpsertBank(context.Background(), core.Bank{Code: "BDL"})
	cb, _ := s.CreateCheckbook(context.Background(), core.Checkbook{BankID: bank.ID, Series: "AA", StartNumber: 1, EndNumber: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.IssueCheck(ctx, core.CheckRecord{Reference: "AA0000001", CheckbookID: cb.ID}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	got, _ := s.GetCheckbook(context.Background(), cb.ID)
	if ok, _ := s.ReferenceExists(context.Background(), "AA0000001"); ok || got.UsedCount != 0 {
		t.Fatal("cancelled issuance left state behind")
	}
}

func TestMemoryStoreCalibration(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SaveCalibration(ctx, core.Calibration{UserID: 1, BankID: 42}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for unknown bank, got %v", err)
	}
	bank, _ := s.UpsertBank(ctx, core.Bank{Code: "AGB"})
	l, err := s.GetCalibration(ctx, 1, bank.ID)
	if err != nil || l != nil {
		t.Fatalf("expected no calibration, got %+v %v", l, err)
	}
	override := core.FieldLayout{City: &core.Position{X: 1, Y: 2, FontSize: 3}}
	if err := s.SaveCalibration(ctx, core.Calibration{UserID: 1, BankID: bank.ID, Positions: override}); err != nil {
		t.Fatal(err)
	}
	l, _ = s.GetCalibration(ctx, 1, bank.ID)
	if l == nil || l.City == nil || l.City.X != 1 {
		t.Fatalf("calibration not stored: %+v", l)
	}
	if l, _ := s.GetCalibration(ctx, 2, bank.ID); l != nil {
		t.Fatal("calibration leaked to another user")
	}
}
