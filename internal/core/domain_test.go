package core

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckbookCounters(t *testing.T) {
	cb := Checkbook{Series: "AA", StartNumber: 1, EndNumber: 5}
	if cb.Capacity() != 5 || cb.Remaining() != 5 || cb.State() != Active {
		t.Fatalf("fresh checkbook: capacity=%d remaining=%d state=%s", cb.Capacity(), cb.Remaining(), cb.State())
	}
	cb.UsedCount = 5
	if cb.Remaining() != 0 || cb.State() != Exhausted {
		t.Fatalf("full checkbook: remaining=%d state=%s", cb.Remaining(), cb.State())
	}
	if !cb.Contains(1) || !cb.Contains(5) || cb.Contains(0) || cb.Contains(6) {
		t.Fatal("Contains must be inclusive on both ends")
	}
}

func TestCheckbookValidate(t *testing.T) {
	cases := []struct {
		name string
		cb   Checkbook
		err  error
	}{
		{"ok", Checkbook{Series: "AB", StartNumber: 10, EndNumber: 10}, nil},
		{"one letter", Checkbook{Series: "A", StartNumber: 1, EndNumber: 2}, ErrInvalidSeries},
		{"digit series", Checkbook{Series: "A1", StartNumber: 1, EndNumber: 2}, ErrInvalidSeries},
		{"inverted range", Checkbook{Series: "AB", StartNumber: 5, EndNumber: 2}, ErrInvalidRange},
		{"used above capacity", Checkbook{Series: "AB", StartNumber: 1, EndNumber: 2, UsedCount: 3}, ErrUsedCount},
		{"eight digit end", Checkbook{Series: "AB", StartNumber: 1, EndNumber: 10000000}, ErrNumberTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cb.Validate()
			if tc.err == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if tc.err != nil && !IsValidationError(err) {
				t.Fatalf("%v should classify as a validation error", err)
			}
		})
	}
}

func TestFieldValuesValidate(t *testing.T) {
	good := FieldValues{City: "Alger", Date: NewDate(2025, 3, 1), Payee: "Sonatrach", Amount: Money{Cents: 100}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		f    FieldValues
		err  error
	}{
		{"empty payee", FieldValues{City: "Alger", Date: NewDate(2025, 3, 1), Payee: "", Amount: Money{Cents: 100}}, ErrEmptyPayee},
		{"payee too long", FieldValues{City: "Alger", Date: NewDate(2025, 3, 1), Payee: strings.Repeat("x", MaxPayeeLength+1), Amount: Money{Cents: 100}}, ErrPayeeTooLong},
		{"blank city", FieldValues{City: " ", Date: NewDate(2025, 3, 1), Payee: "x", Amount: Money{Cents: 100}}, ErrEmptyCity},
		{"zero date", FieldValues{City: "Alger", Date: Date{}, Payee: "x", Amount: Money{Cents: 100}}, ErrInvalidDate},
		{"zero amount", FieldValues{City: "Alger", Date: NewDate(2025, 3, 1), Payee: "x", Amount: Money{Cents: 0}}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.f.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("%v should classify as a validation error", err)
			}
		})
	}

	atLimit := good
	atLimit.Payee = strings.Repeat("x", MaxPayeeLength)
	if err := atLimit.Validate(); err != nil {
		t.Fatalf("payee at the limit rejected: %v", err)
	}
}
