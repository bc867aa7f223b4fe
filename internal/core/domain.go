package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Active    CheckbookState = "active"
	Exhausted CheckbookState = "exhausted"
)

type (
	CheckbookState string

	Money struct {
		Cents int64
	}

	// Checkbook is a contiguous, administratively defined range of check
	// numbers for one bank agency.
	Checkbook struct {
		ID          int64
		BankID      int64
		AgencyCode  string
		AgencyName  string
		Series      string // Two letters, stored uppercase
		StartNumber int64
		EndNumber   int64
		UsedCount   int64
	}

	Bank struct {
		ID        int64
		Code      string
		Name      string
		Positions FieldLayout // Default layout for every user of the bank
		Template  string      // Template location understood by the store
	}

	// FieldValues are the user-supplied strings of one check.
	FieldValues struct {
		City   string
		Date   Date
		Payee  string
		Amount Money
	}

	// Calibration is a user's sparse correction of a bank's default layout.
	Calibration struct {
		UserID    int64
		BankID    int64
		Positions FieldLayout
		UpdatedAt time.Time
	}

	// CheckRecord is one issued check.
	CheckRecord struct {
		ID          int64
		Reference   string
		CheckbookID int64
		BankID      int64
		UserID      int64
		Fields      FieldValues
		CreatedAt   time.Time
	}
)

var (
	ErrEmptyPayee     = errors.New("empty payee")
	ErrPayeeTooLong   = fmt.Errorf("payee too long (max %d characters)", MaxPayeeLength)
	ErrEmptyCity      = errors.New("empty city")
	ErrInvalidSeries  = errors.New("series must be two letters")
	ErrInvalidRange   = errors.New("start number must not exceed end number")
	ErrNumberTooLarge = errors.New("check numbers must fit in seven digits")
	ErrUsedCount      = errors.New("used count outside checkbook capacity")
)

const MaxPayeeLength = 200

// Capacity is the number of checks the checkbook can issue in total.
func (c Checkbook) Capacity() int64 {
	return c.EndNumber - c.StartNumber + 1
}

// Remaining is the number of checks still issuable.
func (c Checkbook) Remaining() int64 {
	return c.Capacity() - c.UsedCount
}

func (c Checkbook) State() CheckbookState {
	if c.Remaining() <= 0 {
		return Exhausted
	}
	return Active
}

// Contains reports whether n falls inside the checkbook range.
func (c Checkbook) Contains(n int64) bool {
	return n >= c.StartNumber && n <= c.EndNumber
}

func (c Checkbook) Validate() error {
	if len(c.Series) != 2 || !isASCIILetter(c.Series[0]) || !isASCIILetter(c.Series[1]) {
		return ErrInvalidSeries
	}
	if c.StartNumber < 0 || c.EndNumber > MaxReferenceNumber {
		return ErrNumberTooLarge
	}
	if c.StartNumber > c.EndNumber {
		return ErrInvalidRange
	}
	if c.UsedCount < 0 || c.UsedCount > c.Capacity() {
		return ErrUsedCount
	}
	return nil
}

// NormalizeSeries uppercases a series the way it is stored.
func NormalizeSeries(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (f FieldValues) Validate() error {
	if strings.TrimSpace(f.Payee) == "" {
		return ErrEmptyPayee
	}
	if len(f.Payee) > MaxPayeeLength {
		return ErrPayeeTooLong
	}
	if strings.TrimSpace(f.City) == "" {
		return ErrEmptyCity
	}
	if err := f.Date.Validate(); err != nil {
		return err
	}
	return f.Amount.Validate()
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
