package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Date struct {
	time.Time
}

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDate  = errors.New("invalid date")
)

var (
	isoDate = regexp.MustCompile(`^([0-9]{4})-([0-9]{2})-([0-9]{2})$`)
	frDate  = regexp.MustCompile(`^([0-9]{2})[/\-]([0-9]{2})[/\-]([0-9]{4})$`)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// ParseFlexibleDate accepts yyyy-mm-dd (HTML date inputs), dd/mm/yyyy and
// dd-mm-yyyy. Out of range days or months are rejected instead of being
// normalized into the next month.
func ParseFlexibleDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	var year, month, day int
	switch {
	case isoDate.MatchString(s):
		m := isoDate.FindStringSubmatch(s)
		year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
	case frDate.MatchString(s):
		m := frDate.FindStringSubmatch(s)
		day, month, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
	default:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Date{}, ErrInvalidDate
		}
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	if month < 1 || month > 12 {
		return Date{}, ErrInvalidMonth
	}
	d := NewDate(year, month, day)
	if day < 1 || d.Day() != day {
		return Date{}, ErrInvalidDay
	}
	return d, nil
}

// FormatFR renders the date as printed on checks (dd/mm/yyyy).
func (d Date) FormatFR() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

// ISO renders the date as yyyy-mm-dd.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
