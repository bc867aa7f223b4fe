// Package register keeps a ledger of rendered checks outside the database,
// one row per check.
package register

import (
	"context"
	"sync"
	"time"
)

// Entry is one row of the register.
type Entry struct {
	Reference     string
	IssueDate     string // dd/mm/yyyy
	BankCode      string
	Payee         string
	Amount        string // formatted as printed
	AmountInWords string
	Document      string // output file name
	RenderedAt    time.Time
}

// Row is the entry as written to a sheet, columns A to H.
func (e Entry) Row() []any {
	return []any{
		e.IssueDate,
		e.Reference,
		e.BankCode,
		e.Payee,
		e.Amount,
		e.AmountInWords,
		e.Document,
		e.RenderedAt.UTC().Format(time.RFC3339),
	}
}

// Header names the columns of Row.
var Header = []any{"Date", "Référence", "Banque", "Bénéficiaire", "Montant", "Montant en lettres", "Document", "Rendu le"}

type Appender interface {
	// Append records e and returns where it was written.
	Append(ctx context.Context, e Entry) (string, error)
}

// Memory is an in-process register used when no spreadsheet is configured.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, e Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return e.Reference, nil
}

// Entries returns a copy of the recorded rows in insertion order.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
