package http

import (
	"strings"
	"time"

	"imprimecheque/internal/core"
)

// sanitizeInput trims and removes control characters except tab, newline
// and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type bankJSON struct {
	ID        int64            `json:"id"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Positions core.FieldLayout `json:"positions"`
}

func toBankJSON(b core.Bank) bankJSON {
	return bankJSON{ID: b.ID, Code: b.Code, Name: b.Name, Positions: b.Positions}
}

type checkbookJSON struct {
	ID          int64  `json:"id"`
	BankID      int64  `json:"bankId"`
	AgencyCode  string `json:"agencyCode"`
	AgencyName  string `json:"agencyName,omitempty"`
	Series      string `json:"series"`
	StartNumber int64  `json:"startNumber"`
	EndNumber   int64  `json:"endNumber"`
	UsedCount   int64  `json:"usedCount"`
	Capacity    int64  `json:"capacity"`
	Remaining   int64  `json:"remaining"`
	State       string `json:"state"`
}

func toCheckbookJSON(cb core.Checkbook) checkbookJSON {
	return checkbookJSON{
		ID:          cb.ID,
		BankID:      cb.BankID,
		AgencyCode:  cb.AgencyCode,
		AgencyName:  cb.AgencyName,
		Series:      cb.Series,
		StartNumber: cb.StartNumber,
		EndNumber:   cb.EndNumber,
		UsedCount:   cb.UsedCount,
		Capacity:    cb.Capacity(),
		Remaining:   cb.Remaining(),
		State:       string(cb.State()),
	}
}

type checkJSON struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	CheckbookID int64     `json:"checkbookId"`
	BankID      int64     `json:"bankId"`
	UserID      int64     `json:"userId,omitempty"`
	City        string    `json:"city"`
	Date        string    `json:"date"`
	Payee       string    `json:"payee"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amountCents"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toCheckJSON(c core.CheckRecord) checkJSON {
	return checkJSON{
		ID:          c.ID,
		Reference:   c.Reference,
		CheckbookID: c.CheckbookID,
		BankID:      c.BankID,
		UserID:      c.UserID,
		City:        c.Fields.City,
		Date:        c.Fields.Date.ISO(),
		Payee:       c.Fields.Payee,
		Amount:      c.Fields.Amount.Format(),
		AmountCents: c.Fields.Amount.Cents,
		CreatedAt:   c.CreatedAt,
	}
}
