package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"imprimecheque/internal/core"
)

func TestFieldsRequestValues(t *testing.T) {
	tests := []struct {
		name    string
		in      FieldsRequest
		want    core.FieldValues
		wantErr error
	}{
		{
			name: "iso date and comma amount",
			in:   FieldsRequest{City: " Oran ", Date: "2025-06-30", Payee: "SEAOR", Amount: "1 250,50"},
			want: core.FieldValues{City: "Oran", Date: core.NewDate(2025, 6, 30), Payee: "SEAOR", Amount: core.Money{Cents: 125050}},
		},
		{
			name: "french date",
			in:   FieldsRequest{City: "Alger", Date: "15/01/2025", Payee: "x\x00y", Amount: "12.3"},
			want: core.FieldValues{City: "Alger", Date: core.NewDate(2025, 1, 15), Payee: "xy", Amount: core.Money{Cents: 1230}},
		},
		{
			name:    "day out of range",
			in:      FieldsRequest{Date: "31/02/2025", Amount: "1"},
			wantErr: core.ErrInvalidDay,
		},
		{
			name:    "three decimals",
			in:      FieldsRequest{Date: "2025-01-01", Amount: "1.005"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "garbage amount",
			in:      FieldsRequest{Date: "2025-01-01", Amount: "douze"},
			wantErr: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Values()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.City != tt.want.City || got.Payee != tt.want.Payee || got.Amount != tt.want.Amount || !got.Date.Equal(tt.want.Date.Time) {
				t.Errorf("Values() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"amount":"12,50"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"amount":"1","extra":true}`, true},
		{"trailing data", `{"amount":"1"}{"amount":"2"}`, true},
		{"too large", `{"amount":"` + strings.Repeat("9", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/spell", strings.NewReader(tt.body))
			var dst spellRequest
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueryParams(t *testing.T) {
	q := url.Values{"bankId": {"3"}, "available": {"true"}, "userId": {"-1"}, "bad": {"maybe"}}

	if id, err := queryID(q, "bankId"); err != nil || id != 3 {
		t.Errorf("queryID(bankId) = %d, %v", id, err)
	}
	if id, err := queryID(q, "missing"); err != nil || id != 0 {
		t.Errorf("absent id should be zero, got %d, %v", id, err)
	}
	if _, err := queryID(q, "userId"); err == nil {
		t.Error("negative id should be rejected")
	}
	if b, err := queryBool(q, "available"); err != nil || !b {
		t.Errorf("queryBool(available) = %v, %v", b, err)
	}
	if _, err := queryBool(q, "bad"); err == nil {
		t.Error("expected an error for a non-boolean")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  Sonelgaz  ":     "Sonelgaz",
		"a\x00b\x07c":      "abc",
		"ligne 1\nligne 2": "ligne 1\nligne 2",
		"\ttab":            "tab",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
