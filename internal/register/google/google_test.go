package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"imprimecheque/internal/register"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Chèques", "2025 Chèques"},
		{"2024 Chèques", "2024 Chèques"},
		{"  Registre ", "2025 Registre"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2025); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestNewWithServiceRequiresSpreadsheet(t *testing.T) {
	if _, err := NewWithService(nil, Config{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
}

func TestAppend(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"updates":{"updatedRange":"'2025 Chèques'!A7:H7","updatedRows":1}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	svc, err := gsheet.NewService(ctx,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c, err := NewWithService(svc, Config{SpreadsheetID: "sheet-1"})
	if err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	rng, err := c.Append(ctx, register.Entry{
		Reference: "AA0000001",
		IssueDate: "01/03/2025",
		BankCode:  "CPA",
		Payee:     "SEAOR",
		Amount:    "1 250,00",
		Document:  "AA0000001.png",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if rng != "'2025 Chèques'!A7:H7" {
		t.Errorf("range = %q", rng)
	}
	if !strings.Contains(gotPath, "/spreadsheets/sheet-1/values/") || !strings.HasSuffix(gotPath, ":append") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "insertDataOption=INSERT_ROWS") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || gotBody.Values[0][1] != "AA0000001" {
		t.Errorf("unexpected row %v", gotBody.Values)
	}
}

func TestAppendWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetBase: "Chèques", now: time.Now}
	if _, err := c.Append(context.Background(), register.Entry{Reference: "AA0000001"}); err == nil {
		t.Fatal("expected error when service is nil")
	}
}
