package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"imprimecheque/internal/config"
)

const seedYAML = `
banks:
  - code: BEA
    name: Banque Extérieure d'Algérie
    template: bea.png
    positions:
      city: {x: 400, y: 230, font_size: 14}
      date: {x: 520, y: 230, font_size: 14}
      payee: {x: 120, y: 160, font_size: 14}
      amount: {x: 560, y: 40, font_size: 16}
      amount_in_words: {x: 150, y: 90, font_size: 14, width: 420}
    checkbooks:
      - agency_code: "012"
        agency_name: Annaba
        series: AC
        start: 1
        end: 25
`

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend, SeedFile: seedPath}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "cheques.db"), SeedFile: seedPath}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(nil).CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer res.Cleanup()

			books, err := res.Store.ListCheckbooks(ctx, 0, true)
			if err != nil {
				t.Fatal(err)
			}
			if len(books) != 1 || books[0].Series != "AC" || books[0].Capacity() != 25 {
				t.Fatalf("unexpected checkbooks %+v", books)
			}
		})
	}
}

func TestCreateBackendInvalid(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []Config{
		{Type: "sheets"},
		{Type: SQLiteBackend},
		{Type: PostgresBackend},
		{Type: MemoryBackend, SeedFile: "/nonexistent.yaml"},
	} {
		if _, err := NewFactory(nil).CreateBackend(ctx, cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://x"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != "postgres://x" {
		t.Errorf("unexpected %+v", cfg)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("unknown backend error = %v", err)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sqlite"}); !errors.Is(err, ErrMissingDSN) {
		t.Errorf("missing sqlite path error = %v", err)
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestKindDurable(t *testing.T) {
	for _, k := range Kinds() {
		if got, want := k.Durable(), k != MemoryBackend; got != want {
			t.Errorf("%s.Durable() = %v, want %v", k, got, want)
		}
	}
}
