// Package seed loads banks and checkbooks from a YAML file into a store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"imprimecheque/internal/core"
	"imprimecheque/internal/layout"
	"imprimecheque/internal/storage"
)

type (
	File struct {
		Banks []Bank `yaml:"banks"`
	}

	Bank struct {
		Code       string      `yaml:"code"`
		Name       string      `yaml:"name"`
		Template   string      `yaml:"template"`
		Positions  Layout      `yaml:"positions"`
		Checkbooks []Checkbook `yaml:"checkbooks"`
	}

	Checkbook struct {
		AgencyCode string `yaml:"agency_code"`
		AgencyName string `yaml:"agency_name"`
		Series     string `yaml:"series"`
		Start      int64  `yaml:"start"`
		End        int64  `yaml:"end"`
		Used       int64  `yaml:"used"`
	}

	Layout struct {
		City               *Position `yaml:"city"`
		Date               *Position `yaml:"date"`
		Payee              *Position `yaml:"payee"`
		Amount             *Position `yaml:"amount"`
		AmountInWords      *Position `yaml:"amount_in_words"`
		AmountInWordsLine2 *Position `yaml:"amount_in_words_line2"`
	}

	Position struct {
		X        float64  `yaml:"x"`
		Y        float64  `yaml:"y"`
		FontSize float64  `yaml:"font_size"`
		Width    *float64 `yaml:"width"`
	}

	// Target is what Apply writes to.
	Target interface {
		storage.SeedWriter
		storage.CheckbookReader
	}

	Summary struct {
		Banks      int
		Checkbooks int
		Skipped    int
	}
)

// Load reads and decodes a seed file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

// Apply upserts every bank and creates the checkbooks that do not exist
// yet. A checkbook exists when its bank already has one with the same
// series and range, so applying a file twice is harmless.
func Apply(ctx context.Context, target Target, f File) (Summary, error) {
	var sum Summary
	for _, sb := range f.Banks {
		positions := sb.Positions.toCore()
		if err := layout.ValidateDefault(positions); err != nil {
			return sum, fmt.Errorf("bank %s: %w", sb.Code, err)
		}
		bank, err := target.UpsertBank(ctx, core.Bank{
			Code:      sb.Code,
			Name:      sb.Name,
			Template:  sb.Template,
			Positions: positions,
		})
		if err != nil {
			return sum, fmt.Errorf("bank %s: %w", sb.Code, err)
		}
		sum.Banks++

		existing, err := target.ListCheckbooks(ctx, bank.ID, false)
		if err != nil {
			return sum, fmt.Errorf("bank %s: %w", sb.Code, err)
		}
		for _, sc := range sb.Checkbooks {
			if contains(existing, sc) {
				sum.Skipped++
				continue
			}
			_, err := target.CreateCheckbook(ctx, core.Checkbook{
				BankID:      bank.ID,
				AgencyCode:  sc.AgencyCode,
				AgencyName:  sc.AgencyName,
				Series:      sc.Series,
				StartNumber: sc.Start,
				EndNumber:   sc.End,
				UsedCount:   sc.Used,
			})
			if err != nil {
				return sum, fmt.Errorf("bank %s checkbook %s %d-%d: %w", sb.Code, sc.Series, sc.Start, sc.End, err)
			}
			sum.Checkbooks++
		}
		slog.InfoContext(ctx, "Seeded bank", "code", bank.Code, "bank_id", bank.ID, "checkbooks", len(sb.Checkbooks))
	}
	return sum, nil
}

func contains(existing []core.Checkbook, sc Checkbook) bool {
	for _, cb := range existing {
		if cb.Series == core.NormalizeSeries(sc.Series) && cb.StartNumber == sc.Start && cb.EndNumber == sc.End {
			return true
		}
	}
	return false
}

func (l Layout) toCore() core.FieldLayout {
	return core.FieldLayout{
		City:               l.City.toCore(),
		Date:               l.Date.toCore(),
		Payee:              l.Payee.toCore(),
		Amount:             l.Amount.toCore(),
		AmountInWords:      l.AmountInWords.toCore(),
		AmountInWordsLine2: l.AmountInWordsLine2.toCore(),
	}
}

func (p *Position) toCore() *core.Position {
	if p == nil {
		return nil
	}
	return &core.Position{X: p.X, Y: p.Y, FontSize: p.FontSize, Width: p.Width}
}
