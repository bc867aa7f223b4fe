// Package spell converts amounts into the French words written on checks.
//
// The integer part follows the traditional orthography: hyphens below one
// hundred, "et" before "un" and "onze" in the twenties to seventies, "cent"
// and "quatre-vingt" taking an "s" only when they end the number and are not
// followed by "mille". Groups of thousands are spelled recursively.
package spell

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"imprimecheque/internal/core"
)

// Currency holds the nouns used for the major and minor units.
type Currency struct {
	Code          string
	Singular      string
	Plural        string
	MinorSingular string
	MinorPlural   string
}

var (
	DZD = Currency{Code: "DZD", Singular: "dinar", Plural: "dinars", MinorSingular: "centime", MinorPlural: "centimes"}
	EUR = Currency{Code: "EUR", Singular: "euro", Plural: "euros", MinorSingular: "centime", MinorPlural: "centimes"}
)

// CurrencyByCode looks up a supported currency by its ISO code.
func CurrencyByCode(code string) (Currency, bool) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case DZD.Code:
		return DZD, true
	case EUR.Code:
		return EUR, true
	}
	return Currency{}, false
}

const (
	thousand = 1_000
	million  = 1_000_000
	milliard = 1_000_000_000
)

// maxAmount is the first amount that is rejected.
var maxAmount = decimal.New(100, 9)

var units = [...]string{
	"zéro", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf",
	"dix", "onze", "douze", "treize", "quatorze", "quinze", "seize", "dix-sept", "dix-huit", "dix-neuf",
}

// tens is indexed by the tens digit. Seventy and ninety are built on top of
// sixty and eighty with the teens.
var tens = [...]string{
	2: "vingt",
	3: "trente",
	4: "quarante",
	5: "cinquante",
	6: "soixante",
	7: "soixante",
	8: "quatre-vingt",
	9: "quatre-vingt",
}

type scale struct {
	value            int64
	singular, plural string
}

// scales are nouns: they agree in number and do not stop "cent" from
// taking its plural ("deux cents millions").
var scales = []scale{
	{milliard, "milliard", "milliards"},
	{million, "million", "millions"},
}

// Speller spells amounts for one currency. The zero value is not usable;
// build one with New.
type Speller struct {
	currency Currency
}

func New(c Currency) *Speller {
	return &Speller{currency: c}
}

var defaultSpeller = New(DZD)

// Spell spells amount in the default currency (Algerian dinar).
func Spell(amount decimal.Decimal) (string, error) {
	return defaultSpeller.Spell(amount)
}

// Currency returns the currency the speller writes.
func (s *Speller) Currency() Currency {
	return s.currency
}

// Spell renders a non-negative amount with at most two fractional digits.
// Zero is spelled "zéro <unit>"; amounts below one unit only get the
// centime clause.
func (s *Speller) Spell(amount decimal.Decimal) (string, error) {
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: negative amount %s", core.ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return "", fmt.Errorf("%w: more than two fractional digits in %s", core.ErrInvalidAmount, amount)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return "", fmt.Errorf("%w: %s exceeds the supported maximum", core.ErrInvalidAmount, amount)
	}
	cents := amount.Shift(2).IntPart()
	return s.spell(cents/100, cents%100), nil
}

// SpellCents spells an amount expressed in minor units.
func (s *Speller) SpellCents(cents int64) (string, error) {
	return s.Spell(decimal.New(cents, -2))
}

// SpellFloat spells a binary floating point amount, rejecting NaN and infinities.
func (s *Speller) SpellFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: non-finite amount", core.ErrInvalidAmount)
	}
	return s.Spell(decimal.NewFromFloat(f))
}

func (s *Speller) spell(integer, centimes int64) string {
	var parts []string
	if integer > 0 || centimes == 0 {
		parts = append(parts, Words(integer), s.unitNoun(integer))
	}
	if centimes > 0 {
		if len(parts) > 0 {
			parts = append(parts, "et")
		}
		parts = append(parts, Words(centimes), agree(centimes, s.currency.MinorSingular, s.currency.MinorPlural))
	}
	return strings.Join(parts, " ")
}

// unitNoun agrees the major unit. Round millions and milliards take "de":
// "un million de dinars", "deux milliards d'euros".
func (s *Speller) unitNoun(n int64) string {
	noun := agree(n, s.currency.Singular, s.currency.Plural)
	if n >= million && n%million == 0 {
		if startsWithVowel(noun) {
			return "d'" + noun
		}
		return "de " + noun
	}
	return noun
}

// Words spells a non-negative integer.
func Words(n int64) string {
	if n == 0 {
		return units[0]
	}
	return strings.Join(spellInt(n), " ")
}

func spellInt(n int64) []string {
	for _, sc := range scales {
		if n >= sc.value {
			q, r := n/sc.value, n%sc.value
			parts := append(spellInt(q), agree(q, sc.singular, sc.plural))
			return append(parts, spellInt(r)...)
		}
	}
	if n >= thousand {
		q, r := n/thousand, n%thousand
		var parts []string
		if q > 1 {
			parts = append(parts, belowThousand(q, true))
		}
		parts = append(parts, "mille")
		return append(parts, spellInt(r)...)
	}
	if n > 0 {
		return []string{belowThousand(n, false)}
	}
	return nil
}

// belowThousand spells 1..999. beforeMille suppresses the plural of "cent"
// and "quatre-vingt", which are invariable in front of "mille".
func belowThousand(n int64, beforeMille bool) string {
	h, r := n/100, n%100
	var parts []string
	switch {
	case h == 1:
		parts = append(parts, "cent")
	case h > 1:
		c := units[h] + " cent"
		if r == 0 && !beforeMille {
			c += "s"
		}
		parts = append(parts, c)
	}
	if r > 0 {
		parts = append(parts, belowHundred(r, !beforeMille))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64, final bool) string {
	if n < 20 {
		return units[n]
	}
	t, u := n/10, n%10
	switch t {
	case 7, 9:
		if t == 7 && u == 1 {
			return tens[t] + " et onze"
		}
		return tens[t] + "-" + units[10+u]
	case 8:
		if u == 0 {
			if final {
				return tens[t] + "s"
			}
			return tens[t]
		}
		return tens[t] + "-" + units[u]
	default:
		switch u {
		case 0:
			return tens[t]
		case 1:
			return tens[t] + " et un"
		}
		return tens[t] + "-" + units[u]
	}
}

// agree picks the singular below two: "zéro dinar", "un dinar", "deux dinars".
func agree(n int64, singular, plural string) string {
	if n < 2 {
		return singular
	}
	return plural
}

func startsWithVowel(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case 'a', 'e', 'i', 'o', 'u', 'y', 'h':
		return true
	}
	return false
}
