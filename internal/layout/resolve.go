// Package layout resolves the active field positions for a bank and user.
package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"imprimecheque/internal/core"
)

// Resolve merges override over the bank default field by field. The result
// shares no pointers with its inputs. A nil override yields a copy of the
// default.
func Resolve(bankDefault core.FieldLayout, override *core.FieldLayout) core.FieldLayout {
	var o core.FieldLayout
	if override != nil {
		o = *override
	}
	return core.FieldLayout{
		City:               pick(o.City, bankDefault.City),
		Date:               pick(o.Date, bankDefault.Date),
		Payee:              pick(o.Payee, bankDefault.Payee),
		Amount:             pick(o.Amount, bankDefault.Amount),
		AmountInWords:      pick(o.AmountInWords, bankDefault.AmountInWords),
		AmountInWordsLine2: pick(o.AmountInWordsLine2, bankDefault.AmountInWordsLine2),
	}
}

func pick(override, fallback *core.Position) *core.Position {
	if override != nil {
		return clone(override)
	}
	return clone(fallback)
}

func clone(p *core.Position) *core.Position {
	if p == nil {
		return nil
	}
	c := *p
	if p.Width != nil {
		w := *p.Width
		c.Width = &w
	}
	return &c
}

// Validate fails with core.ErrMissingLayout when a mandatory field of a
// resolved layout has no position.
func Validate(l core.FieldLayout) error {
	if missing := l.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: no position for %s", core.ErrMissingLayout, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateDefault checks a bank default layout: it must be complete and
// every position must be drawable.
func ValidateDefault(l core.FieldLayout) error {
	if err := Validate(l); err != nil {
		return err
	}
	return ValidatePositions(l)
}

// ValidatePositions checks the positions that are present. Coordinates and
// widths cannot be negative and font sizes must be positive.
func ValidatePositions(l core.FieldLayout) error {
	var errs []string
	for _, f := range l.Fields() {
		p := f.Position
		if p == nil {
			continue
		}
		if p.X < 0 || p.Y < 0 {
			errs = append(errs, fmt.Sprintf("%s: negative coordinates", f.Name))
		}
		if p.FontSize <= 0 {
			errs = append(errs, fmt.Sprintf("%s: font size must be positive", f.Name))
		}
		if p.Width != nil && *p.Width < 0 {
			errs = append(errs, fmt.Sprintf("%s: negative width", f.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", core.ErrInvalidPosition, strings.Join(errs, "; "))
	}
	return nil
}

// Parse decodes a flat field → position JSON object. Unknown keys are
// rejected.
func Parse(data []byte) (core.FieldLayout, error) {
	var l core.FieldLayout
	if len(bytes.TrimSpace(data)) == 0 {
		return l, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&l); err != nil {
		return core.FieldLayout{}, fmt.Errorf("parse layout: %w", err)
	}
	return l, nil
}

// Marshal encodes a layout with absent fields omitted.
func Marshal(l core.FieldLayout) ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal layout: %w", err)
	}
	return data, nil
}
