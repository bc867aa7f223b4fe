package core

// Field names as they appear in serialized layouts.
const (
	FieldCity               = "city"
	FieldDate               = "date"
	FieldPayee              = "payee"
	FieldAmount             = "amount"
	FieldAmountInWords      = "amountInWords"
	FieldAmountInWordsLine2 = "amountInWordsLine2"
)

// Position anchors a rendered string in document pixel space. Width bounds
// wrapping and is only meaningful for text that may be split.
type Position struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	FontSize float64  `json:"fontSize"`
	Width    *float64 `json:"width,omitempty"`
}

// FieldLayout maps the six renderable fields of a check to their positions.
// A nil field is absent: bank defaults must carry the five mandatory fields,
// calibration overrides may carry any subset.
type FieldLayout struct {
	City               *Position `json:"city,omitempty"`
	Date               *Position `json:"date,omitempty"`
	Payee              *Position `json:"payee,omitempty"`
	Amount             *Position `json:"amount,omitempty"`
	AmountInWords      *Position `json:"amountInWords,omitempty"`
	AmountInWordsLine2 *Position `json:"amountInWordsLine2,omitempty"`
}

// NamedPosition pairs a field name with its position.
type NamedPosition struct {
	Name     string
	Position *Position
}

// Fields lists the six fields in rendering order.
func (l FieldLayout) Fields() []NamedPosition {
	return []NamedPosition{
		{FieldCity, l.City},
		{FieldDate, l.Date},
		{FieldPayee, l.Payee},
		{FieldAmount, l.Amount},
		{FieldAmountInWords, l.AmountInWords},
		{FieldAmountInWordsLine2, l.AmountInWordsLine2},
	}
}

// Missing returns the mandatory fields that have no position.
func (l FieldLayout) Missing() []string {
	var missing []string
	for _, f := range l.Fields() {
		if f.Name == FieldAmountInWordsLine2 {
			continue
		}
		if f.Position == nil {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// IsEmpty reports whether no field is set.
func (l FieldLayout) IsEmpty() bool {
	for _, f := range l.Fields() {
		if f.Position != nil {
			return false
		}
	}
	return true
}

// WidthOr returns the wrapping width, or fallback when none is set.
func (p Position) WidthOr(fallback float64) float64 {
	if p.Width == nil {
		return fallback
	}
	return *p.Width
}
