// Package compositor draws the strings of a check over its bank template.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp" // registers the webp template decoder

	"imprimecheque/internal/core"
	"imprimecheque/internal/layout"
)

// Format is the encoding of a rendered document.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// ParseFormat accepts png, jpeg and jpg, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

// Ext is the file extension, without the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return "png"
}

// ContentType is the MIME type of the encoded document.
func (f Format) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Fields are the materialized strings of one check.
type Fields struct {
	City          string
	Date          string
	Payee         string
	Amount        string
	AmountInWords string
}

// Placement is one string anchored at its top-left corner.
type Placement struct {
	Field    string
	Text     string
	X, Y     float64
	FontSize float64
	Bold     bool
}

type Options struct {
	Format      Format
	JPEGQuality int
	// Measurer used for wrapping. Defaults to the drawing fonts.
	Measurer Measurer
	Fonts    *Fonts
}

// Compositor renders documents. It holds no per-document state and may be
// shared between goroutines.
type Compositor struct {
	fonts    *Fonts
	measurer Measurer
	format   Format
	quality  int
}

func New(opts Options) (*Compositor, error) {
	fonts := opts.Fonts
	if fonts == nil {
		var err error
		if fonts, err = LoadFonts(nil, nil); err != nil {
			return nil, err
		}
	}
	measurer := opts.Measurer
	if measurer == nil {
		measurer = fonts
	}
	format := opts.Format
	if format == "" {
		format = PNG
	}
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &Compositor{fonts: fonts, measurer: measurer, format: format, quality: quality}, nil
}

func (c *Compositor) Format() Format {
	return c.format
}

// Compose computes where every string goes. The amount in words is split
// over two lines only when the layout has a second line; otherwise it is
// placed whole, whatever its width.
func (c *Compositor) Compose(l core.FieldLayout, f Fields) ([]Placement, error) {
	return Compose(l, f, c.measurer)
}

// Compose is the measurer-parameterized form of Compositor.Compose.
func Compose(l core.FieldLayout, f Fields, m Measurer) ([]Placement, error) {
	if err := layout.Validate(l); err != nil {
		return nil, err
	}

	words, line2 := f.AmountInWords, ""
	if l.AmountInWordsLine2 != nil {
		words, line2 = SplitAmountInWords(f.AmountInWords, l.AmountInWords.WidthOr(math.Inf(1)), l.AmountInWords.FontSize, m)
	}
	texts := map[string]string{
		core.FieldCity:               f.City,
		core.FieldDate:               f.Date,
		core.FieldPayee:              f.Payee,
		core.FieldAmount:             f.Amount,
		core.FieldAmountInWords:      words,
		core.FieldAmountInWordsLine2: line2,
	}

	placements := make([]Placement, 0, 6)
	for _, np := range l.Fields() {
		if np.Position == nil {
			continue
		}
		placements = append(placements, Placement{
			Field:    np.Name,
			Text:     texts[np.Name],
			X:        np.Position.X,
			Y:        np.Position.Y,
			FontSize: np.Position.FontSize,
			Bold:     np.Name == core.FieldAmount,
		})
	}
	return placements, nil
}

// Render draws the fields over template and encodes the result.
// The template is PNG, JPEG or WebP bytes already fetched by the caller.
func (c *Compositor) Render(l core.FieldLayout, f Fields, template []byte) ([]byte, error) {
	if len(template) == 0 {
		return nil, core.ErrMissingTemplate
	}
	placements, err := c.Compose(l, f)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("%w: decode template: %v", core.ErrMissingTemplate, err)
	}

	out := c.Draw(img, placements)

	var buf bytes.Buffer
	switch c.format {
	case JPEG:
		err = imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(c.quality))
	default:
		err = imaging.Encode(&buf, out, imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// Draw paints placements over a copy of img.
func (c *Compositor) Draw(img image.Image, placements []Placement) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(color.Black)
	for _, p := range placements {
		if p.Text == "" {
			continue
		}
		face := c.fonts.Face(p.FontSize, p.Bold)
		dc.SetFontFace(face)
		// anchor (0, 1): x is the left edge, y the top of the line
		dc.DrawStringAnchored(p.Text, p.X, p.Y, 0, 1)
		face.Close()
	}
	return dc.Image()
}
