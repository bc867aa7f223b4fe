package compositor

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Measurer reports the rendered width of text, in document pixels, at the
// given font size.
type Measurer interface {
	Measure(text string, fontSize float64, bold bool) float64
}

// Fonts holds the parsed typefaces used for drawing and measuring. Parsed
// fonts are safe for concurrent use; faces are not, so a new face is built
// for every use.
type Fonts struct {
	Regular *truetype.Font
	Bold    *truetype.Font
}

// LoadFonts parses the given TrueType data. Nil data selects the Go fonts.
func LoadFonts(regular, bold []byte) (*Fonts, error) {
	if regular == nil {
		regular = goregular.TTF
	}
	if bold == nil {
		bold = gobold.TTF
	}
	r, err := truetype.Parse(regular)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	b, err := truetype.Parse(bold)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Fonts{Regular: r, Bold: b}, nil
}

// Face returns a new face. DPI is fixed at 72 so that one point is one pixel.
func (f *Fonts) Face(size float64, bold bool) font.Face {
	ttf := f.Regular
	if bold {
		ttf = f.Bold
	}
	return truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// Measure implements Measurer with the glyph advances of the typeface.
func (f *Fonts) Measure(text string, fontSize float64, bold bool) float64 {
	face := f.Face(fontSize, bold)
	defer face.Close()
	adv := font.MeasureString(face, text)
	return float64(adv) / 64
}
