package theme

import (
	"fmt"
	"strconv"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	secondaryAlpha uint8 = 0xCC
	barAlpha       uint8 = 0x99
	gridAlpha      uint8 = 0x33
)

var grays = []string{"#6b7280", "#9ca3af", "#d1d5db", "#e5e7eb"}

// Swatch is a solid color and its reduced-opacity fill variant.
type Swatch struct {
	Solid drawing.Color
	Fill  drawing.Color
}

// ColorSet is the palette charts are drawn with.
type ColorSet struct {
	Background drawing.Color
	Text       drawing.Color
	Accent     drawing.Color
	BarFill    drawing.Color
	Grid       drawing.Color
	Secondary  [5]Swatch
}

// Colors derives the chart palette of d.
func (d Descriptor) Colors() ColorSet {
	cs := ColorSet{
		Background: d.ChartBackground,
		Text:       d.ChartText,
		Accent:     d.ChartAccent,
		BarFill:    d.ChartAccent.WithAlpha(barAlpha),
		Grid:       d.ChartText.WithAlpha(gridAlpha),
	}
	cs.Secondary[0] = Swatch{Solid: d.ChartAccent, Fill: d.ChartAccent.WithAlpha(secondaryAlpha)}
	for i, hex := range grays {
		c := drawing.ColorFromHex(hex[1:])
		cs.Secondary[i+1] = Swatch{Solid: c, Fill: c.WithAlpha(secondaryAlpha)}
	}
	return cs
}

// Fills returns the fill variant of every secondary color.
func (cs ColorSet) Fills() []drawing.Color {
	out := make([]drawing.Color, len(cs.Secondary))
	for i, s := range cs.Secondary {
		out[i] = s.Fill
	}
	return out
}

// Hex formats c as #rrggbb, or #rrggbbaa when it is not opaque.
func Hex(c drawing.Color) string {
	if c.A == 0xFF {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// CSS formats c as an rgba() expression.
func CSS(c drawing.Color) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(float64(c.A)/255, 'f', -1, 32))
}
