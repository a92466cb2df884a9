package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/desertthunder/scrobblex/internal/theme"
)

const (
	errColor  = "#FF5555"
	helpColor = "#626262"
)

// struct Palette is the terminal stylesheet of one dashboard theme, built from its chart colors
type Palette struct {
	title     lipgloss.Style
	text      lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	card      lipgloss.Style
	selected  lipgloss.Style
	err       lipgloss.Style
	help      lipgloss.Style
	bars      []lipgloss.Style
}

func NewPalette(d theme.Descriptor) *Palette {
	cs := d.Colors()
	accent := hex(cs.Accent)

	p := &Palette{
		title:     NewBold(accent),
		text:      NewStyle(hex(cs.Text)),
		tab:       NewStyle(hex(cs.Text)).Faint(true).Padding(0, 1),
		activeTab: NewBold(accent).Padding(0, 1).Underline(true),
		card:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(accent)).Padding(0, 1),
		selected:  NewBold(accent).Reverse(true),
		err:       NewBold(errColor),
		help:      NewEm(helpColor),
	}
	p.bars = append(p.bars, NewStyle(accent))
	for _, s := range cs.Secondary[1:] {
		p.bars = append(p.bars, NewStyle(hex(s.Solid)))
	}
	return p
}

// bar returns the style of the i-th series, cycling through the theme swatches.
func (p *Palette) bar(i int) lipgloss.Style {
	return p.bars[i%len(p.bars)]
}

// hex drops the alpha channel, which terminals cannot show.
func hex(c drawing.Color) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
