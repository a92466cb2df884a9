package charts

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/theme"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	svgWidth  = 640
	svgHeight = 360
)

// TooltipFunc formats the tooltip of point i of a dataset.
type TooltipFunc func(ds *models.Dataset, i int) string

// SVGChart is a go-chart backed chart. It is drawn and mounted during construction.
type SVGChart struct {
	instance
	title    string
	dataset  *models.Dataset
	tooltip  TooltipFunc
	tooltips []string
	svg      []byte
}

// Tooltip returns the formatted tooltip of point i.
func (c *SVGChart) Tooltip(i int) string {
	if i < 0 || i >= len(c.tooltips) {
		return ""
	}
	return c.tooltips[i]
}

// SVG returns the rendered markup.
func (c *SVGChart) SVG() []byte { return c.svg }

func newSVGChart(t Target, kind Kind, title string, ds *models.Dataset, tooltip TooltipFunc) (*SVGChart, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if ds.Empty() {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingDataset, t.Name)
	}

	c := &SVGChart{instance: instance{target: t, kind: kind}, title: title, dataset: ds, tooltip: tooltip}
	c.tooltips = make([]string, ds.Len())
	for i := range c.tooltips {
		c.tooltips[i] = tooltip(ds, i)
	}
	return c, nil
}

// NewBarChart draws ds as a vertical bar chart.
func NewBarChart(t Target, title string, ds *models.Dataset, colors theme.ColorSet, tooltip TooltipFunc) (*SVGChart, error) {
	c, err := newSVGChart(t, KindBar, title, ds, tooltip)
	if err != nil {
		return nil, err
	}

	n := ds.Len()
	bars := make([]chart.Value, n)
	for i := 0; i < n; i++ {
		bars[i] = chart.Value{
			Value: ds.Data[i],
			Label: truncate(ds.Labels[i], 14),
			Style: chart.Style{FillColor: colors.BarFill, StrokeColor: colors.Accent, StrokeWidth: 1},
		}
	}

	top := ds.Max() * 1.1
	if top <= 0 {
		top = 1
	}

	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 14, FontColor: colors.Text},
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: colors.Background,
		},
		Canvas:   chart.Style{FillColor: colors.Background},
		Height:   svgHeight,
		Width:    svgWidth,
		BarWidth: max(12, (svgWidth-80)/(2*n)),
		Bars:     bars,
		XAxis:    chart.Style{FontSize: 9, FontColor: colors.Text},
		YAxis: chart.YAxis{
			Name:  "Plays",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			Style: chart.Style{FontSize: 9, FontColor: colors.Text},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", t.Name, err)
	}
	if err := c.mountSVG(buf.Bytes(), colors, []drawing.Color{colors.BarFill}); err != nil {
		return nil, err
	}
	return c, nil
}

// NewDonutChart draws ds as a donut, one slice per label.
func NewDonutChart(t Target, title string, ds *models.Dataset, colors theme.ColorSet, tooltip TooltipFunc) (*SVGChart, error) {
	c, err := newSVGChart(t, KindDonut, title, ds, tooltip)
	if err != nil {
		return nil, err
	}

	fills := colors.Fills()
	values := make([]chart.Value, ds.Len())
	for i := range values {
		values[i] = chart.Value{
			Value: ds.Data[i],
			Label: truncate(ds.Labels[i], 18),
			Style: chart.Style{FillColor: fills[i%len(fills)], FontColor: colors.Text, StrokeColor: colors.Background},
		}
	}

	graph := chart.DonutChart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 14, FontColor: colors.Text},
		Width:      svgHeight,
		Height:     svgHeight,
		Background: chart.Style{FillColor: colors.Background},
		Canvas:     chart.Style{FillColor: colors.Background},
		Values:     values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", t.Name, err)
	}
	if err := c.mountSVG(buf.Bytes(), colors, fills); err != nil {
		return nil, err
	}
	return c, nil
}

// drawn lists the dataset indices go-chart draws a shape for, in drawing order.
// Donuts skip slices without a positive value.
func (c *SVGChart) drawn() []int {
	var out []int
	for i, v := range c.dataset.Data {
		if c.kind == KindDonut && v <= 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (c *SVGChart) mountSVG(svg []byte, colors theme.ColorSet, dataFills []drawing.Color) error {
	c.svg = tagShapes(svg, dataFills, c.drawn(), c.tooltips)

	var b strings.Builder
	fmt.Fprintf(&b, `<div id="%s" class="chart" data-chart="%s" data-kind="%s">`, c.Anchor(), c.Name(), c.kind)
	b.Write(c.svg)
	b.WriteString(`<ul class="chart-tooltips">`)
	points := make([]Point, len(c.tooltips))
	for i, tip := range c.tooltips {
		points[i] = Point{Label: c.dataset.Labels[i], Value: c.dataset.Data[i], Tooltip: tip}
		fmt.Fprintf(&b, `<li data-point="%d" title="%s">%s</li>`, i, html.EscapeString(tip), html.EscapeString(c.dataset.Labels[i]))
	}
	b.WriteString(`</ul></div>`)

	var palette []string
	for _, f := range colors.Fills() {
		palette = append(palette, theme.Hex(f))
	}

	return c.mount(Snippet{Title: c.title, Element: b.String(), Points: points, Colors: palette})
}

// tagShapes marks the data shapes of a go-chart SVG with data-point and a <title> tooltip.
// A shape is a data shape when it is filled with one of dataFills; the k-th one found belongs to
// dataset index drawn[k]. A lone data point may come out as a circle in the default palette.
func tagShapes(svg []byte, dataFills []drawing.Color, drawn []int, tooltips []string) []byte {
	fills := make([]string, len(dataFills))
	for i, f := range dataFills {
		fills[i] = "fill:" + f.String() + `"`
	}

	var (
		out  bytes.Buffer
		rest = svg
		k    int
	)
	for k < len(drawn) {
		start, name := nextShape(rest)
		if start < 0 {
			break
		}
		end := bytes.Index(rest[start:], []byte("/>"))
		if end < 0 {
			break
		}
		end += start
		tag := rest[start:end]

		data := name == "circle" && len(drawn) == 1
		for _, f := range fills {
			if bytes.Contains(tag, []byte(f)) {
				data = true
				break
			}
		}

		out.Write(rest[:start])
		if !data {
			out.Write(rest[start : end+2])
			rest = rest[end+2:]
			continue
		}

		i := drawn[k]
		k++
		fmt.Fprintf(&out, `<%s data-point="%d"%s>`, name, i, tag[len(name)+1:])
		if i < len(tooltips) {
			fmt.Fprintf(&out, `<title>%s</title>`, html.EscapeString(tooltips[i]))
		}
		fmt.Fprintf(&out, `</%s>`, name)
		rest = rest[end+2:]
	}
	out.Write(rest)
	return out.Bytes()
}

// nextShape finds the first <path or <circle tag in b.
func nextShape(b []byte) (int, string) {
	p := bytes.Index(b, []byte("<path "))
	c := bytes.Index(b, []byte("<circle "))
	switch {
	case p < 0 && c < 0:
		return -1, ""
	case c < 0 || (p >= 0 && p < c):
		return p, "path"
	default:
		return c, "circle"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
