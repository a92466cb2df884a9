package ui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"

	"github.com/desertthunder/scrobblex/internal/charts"
)

const (
	labelWidth   = 14
	heatmapCells = 5
)

// renderChart draws a mounted chart for the terminal. Bubble charts become a ranked list of
// their busiest cells, everything else a horizontal ntcharts bar chart.
func renderChart(s charts.Snippet, width int, p *Palette) string {
	var b strings.Builder
	b.WriteString(p.title.Render(s.Title))
	b.WriteString("\n")

	if len(s.Points) == 0 {
		b.WriteString(p.help.Render("no data"))
		return b.String()
	}

	if s.Kind == charts.KindBubble {
		b.WriteString(heatmapText(s.Points, p))
		return b.String()
	}
	b.WriteString(barText(s.Points, width, p))
	return b.String()
}

// barText groups points by label; each series of a label is one bar.
func barText(points []charts.Point, width int, p *Palette) string {
	var (
		labels []string
		series []string
		groups = make(map[string][]barchart.BarValue)
	)
	for _, pt := range points {
		if _, ok := groups[pt.Label]; !ok {
			labels = append(labels, pt.Label)
		}
		i := slices.Index(series, pt.Series)
		if i < 0 {
			series = append(series, pt.Series)
			i = len(series) - 1
		}
		groups[pt.Label] = append(groups[pt.Label], barchart.BarValue{
			Name:  pt.Series,
			Value: pt.Value,
			Style: p.bar(i),
		})
	}

	data := make([]barchart.BarData, len(labels))
	for i, l := range labels {
		data[i] = barchart.BarData{Label: truncate(l, labelWidth), Values: groups[l]}
	}

	height := len(labels)*(len(series)+1) + 1
	bc := barchart.New(max(width, labelWidth+10), height,
		barchart.WithDataSet(data),
		barchart.WithHorizontalBars(),
		barchart.WithStyles(p.help, p.text),
	)
	bc.Draw()

	out := bc.View()
	if len(series) > 1 {
		legend := make([]string, len(series))
		for i, name := range series {
			legend[i] = p.bar(i).Render("■ " + name)
		}
		out += "\n" + strings.Join(legend, "  ")
	}
	return out
}

// heatmapText lists the busiest (day, hour) cells with their tooltips.
func heatmapText(points []charts.Point, p *Palette) string {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b charts.Point) int {
		return cmp.Compare(b.Value, a.Value)
	})
	sorted = sorted[:min(heatmapCells, len(sorted))]

	top := sorted[0].Value
	var b strings.Builder
	for i, pt := range sorted {
		n := 1
		if top > 0 {
			n = max(1, int(pt.Value/top*20))
		}
		fmt.Fprintf(&b, "%-12s %s %s", pt.Label, p.bar(0).Render(strings.Repeat("█", n)), p.help.Render(pt.Tooltip))
		if i < len(sorted)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
