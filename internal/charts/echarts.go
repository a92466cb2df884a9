package charts

import (
	"fmt"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/theme"
)

type snippetRenderer interface {
	RenderSnippet() render.ChartSnippet
}

// EChart is a go-echarts backed chart. Construction only prepares its options; nothing is
// mounted until [EChart.Render].
type EChart struct {
	instance
	title  string
	chart  snippetRenderer
	points []Point
	colors []string
}

// Render mounts the chart into its anchor.
func (c *EChart) Render() error {
	if c.mounted {
		return nil
	}
	s := c.chart.RenderSnippet()
	el := fmt.Sprintf(`<div id="%s" class="chart" data-chart="%s" data-kind="%s">%s</div>`, c.Anchor(), c.Name(), c.kind, s.Element)
	return c.mount(Snippet{Title: c.title, Element: el, Script: scriptBody(s.Script), Points: c.points, Colors: c.colors})
}

// Rendered reports whether Render has mounted the chart.
func (c *EChart) Rendered() bool { return c.mounted }

// Points returns the data the chart was built from, with formatted tooltips.
func (c *EChart) Points() []Point { return c.points }

func newEChart(t Target, kind Kind, title string, empty bool) (*EChart, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if empty {
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingDataset, t.Name)
	}
	return &EChart{instance: instance{target: t, kind: kind}, title: title}, nil
}

func baseOptions(t Target, title string, colors theme.ColorSet, palette []string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			ChartID:         canvasID(t.Anchor),
			Width:           "100%",
			Height:          "360px",
			BackgroundColor: theme.CSS(colors.Background),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			TitleStyle: &opts.TextStyle{Color: theme.CSS(colors.Text)},
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Top:       "bottom",
			TextStyle: &opts.TextStyle{Color: theme.CSS(colors.Text)},
		}),
		charts.WithColorsOpts(opts.Colors(palette)),
	}
}

func axisOptions(colors theme.ColorSet) (opts.AxisLabel, opts.SplitLine) {
	label := opts.AxisLabel{Color: theme.CSS(colors.Text)}
	grid := opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: theme.CSS(colors.Grid)}}
	return label, grid
}

func fillPalette(colors theme.ColorSet) []string {
	out := make([]string, 0, len(colors.Secondary))
	for _, f := range colors.Fills() {
		out = append(out, theme.CSS(f))
	}
	return out
}

// seriesPalette is accent then the first two grays, one per leaderboard series.
func seriesPalette(colors theme.ColorSet) []string {
	return []string{theme.CSS(colors.Accent), theme.CSS(colors.Secondary[1].Solid), theme.CSS(colors.Secondary[2].Solid)}
}

// NewDecadesChart prepares the decades donut.
func NewDecadesChart(t Target, ds *models.Dataset, colors theme.ColorSet) (*EChart, error) {
	c, err := newEChart(t, KindDonut, "Top Decades", ds.Empty())
	if err != nil {
		return nil, err
	}

	c.colors = fillPalette(colors)
	pie := charts.NewPie()
	pie.SetGlobalOptions(append(baseOptions(t, c.title, colors, c.colors),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: "{b}: {c}"}),
	)...)

	items := make([]opts.PieData, ds.Len())
	for i := range items {
		items[i] = opts.PieData{Name: ds.Labels[i], Value: ds.Data[i]}
		c.points = append(c.points, Point{Label: ds.Labels[i], Value: ds.Data[i], Tooltip: LabelTooltip(ds, i)})
	}
	pie.AddSeries("Decades", items, charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "65%"}}))

	c.chart = pie
	return c, nil
}

// NewHeatmapChart prepares the listening heatmap as a bubble chart: x is the hour, y the day
// (Sunday first) and the bubble size is plays times [BubbleScale].
func NewHeatmapChart(t Target, ds *models.HeatmapDataset, colors theme.ColorSet) (*EChart, error) {
	c, err := newEChart(t, KindBubble, "Listening Heatmap", ds.Empty())
	if err != nil {
		return nil, err
	}

	c.colors = []string{theme.CSS(colors.Secondary[0].Fill)}
	label, grid := axisOptions(colors)
	hourLabel := label
	hourLabel.Formatter = "{value}:00"

	sc := charts.NewScatter()
	sc.SetGlobalOptions(append(baseOptions(t, c.title, colors, c.colors),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: opts.FuncOpts(jsBubble)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Hour", Min: 0, Max: 23, AxisLabel: &hourLabel}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: Days, AxisLabel: &label, SplitLine: &grid}),
	)...)

	var data []opts.ScatterData
	for i := 0; i < ds.Len(); i++ {
		day := DayIndex(ds.Days[i])
		if day < 0 {
			continue
		}
		z := ds.Plays[i] * BubbleScale
		data = append(data, opts.ScatterData{
			Value:      []interface{}{ds.Hours[i], day, z},
			SymbolSize: int(min(z, 60)),
		})
		c.points = append(c.points, Point{
			Label:   DayLabel(day) + " " + HourLabel(ds.Hours[i]),
			Series:  DayLabel(day),
			Value:   ds.Plays[i],
			Tooltip: BubblePlays(z),
		})
	}
	sc.AddSeries("Plays", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: c.colors[0]}))

	c.chart = sc
	return c, nil
}

// NewFriendsChart prepares the leaderboard grouped bar chart.
func NewFriendsChart(t Target, ds *models.SeriesDataset, colors theme.ColorSet) (*EChart, error) {
	c, err := newEChart(t, KindGroupedBar, "Friends Leaderboard", ds.Empty())
	if err != nil {
		return nil, err
	}

	c.colors = seriesPalette(colors)
	label, grid := axisOptions(colors)

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(baseOptions(t, c.title, colors, c.colors),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: opts.FuncOpts(jsSeriesScrobbles)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &label}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Scrobbles", AxisLabel: &label, SplitLine: &grid}),
	)...)
	bar.SetXAxis(ds.Categories)

	for i, series := range ds.Series {
		data := make([]opts.BarData, len(series.Data))
		for j, v := range series.Data {
			data[j] = opts.BarData{Value: v}
			c.points = append(c.points, Point{Label: category(ds, j), Series: series.Name, Value: v, Tooltip: ScrobblesTooltip(v)})
		}
		bar.AddSeries(series.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: c.colors[i%len(c.colors)]}))
	}

	c.chart = bar
	return c, nil
}

// NewWorldChart prepares the treemap of top artists against the global average.
func NewWorldChart(t Target, ds *models.Dataset, colors theme.ColorSet) (*EChart, error) {
	c, err := newEChart(t, KindTreemap, "World Leaderboard", ds.Empty())
	if err != nil {
		return nil, err
	}

	c.colors = fillPalette(colors)
	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(append(baseOptions(t, c.title, colors, c.colors),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: opts.FuncOpts(jsScrobbles)}),
	)...)

	nodes := make([]opts.TreeMapNode, ds.Len())
	for i := range nodes {
		nodes[i] = opts.TreeMapNode{Name: ds.Labels[i], Value: int(ds.Data[i])}
		c.points = append(c.points, Point{Label: ds.Labels[i], Value: ds.Data[i], Tooltip: ScrobblesTooltip(ds.Data[i])})
	}
	tm.AddSeries("Scrobbles", nodes)

	c.chart = tm
	return c, nil
}

// NewPastChart prepares the smoothed line comparing this week with last month.
func NewPastChart(t Target, ds *models.SeriesDataset, colors theme.ColorSet) (*EChart, error) {
	c, err := newEChart(t, KindLine, "This Week vs Last Month", ds.Empty())
	if err != nil {
		return nil, err
	}

	c.colors = seriesPalette(colors)
	label, grid := axisOptions(colors)

	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOptions(t, c.title, colors, c.colors),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: opts.FuncOpts(jsSeriesScrobbles)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &label}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Scrobbles", AxisLabel: &label, SplitLine: &grid}),
	)...)
	line.SetXAxis(ds.Categories)

	for i, series := range ds.Series {
		data := make([]opts.LineData, len(series.Data))
		for j, v := range series.Data {
			data[j] = opts.LineData{Value: v}
			c.points = append(c.points, Point{Label: category(ds, j), Series: series.Name, Value: v, Tooltip: ScrobblesTooltip(v)})
		}
		line.AddSeries(series.Name, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c.colors[i%len(c.colors)]}),
		)
	}

	c.chart = line
	return c, nil
}

func category(ds *models.SeriesDataset, i int) string {
	if i < len(ds.Categories) {
		return ds.Categories[i]
	}
	return ""
}

// canvasID turns an anchor into a JS identifier; go-echarts declares goecharts_<id> with it.
func canvasID(anchor string) string {
	return strings.ReplaceAll(anchor, "-", "_") + "_canvas"
}

// scriptBody strips the <script> wrapper go-echarts puts around its snippet script and wraps
// the rest in a block, so its let declarations can run again when the chart is remounted.
func scriptBody(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "<script"); i >= 0 {
		if j := strings.Index(s[i:], ">"); j >= 0 {
			s = s[i+j+1:]
		}
	}
	if i := strings.LastIndex(s, "</script>"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "{\n" + s + "\n}"
}
