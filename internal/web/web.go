// Package web embeds the browser dashboard: its page templates and static assets.
//
// The page is a datastar document. Tab panels, the loader and the dropdown menus are driven by
// signals; tab buttons, cards and charts are patched in place by element id. Every chart anchor
// listed by [charts.Anchors] is rendered empty so the server can mount charts into it.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/theme"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Dropdown menu ids.
const (
	MenuPeriod = "period"
	MenuTheme  = "theme"
	MenuExport = "export"
)

// NoUserMessage is the form error shown for an unknown username.
const NoUserMessage = "No user exists with that username."

var tabLabels = map[string]string{
	charts.TabHome:        "Overview",
	charts.TabTracks:      "Tracks",
	charts.TabAlbums:      "Albums",
	charts.TabArtists:     "Artists",
	charts.TabLeaderboard: "Leaderboard",
}

// Menus lists the dropdown ids in page order.
func Menus() []string {
	return []string{MenuPeriod, MenuTheme, MenuExport}
}

// Tab is one tab button and its panel.
type Tab struct {
	ID      string
	Label   string
	Anchors []string
	Active  bool
	Border  string
}

// TabLabel returns the button text of a tab.
func TabLabel(id string) string {
	if l, ok := tabLabels[id]; ok {
		return l
	}
	return id
}

// Tabs returns every tab in registration order with its chart anchors.
func Tabs(active, border string) []Tab {
	defs := charts.Definitions()
	tabs := make([]Tab, 0, len(charts.Tabs()))
	for _, id := range charts.Tabs() {
		t := Tab{ID: id, Label: TabLabel(id), Active: id == active, Border: border}
		for _, d := range charts.ForTab(defs, id) {
			t.Anchors = append(t.Anchors, d.Anchor)
		}
		tabs = append(tabs, t)
	}
	return tabs
}

// MenuItem is one entry of a dropdown. Items with Href are links, the rest set a signal.
type MenuItem struct {
	Label string
	Value string
	Href  string
}

// Menu is a dropdown button and its items.
type Menu struct {
	ID    string
	Label string
	Items []MenuItem
	Theme theme.Descriptor
}

// BuildMenus returns the period, theme and export dropdowns.
func BuildMenus(d theme.Descriptor, period models.Period, formats []string) []Menu {
	periods := Menu{ID: MenuPeriod, Label: period.Label(), Theme: d}
	for _, p := range models.Periods() {
		periods.Items = append(periods.Items, MenuItem{Label: p.Label(), Value: string(p)})
	}

	themes := Menu{ID: MenuTheme, Label: "Theme: " + d.Name, Theme: d}
	for _, t := range theme.All() {
		themes.Items = append(themes.Items, MenuItem{Label: t.Name, Value: t.Key})
	}

	exports := Menu{ID: MenuExport, Label: "Export", Theme: d}
	for _, f := range formats {
		exports.Items = append(exports.Items, MenuItem{Label: strings.ToUpper(f), Value: f, Href: "/export?format=" + f})
	}

	return []Menu{periods, themes, exports}
}

// Page is the data of the index template.
type Page struct {
	Theme     theme.Descriptor
	Tabs      []Tab
	Menus     []Menu
	Username  string
	Period    models.Period
	Error     string
	Dashboard *models.Dashboard
	Signals   string // initial datastar signals as JSON
}

var funcs = template.FuncMap{
	"periodLabel": func(p models.Period) string { return p.Label() },
	"trend":       trend,
	"hours":       func(v float64) string { return fmt.Sprintf("%.1fh", v) },
}

// trend formats the change from previous to current, e.g. "+25%".
func trend(current, previous any) string {
	t := models.Trend(number(current), number(previous))
	switch {
	case t > 0:
		return fmt.Sprintf("+%.0f%%", t)
	case t < 0:
		return fmt.Sprintf("%.0f%%", t)
	default:
		return "±0%"
	}
}

func number(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return t, nil
}

// Static returns the static assets rooted so that "static/dashboard.css" resolves.
func Static() fs.FS {
	return staticFS
}

// Render executes the named template into a string.
func Render(t *template.Template, name string, data any) (string, error) {
	var b strings.Builder
	if err := t.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}
