package charts

import (
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/theme"
)

// Tab ids, in registration order.
const (
	TabHome        = "home"
	TabTracks      = "tracks"
	TabAlbums      = "albums"
	TabArtists     = "artists"
	TabLeaderboard = "leaderboard"
)

// Tabs lists every tab id in registration order.
func Tabs() []string {
	return []string{TabHome, TabTracks, TabAlbums, TabArtists, TabLeaderboard}
}

// BuildFunc constructs one chart of a tab.
type BuildFunc func(t Target, data *models.ChartData, colors theme.ColorSet) (Chart, error)

// Definition describes one chart of a tab.
type Definition struct {
	Tab     string
	Name    string
	Anchor  string
	Kind    Kind
	Present func(*models.ChartData) bool
	Build   BuildFunc
}

// wrap keeps a typed nil pointer out of the [Chart] interface.
func wrap[C Chart](c C, err error) (Chart, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

var definitions = []Definition{
	{
		Tab: TabHome, Name: "decades", Anchor: "decades-chart", Kind: KindDonut,
		Present: func(d *models.ChartData) bool { return !d.Decades.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewDecadesChart(t, d.Decades, cs))
		},
	},
	{
		Tab: TabHome, Name: "heatmap", Anchor: "heatmap-chart", Kind: KindBubble,
		Present: func(d *models.ChartData) bool { return !d.Heatmap.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewHeatmapChart(t, d.Heatmap, cs))
		},
	},
	{
		Tab: TabTracks, Name: "tracks", Anchor: "tracks-chart", Kind: KindBar,
		Present: func(d *models.ChartData) bool { return !d.Tracks.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewBarChart(t, "Top Tracks", d.Tracks, cs, PlaysArtistTooltip))
		},
	},
	{
		Tab: TabTracks, Name: "recent", Anchor: "recent-chart", Kind: KindDonut,
		Present: func(d *models.ChartData) bool { return !d.Recent.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewDonutChart(t, "Recent Artists", d.Recent, cs, LabelTooltip))
		},
	},
	{
		Tab: TabAlbums, Name: "albums", Anchor: "albums-chart", Kind: KindBar,
		Present: func(d *models.ChartData) bool { return !d.Albums.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewBarChart(t, "Top Albums", d.Albums, cs, PlaysArtistTooltip))
		},
	},
	{
		Tab: TabArtists, Name: "artists", Anchor: "artists-chart", Kind: KindBar,
		Present: func(d *models.ChartData) bool { return !d.Artists.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewBarChart(t, "Top Artists", d.Artists, cs, PlaysTooltip))
		},
	},
	{
		Tab: TabLeaderboard, Name: "friends", Anchor: "friends-chart", Kind: KindGroupedBar,
		Present: func(d *models.ChartData) bool { return !d.Friends.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewFriendsChart(t, d.Friends, cs))
		},
	},
	{
		Tab: TabLeaderboard, Name: "world", Anchor: "world-chart", Kind: KindTreemap,
		Present: func(d *models.ChartData) bool { return !d.World.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewWorldChart(t, d.World, cs))
		},
	},
	{
		Tab: TabLeaderboard, Name: "past", Anchor: "past-chart", Kind: KindLine,
		Present: func(d *models.ChartData) bool { return !d.Past.Empty() },
		Build: func(t Target, d *models.ChartData, cs theme.ColorSet) (Chart, error) {
			return wrap(NewPastChart(t, d.Past, cs))
		},
	},
}

// Definitions returns every chart definition.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// ForTab returns the definitions of one tab in render order.
func ForTab(defs []Definition, tab string) []Definition {
	var out []Definition
	for _, d := range defs {
		if d.Tab == tab {
			out = append(out, d)
		}
	}
	return out
}

// Anchors lists every anchor id a surface must provide.
func Anchors() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = d.Anchor
	}
	return out
}
