package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/models"
)

var (
	_ list.Item = trackItem{}
	_ list.Item = albumItem{}
	_ list.Item = artistItem{}
)

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return fmt.Sprintf("%d. %s", i.track.Rank, i.track.Name) }
func (i trackItem) Description() string {
	return fmt.Sprintf("%s • %d plays", i.track.Artist, i.track.Playcount)
}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Name }
func (i albumItem) Title() string       { return fmt.Sprintf("%d. %s", i.album.Rank, i.album.Name) }
func (i albumItem) Description() string {
	return fmt.Sprintf("%s • %d plays", i.album.Artist, i.album.Playcount)
}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return fmt.Sprintf("%d. %s", i.artist.Rank, i.artist.Name) }
func (i artistItem) Description() string { return fmt.Sprintf("%d plays", i.artist.Playcount) }

// topItems returns the top table shown under the charts of tab, if it has one.
func topItems(d *models.Dashboard, tab string) (string, []list.Item) {
	if d == nil {
		return "", nil
	}

	var items []list.Item
	switch tab {
	case charts.TabTracks:
		for _, t := range d.TopTracks {
			items = append(items, trackItem{track: t})
		}
		return "Top Tracks", items
	case charts.TabAlbums:
		for _, a := range d.TopAlbums {
			items = append(items, albumItem{album: a})
		}
		return "Top Albums", items
	case charts.TabArtists:
		for _, a := range d.TopArtists {
			items = append(items, artistItem{artist: a})
		}
		return "Top Artists", items
	default:
		return "", nil
	}
}

// newTopLists builds a list for every tab that has a top table.
func newTopLists(d *models.Dashboard, width, height int) map[string]list.Model {
	lists := make(map[string]list.Model)
	for _, tab := range charts.Tabs() {
		title, items := topItems(d, tab)
		if len(items) == 0 {
			continue
		}
		l := list.New(items, list.NewDefaultDelegate(), width, height)
		l.Title = title
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(false)
		lists[tab] = l
	}
	return lists
}
