package models

import (
	"strconv"
	"strings"
	"time"
)

// ScrobbleDateLayout is the layout Last.fm uses for the "#text" of a scrobble date.
const ScrobbleDateLayout = "02 Jan 2006, 15:04"

// NowPlayingText replaces the date of a scrobble that is still playing.
const NowPlayingText = "Now Playing"

// UserInfo is the profile returned by user.getInfo.
type UserInfo struct {
	Name       string    `json:"name" yaml:"name"`
	RealName   string    `json:"real_name,omitempty" yaml:"real_name,omitempty"`
	URL        string    `json:"url" yaml:"url"`
	Country    string    `json:"country,omitempty" yaml:"country,omitempty"`
	Playcount  int       `json:"playcount" yaml:"playcount"`
	Registered time.Time `json:"registered" yaml:"registered"`
	Image      string    `json:"image,omitempty" yaml:"image,omitempty"`
}

// Artist is a ranked entry of user.getTopArtists.
type Artist struct {
	Rank      int    `json:"rank" yaml:"rank"`
	Name      string `json:"name" yaml:"name"`
	Playcount int    `json:"playcount" yaml:"playcount"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Track is a ranked entry of user.getTopTracks.
type Track struct {
	Rank      int    `json:"rank" yaml:"rank"`
	Name      string `json:"name" yaml:"name"`
	Artist    string `json:"artist" yaml:"artist"`
	Playcount int    `json:"playcount" yaml:"playcount"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Album is a ranked entry of user.getTopAlbums.
type Album struct {
	Rank      int    `json:"rank" yaml:"rank"`
	Name      string `json:"name" yaml:"name"`
	Artist    string `json:"artist" yaml:"artist"`
	Playcount int    `json:"playcount" yaml:"playcount"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Scrobble is one entry of user.getRecentTracks.
//
// PlayedAt is zero when NowPlaying is set.
type Scrobble struct {
	Track      string    `json:"track" yaml:"track"`
	Artist     string    `json:"artist" yaml:"artist"`
	Album      string    `json:"album" yaml:"album"`
	PlayedAt   time.Time `json:"played_at" yaml:"played_at"`
	NowPlaying bool      `json:"now_playing,omitempty" yaml:"now_playing,omitempty"`
	Image      string    `json:"image,omitempty" yaml:"image,omitempty"`
}

// DateText formats PlayedAt the way Last.fm does, or returns [NowPlayingText].
func (s Scrobble) DateText() string {
	if s.NowPlaying || s.PlayedAt.IsZero() {
		return NowPlayingText
	}
	return s.PlayedAt.UTC().Format(ScrobbleDateLayout)
}

// AlbumOrUnknown returns the album title, or "Unknown" when Last.fm sent none.
func (s Scrobble) AlbumOrUnknown() string {
	if s.Album == "" {
		return "Unknown"
	}
	return s.Album
}

// TrackInfo is the subset of track.getInfo used for decade bucketing.
type TrackInfo struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ReleaseDate string `json:"release_date"`
}

// ReleaseYear returns the last four-digit field of the album release date, e.g. 1999 for "6 Apr 1999, 00:00".
func (t TrackInfo) ReleaseYear() (int, bool) {
	fields := strings.FieldsFunc(t.ReleaseDate, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '/'
	})
	for i := len(fields) - 1; i >= 0; i-- {
		f := fields[i]
		if len(f) != 4 {
			continue
		}
		if y, err := strconv.Atoi(f); err == nil && y > 0 {
			return y, true
		}
	}
	return 0, false
}

// Decade floors a year to its decade.
func Decade(year int) int {
	return year / 10 * 10
}

// RecentQuery selects one page of user.getRecentTracks. Zero From/To leave the range open.
type RecentQuery struct {
	Page  int
	Limit int
	From  time.Time
	To    time.Time
}

// RecentPage is one page of recent scrobbles with Last.fm's paging attributes.
type RecentPage struct {
	Scrobbles  []Scrobble
	Page       int
	TotalPages int
	Total      int
}

// Last reports whether no further page follows.
func (p *RecentPage) Last(limit int) bool {
	if p == nil || len(p.Scrobbles) == 0 {
		return true
	}
	if p.TotalPages > 0 && p.Page >= p.TotalPages {
		return true
	}
	return limit > 0 && len(p.Scrobbles) < limit
}

// Session is the result of auth.getSession.
type Session struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}
