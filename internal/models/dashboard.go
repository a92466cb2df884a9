package models

import (
	"time"
)

// WeekMetrics summarizes one week of listening.
type WeekMetrics struct {
	Artists        int     `json:"artists" yaml:"artists"`
	Tracks         int     `json:"tracks" yaml:"tracks"`
	Scrobbles      int     `json:"scrobbles" yaml:"scrobbles"`
	ListeningHours float64 `json:"listening_time" yaml:"listening_time"`
	AvgScrobbles   float64 `json:"avg_scrobbles" yaml:"avg_scrobbles"`
	MostActiveDay  string  `json:"most_active_day" yaml:"most_active_day"`
	MostActiveN    int     `json:"most_active_scrobbles" yaml:"most_active_scrobbles"`
}

// WeeklyComparison compares the current week (Monday 00:00 UTC to now) with the seven days before it.
type WeeklyComparison struct {
	Current        WeekMetrics `json:"current" yaml:"current"`
	Previous       WeekMetrics `json:"previous" yaml:"previous"`
	CurrentPeriod  string      `json:"current_period" yaml:"current_period"`
	PreviousPeriod string      `json:"previous_period" yaml:"previous_period"`
}

// Trend returns the relative change of a current value over a previous one, in percent.
func Trend(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / previous * 100
}

// Dashboard is everything one page of the dashboard shows.
type Dashboard struct {
	Username    string            `json:"username" yaml:"username"`
	Period      Period            `json:"period" yaml:"period"`
	User        *UserInfo         `json:"user,omitempty" yaml:"user,omitempty"`
	NowPlaying  *Scrobble         `json:"now_playing,omitempty" yaml:"now_playing,omitempty"`
	TopTracks   []Track           `json:"top_tracks" yaml:"top_tracks"`
	TopAlbums   []Album           `json:"top_albums" yaml:"top_albums"`
	TopArtists  []Artist          `json:"top_artists" yaml:"top_artists"`
	Recent      []Scrobble        `json:"recent_tracks" yaml:"recent_tracks"`
	Weekly      *WeeklyComparison `json:"weekly_comparison,omitempty" yaml:"weekly_comparison,omitempty"`
	Charts      ChartData         `json:"chart_data" yaml:"chart_data"`
	GeneratedAt time.Time         `json:"generated_at" yaml:"generated_at"`
}
