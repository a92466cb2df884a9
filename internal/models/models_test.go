package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/scrobblex/internal/shared"
)

func TestDatasets(t *testing.T) {
	t.Run("dataset empty", func(t *testing.T) {
		tc := []struct {
			name string
			ds   *Dataset
			want bool
		}{
			{"nil", nil, true},
			{"no labels", &Dataset{Data: []float64{1}}, true},
			{"no data", &Dataset{Labels: []string{"a"}}, true},
			{"populated", &Dataset{Labels: []string{"a"}, Data: []float64{1}}, false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.ds.Empty(); got != tt.want {
					t.Errorf("Empty() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("dataset accessors", func(t *testing.T) {
		ds := &Dataset{Labels: []string{"a", "b", "c"}, Data: []float64{3, 9}, Artists: []string{"x"}}

		if ds.Len() != 2 {
			t.Errorf("expected len 2, got %d", ds.Len())
		}
		if ds.Max() != 9 {
			t.Errorf("expected max 9, got %v", ds.Max())
		}
		if ds.Artist(0) != "x" || ds.Artist(1) != "" || ds.Artist(-1) != "" {
			t.Error("unexpected artist lookup")
		}
	})

	t.Run("HeatmapDataset empty", func(t *testing.T) {
		var nilHeatmap *HeatmapDataset
		if !nilHeatmap.Empty() {
			t.Error("nil heatmap should be empty")
		}

		h := &HeatmapDataset{Days: []string{"Monday"}, Hours: []int{9}, Plays: []float64{2}}
		if h.Empty() {
			t.Error("populated heatmap should not be empty")
		}
	})

	t.Run("SeriesDataset", func(t *testing.T) {
		s := &SeriesDataset{
			Categories: []string{"This Week", "Last Month"},
			Series: []Series{
				{Name: "Tracks", Data: []float64{10, 40}},
				{Name: "Albums", Data: []float64{3, 8}},
				{Name: "Artists"},
			},
		}
		if s.Empty() {
			t.Error("series dataset should not be empty")
		}
		if s.Total(1) != 48 {
			t.Errorf("expected total 48, got %v", s.Total(1))
		}

		empty := &SeriesDataset{Categories: []string{"a"}, Series: []Series{{Name: "Tracks"}}}
		if !empty.Empty() {
			t.Error("series dataset with no values should be empty")
		}
	})
}

func TestScrobble(t *testing.T) {
	t.Run("DateText", func(t *testing.T) {
		s := Scrobble{Track: "Song", Artist: "Band", PlayedAt: time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)}
		if got := s.DateText(); got != "05 Mar 2024, 14:07" {
			t.Errorf("unexpected date text %q", got)
		}

		s.NowPlaying = true
		if got := s.DateText(); got != NowPlayingText {
			t.Errorf("expected %q, got %q", NowPlayingText, got)
		}
	})

	t.Run("AlbumOrUnknown", func(t *testing.T) {
		if got := (Scrobble{}).AlbumOrUnknown(); got != "Unknown" {
			t.Errorf("expected Unknown, got %q", got)
		}
	})
}

func TestReleaseYear(t *testing.T) {
	tc := []struct {
		date   string
		want   int
		wantOK bool
	}{
		{"    6 Apr 1999, 00:00", 1999, true},
		{"1987", 1987, true},
		{"2011-05-03", 2011, true},
		{"", 0, false},
		{"unknown", 0, false},
	}

	for _, tt := range tc {
		t.Run(tt.date, func(t *testing.T) {
			got, ok := TrackInfo{ReleaseDate: tt.date}.ReleaseYear()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ReleaseYear() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if Decade(1999) != 1990 || Decade(2000) != 2000 {
		t.Error("unexpected decade bucketing")
	}
}

func TestParsePeriod(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		for _, p := range Periods() {
			got, err := ParsePeriod(string(p))
			if err != nil || got != p {
				t.Errorf("ParsePeriod(%q) = %q, %v", p, got, err)
			}
		}
	})

	t.Run("empty defaults to overall", func(t *testing.T) {
		got, err := ParsePeriod("")
		if err != nil || got != PeriodOverall {
			t.Errorf("expected overall, got %q, %v", got, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParsePeriod("7days")
		if !errors.Is(err, shared.ErrInvalidPeriod) {
			t.Fatalf("expected ErrInvalidPeriod, got %v", err)
		}
	})

	if Period3Month.Label() != "Last 3 Months" {
		t.Errorf("unexpected label %q", Period3Month.Label())
	}
}

func TestEntities(t *testing.T) {
	t.Run("profile", func(t *testing.T) {
		p := ProfileFromUserInfo(UserInfo{Name: "rj", Playcount: 1200, Country: "UK"})
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
		if p.Theme() != "black" || p.Country() != "UK" {
			t.Errorf("unexpected profile fields: %s %s", p.Theme(), p.Country())
		}

		if err := NewProfile(0, " ").Validate(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("CachedScrobble", func(t *testing.T) {
		c := NewCachedScrobble(0, "p1", Scrobble{Track: "Song", Artist: "Band", NowPlaying: true})
		if err := c.Validate(); err == nil {
			t.Error("now playing scrobble should not validate")
		}
		if c.TrackKey() != "song|band" {
			t.Errorf("unexpected key %q", c.TrackKey())
		}
	})

	t.Run("snapshot", func(t *testing.T) {
		now := time.Now()
		s := NewSnapshot(0, "p1", Period7Day, []byte("{}"), now.Add(-10*time.Minute))
		if err := s.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
		if !s.Fresh(now, 15*time.Minute) || s.Fresh(now, 5*time.Minute) {
			t.Error("unexpected freshness")
		}
	})

	t.Run("ExportJob", func(t *testing.T) {
		j := NewExportJob(0, "p1", "csv")
		j.Start(time.Now())
		if j.Status() != ExportRunning || j.StartedAt() == nil {
			t.Fatal("job should be running")
		}

		j.Finish(time.Now(), errors.New("disk full"))
		if j.Status() != ExportFailed || j.ErrorMessage() != "disk full" {
			t.Errorf("unexpected job state %s %q", j.Status(), j.ErrorMessage())
		}

		j.SetStatus("bogus")
		if err := j.Validate(); err == nil {
			t.Error("unknown status should not validate")
		}
	})

	t.Run("trend", func(t *testing.T) {
		if Trend(15, 10) != 50 || Trend(0, 0) != 0 || Trend(5, 0) != 100 {
			t.Error("unexpected trend")
		}
	})
}
