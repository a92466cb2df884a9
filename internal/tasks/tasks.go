// package tasks implements the aggregation of Last.fm listening data into dashboard datasets.
//
// The core abstraction is Engine, which builds dashboards and syncs scrobble history.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/services"
	"github.com/desertthunder/scrobblex/internal/shared"
)

const (
	// LeaderboardLimit is the size of the all-time top lists the leaderboard sums.
	LeaderboardLimit = 50
	// DecadeLimit is how many top tracks are resolved to a release decade.
	DecadeLimit = 10
	// MaxPageSize is the largest page user.getRecentTracks serves.
	MaxPageSize = 200

	minutesPerScrobble = 3.5
	dayLabel           = "Jan 02"
)

// Friend placeholders of the friends leaderboard, in display order.
var friendNames = []string{"Friend1", "Friend2", "Friend3"}

// friendFactors scale the user's track, album and artist totals for each friend placeholder.
var friendFactors = [3][3]float64{
	{0.8, 0.6, 1.2},
	{0.9, 0.7, 1.1},
	{0.85, 0.65, 1.15},
}

// Engine defines the dashboard aggregation operations.
type Engine interface {
	// Build fetches everything the dashboard shows for user over period.
	Build(ctx context.Context, progress chan<- ProgressUpdate, user string, period models.Period) (*models.Dashboard, error)

	// Sync pages scrobbles newer than the store's latest into the store.
	Sync(ctx context.Context, progress chan<- ProgressUpdate, store ScrobbleStore, profileID, user string) (*SyncResult, error)
}

// EngineOpts configures a [DashboardEngine]. Zero values use the defaults.
type EngineOpts struct {
	TopLimit     int              // Top list size (default: 10)
	RecentLimit  int              // Recent scrobbles shown (default: 10)
	HeatmapLimit int              // Scrobbles grouped into the heatmap (default: 200)
	PageSize     int              // Recent tracks page size for paging (default and max: 200)
	Workers      int              // Decade lookup workers (default: 4, max: 10)
	RateLimit    float64          // Decade lookups per second (default: 5)
	Logger       *log.Logger      // Section failures are logged here
	Now          func() time.Time // Clock for the weekly periods
}

// DashboardEngine implements Engine on top of a Last.fm [services.Service].
type DashboardEngine struct {
	svc    services.Service
	opts   EngineOpts
	logger *log.Logger
	now    func() time.Time
}

// NewDashboardEngine creates a new DashboardEngine with the provided service.
func NewDashboardEngine(svc services.Service, opts EngineOpts) *DashboardEngine {
	if opts.TopLimit <= 0 {
		opts.TopLimit = 10
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}
	if opts.HeatmapLimit <= 0 {
		opts.HeatmapLimit = MaxPageSize
	}
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Workers > 10 {
		opts.Workers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	e := &DashboardEngine{svc: svc, opts: opts, logger: opts.Logger, now: opts.Now}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *DashboardEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Build fetches and aggregates the full dashboard.
//
// Only the profile lookup is fatal. Unknown users return an error wrapping [shared.ErrUserNotFound].
func (e *DashboardEngine) Build(ctx context.Context, progress chan<- ProgressUpdate, user string, period models.Period) (*models.Dashboard, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: Last.fm service not initialized", shared.ErrServiceUnavailable)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	if period == "" {
		period = models.PeriodOverall
	}

	e.sendProgress(progress, fetchProfileUpdate(user))
	info, err := e.svc.UserInfo(ctx, user)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to look up %s: %w", shared.ErrAPIRequest, user, err)
	}

	dash := &models.Dashboard{Username: info.Name, Period: period, User: info}
	logger := shared.WithLogger(e.logger, "user", info.Name, "period", period)

	e.fetchTopLists(ctx, progress, logger, dash)

	e.sendProgress(progress, fetchRecentUpdate(0))
	if page, err := e.svc.RecentTracks(ctx, user, models.RecentQuery{Limit: e.opts.RecentLimit}); err != nil {
		logger.Warn("recent tracks unavailable", "error", err)
	} else {
		dash.Recent = head(page.Scrobbles, e.opts.RecentLimit)
		dash.NowPlaying = NowPlaying(dash.Recent)
		dash.Charts.Recent = ArtistCounts(dash.Recent)
		e.sendProgress(progress, fetchRecentUpdate(len(dash.Recent)))
	}

	if page, err := e.svc.RecentTracks(ctx, user, models.RecentQuery{Limit: e.opts.HeatmapLimit}); err != nil {
		logger.Warn("heatmap unavailable", "error", err)
	} else {
		dash.Charts.Heatmap = Heatmap(page.Scrobbles)
		e.sendProgress(progress, heatmapUpdate(dash.Charts.Heatmap.Len()))
	}

	if weekly, err := e.Weekly(ctx, progress, user); err != nil {
		logger.Warn("weekly comparison unavailable", "error", err)
	} else {
		dash.Weekly = weekly
	}

	decadeTracks := dash.TopTracks
	if period != models.PeriodOverall || len(decadeTracks) < DecadeLimit {
		decadeTracks, err = e.svc.TopTracks(ctx, user, models.PeriodOverall, DecadeLimit)
		if err != nil {
			logger.Warn("decade tracks unavailable", "error", err)
		}
	}
	if len(decadeTracks) > 0 {
		if decades, err := e.Decades(ctx, progress, head(decadeTracks, DecadeLimit)); err != nil {
			logger.Warn("decades unavailable", "error", err)
		} else {
			dash.Charts.Decades = decades
		}
	}

	if err := e.Leaderboard(ctx, progress, user, &dash.Charts); err != nil {
		logger.Warn("leaderboard unavailable", "error", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}

	dash.GeneratedAt = e.now().UTC()
	return dash, nil
}

// fetchTopLists fills the top tables and their bar datasets.
func (e *DashboardEngine) fetchTopLists(ctx context.Context, progress chan<- ProgressUpdate, logger *log.Logger, dash *models.Dashboard) {
	user, period, limit := dash.Username, dash.Period, e.opts.TopLimit

	e.sendProgress(progress, fetchTopListsUpdate(1, 3, "tracks"))
	if tracks, err := e.svc.TopTracks(ctx, user, period, limit); err != nil {
		logger.Warn("top tracks unavailable", "error", err)
	} else {
		dash.TopTracks = tracks
		dash.Charts.Tracks = TrackDataset(tracks)
	}

	e.sendProgress(progress, fetchTopListsUpdate(2, 3, "albums"))
	if albums, err := e.svc.TopAlbums(ctx, user, period, limit); err != nil {
		logger.Warn("top albums unavailable", "error", err)
	} else {
		dash.TopAlbums = albums
		dash.Charts.Albums = AlbumDataset(albums)
	}

	e.sendProgress(progress, fetchTopListsUpdate(3, 3, "artists"))
	if artists, err := e.svc.TopArtists(ctx, user, period, limit); err != nil {
		logger.Warn("top artists unavailable", "error", err)
	} else {
		dash.TopArtists = artists
		dash.Charts.Artists = ArtistDataset(artists)
	}
}

// TrackDataset converts top tracks to a bar dataset, or nil when there are none.
func TrackDataset(tracks []models.Track) *models.Dataset {
	if len(tracks) == 0 {
		return nil
	}
	ds := &models.Dataset{}
	for _, t := range tracks {
		ds.Labels = append(ds.Labels, t.Name)
		ds.Data = append(ds.Data, float64(t.Playcount))
		ds.Artists = append(ds.Artists, t.Artist)
	}
	return ds
}

// AlbumDataset converts top albums to a bar dataset, or nil when there are none.
func AlbumDataset(albums []models.Album) *models.Dataset {
	if len(albums) == 0 {
		return nil
	}
	ds := &models.Dataset{}
	for _, a := range albums {
		ds.Labels = append(ds.Labels, a.Name)
		ds.Data = append(ds.Data, float64(a.Playcount))
		ds.Artists = append(ds.Artists, a.Artist)
	}
	return ds
}

// ArtistDataset converts top artists to a bar dataset, or nil when there are none.
func ArtistDataset(artists []models.Artist) *models.Dataset {
	if len(artists) == 0 {
		return nil
	}
	ds := &models.Dataset{}
	for _, a := range artists {
		ds.Labels = append(ds.Labels, a.Name)
		ds.Data = append(ds.Data, float64(a.Playcount))
	}
	return ds
}

// NowPlaying returns the first scrobble flagged as playing, or nil.
func NowPlaying(recent []models.Scrobble) *models.Scrobble {
	for i := range recent {
		if recent[i].NowPlaying {
			s := recent[i]
			return &s
		}
	}
	return nil
}

// ArtistCounts counts scrobbles per artist, most played first.
// Ties keep the order in which the artists first appear.
func ArtistCounts(recent []models.Scrobble) *models.Dataset {
	counts := make(map[string]int)
	var order []string
	for _, s := range recent {
		if s.Artist == "" {
			continue
		}
		if _, ok := counts[s.Artist]; !ok {
			order = append(order, s.Artist)
		}
		counts[s.Artist]++
	}
	if len(order) == 0 {
		return nil
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})

	ds := &models.Dataset{}
	for _, artist := range order {
		ds.Labels = append(ds.Labels, artist)
		ds.Data = append(ds.Data, float64(counts[artist]))
	}
	return ds
}

// Heatmap groups dated scrobbles by UTC weekday name and hour.
// Points are ordered Sunday first, then by hour.
func Heatmap(scrobbles []models.Scrobble) *models.HeatmapDataset {
	type cell struct{ day, hour int }
	counts := make(map[cell]int)
	for _, s := range scrobbles {
		if s.NowPlaying || s.PlayedAt.IsZero() {
			continue
		}
		t := s.PlayedAt.UTC()
		counts[cell{int(t.Weekday()), t.Hour()}]++
	}
	if len(counts) == 0 {
		return nil
	}

	cells := make([]cell, 0, len(counts))
	for c := range counts {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, func(a, b cell) int {
		return cmp.Or(cmp.Compare(a.day, b.day), cmp.Compare(a.hour, b.hour))
	})

	hm := &models.HeatmapDataset{}
	for _, c := range cells {
		hm.Days = append(hm.Days, charts.DayLabel(c.day))
		hm.Hours = append(hm.Hours, c.hour)
		hm.Plays = append(hm.Plays, float64(counts[c]))
	}
	return hm
}

// WeekStart returns Monday 00:00 UTC of the week containing now.
func WeekStart(now time.Time) time.Time {
	now = now.UTC()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -daysSinceMonday)
}

// Weekly compares the scrobbles of the current week with the seven days before it.
func (e *DashboardEngine) Weekly(ctx context.Context, progress chan<- ProgressUpdate, user string) (*models.WeeklyComparison, error) {
	now := e.now().UTC()
	start := WeekStart(now)
	prevEnd := start.Add(-time.Second)
	prevStart := start.AddDate(0, 0, -7)

	e.sendProgress(progress, compareWeeksUpdate(1, 2, "this week"))
	current, err := e.fetchRange(ctx, user, start, now)
	if err != nil {
		return nil, fmt.Errorf("current week: %w", err)
	}

	e.sendProgress(progress, compareWeeksUpdate(2, 2, "last week"))
	previous, err := e.fetchRange(ctx, user, prevStart, prevEnd)
	if err != nil {
		return nil, fmt.Errorf("previous week: %w", err)
	}

	elapsed := int(now.Sub(start).Hours()/24) + 1
	return &models.WeeklyComparison{
		Current:        WeekMetricsOf(current, elapsed),
		Previous:       WeekMetricsOf(previous, 7),
		CurrentPeriod:  periodLabel(start, now),
		PreviousPeriod: periodLabel(prevStart, prevEnd),
	}, nil
}

// fetchRange pages every dated scrobble between from and to.
func (e *DashboardEngine) fetchRange(ctx context.Context, user string, from, to time.Time) ([]models.Scrobble, error) {
	var all []models.Scrobble
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.svc.RecentTracks(ctx, user, models.RecentQuery{
			Page: page, Limit: e.opts.PageSize, From: from, To: to,
		})
		if err != nil {
			return nil, err
		}
		for _, s := range res.Scrobbles {
			if !s.NowPlaying {
				all = append(all, s)
			}
		}
		if res.Last(e.opts.PageSize) {
			return all, nil
		}
	}
}

// WeekMetricsOf summarizes scrobbles listened over days days.
func WeekMetricsOf(scrobbles []models.Scrobble, days int) models.WeekMetrics {
	m := models.WeekMetrics{MostActiveDay: "None"}
	if len(scrobbles) == 0 {
		return m
	}

	artists := make(map[string]struct{})
	tracks := make(map[[2]string]struct{})
	perDay := make(map[string]int)
	var dayOrder []string
	for _, s := range scrobbles {
		artists[s.Artist] = struct{}{}
		tracks[[2]string{s.Track, s.Artist}] = struct{}{}
		if s.PlayedAt.IsZero() {
			continue
		}
		d := s.PlayedAt.UTC().Format(dayLabel)
		if _, ok := perDay[d]; !ok {
			dayOrder = append(dayOrder, d)
		}
		perDay[d]++
	}

	m.Artists = len(artists)
	m.Tracks = len(tracks)
	m.Scrobbles = len(scrobbles)
	m.ListeningHours = round1(float64(m.Scrobbles) * minutesPerScrobble / 60)
	m.AvgScrobbles = round1(float64(m.Scrobbles) / float64(max(days, 1)))
	for _, d := range dayOrder {
		if perDay[d] > m.MostActiveN {
			m.MostActiveDay, m.MostActiveN = d, perDay[d]
		}
	}
	return m
}

// Leaderboard fills the friends, world and past datasets of data.
//
// Returns an error only when none of the three could be built.
func (e *DashboardEngine) Leaderboard(ctx context.Context, progress chan<- ProgressUpdate, user string, data *models.ChartData) error {
	e.sendProgress(progress, leaderboardUpdate(1, 3, "friends"))

	var errs []error
	tracks, err := e.svc.TopTracks(ctx, user, models.PeriodOverall, LeaderboardLimit)
	errs = append(errs, err)
	albums, err := e.svc.TopAlbums(ctx, user, models.PeriodOverall, LeaderboardLimit)
	errs = append(errs, err)
	artists, err := e.svc.TopArtists(ctx, user, models.PeriodOverall, LeaderboardLimit)
	errs = append(errs, err)

	if len(tracks) > 0 || len(albums) > 0 || len(artists) > 0 {
		totals := [3]int{
			sumPlays(tracks, func(t models.Track) int { return t.Playcount }),
			sumPlays(albums, func(a models.Album) int { return a.Playcount }),
			sumPlays(artists, func(a models.Artist) int { return a.Playcount }),
		}
		data.Friends = Friends(user, totals)

		e.sendProgress(progress, leaderboardUpdate(2, 3, "world"))
		names := make([]string, 0, len(artists))
		for _, a := range artists {
			names = append(names, a.Name)
		}
		data.World = World(names, totals[0]+totals[1]+totals[2])
	}

	e.sendProgress(progress, leaderboardUpdate(3, 3, "past"))
	past, err := e.Past(ctx, user)
	if err != nil {
		errs = append(errs, err)
	} else {
		data.Past = past
	}

	if data.Friends == nil && data.Past == nil {
		return errors.Join(errs...)
	}
	return nil
}

// Friends builds the friends leaderboard from the user's track, album and artist totals.
// Each placeholder friend gets the totals scaled by its factors, truncated to whole scrobbles.
func Friends(user string, totals [3]int) *models.SeriesDataset {
	ds := &models.SeriesDataset{Categories: append(slices.Clone(friendNames), user)}
	for i, name := range []string{"Tracks", "Albums", "Artists"} {
		series := models.Series{Name: name}
		for _, f := range friendFactors[i] {
			series.Data = append(series.Data, math.Trunc(float64(totals[i])*f))
		}
		series.Data = append(series.Data, float64(totals[i]))
		ds.Series = append(ds.Series, series)
	}
	return ds
}

// World builds the world treemap: the first five artists at the user's total and a global average at twice that.
func World(artists []string, total int) *models.Dataset {
	ds := &models.Dataset{}
	for _, name := range head(artists, 5) {
		ds.Labels = append(ds.Labels, name)
		ds.Data = append(ds.Data, float64(total))
	}
	ds.Labels = append(ds.Labels, "Global Average")
	ds.Data = append(ds.Data, float64(total*2))
	return ds
}

// Past compares one page of this week's scrobbles with one page of the thirty days before the week.
func (e *DashboardEngine) Past(ctx context.Context, user string) (*models.SeriesDataset, error) {
	now := e.now().UTC()
	start := WeekStart(now)

	ranges := []struct {
		label    string
		from, to time.Time
	}{
		{"This Week", start, now},
		{"Last Month", start.AddDate(0, 0, -30), start.Add(-time.Second)},
	}

	ds := &models.SeriesDataset{Series: []models.Series{{Name: "Tracks"}, {Name: "Albums"}, {Name: "Artists"}}}
	failed := 0
	for _, r := range ranges {
		var scrobbles []models.Scrobble
		page, err := e.svc.RecentTracks(ctx, user, models.RecentQuery{Limit: MaxPageSize, From: r.from, To: r.to})
		if err != nil {
			failed++
			e.logger.Debug("past period unavailable", "period", r.label, "error", err)
		} else {
			scrobbles = page.Scrobbles
		}

		n, albums, artists := PeriodCounts(scrobbles)
		ds.Categories = append(ds.Categories, r.label)
		ds.Series[0].Data = append(ds.Series[0].Data, float64(n))
		ds.Series[1].Data = append(ds.Series[1].Data, float64(albums))
		ds.Series[2].Data = append(ds.Series[2].Data, float64(artists))
	}
	if failed == len(ranges) {
		return nil, fmt.Errorf("%w: no past periods could be fetched", shared.ErrAPIRequest)
	}
	return ds, nil
}

// PeriodCounts returns the number of dated scrobbles, distinct non-empty albums and distinct artists.
func PeriodCounts(scrobbles []models.Scrobble) (tracks, albums, artists int) {
	albumSet := make(map[string]struct{})
	artistSet := make(map[string]struct{})
	for _, s := range scrobbles {
		if s.NowPlaying {
			continue
		}
		tracks++
		if s.Album != "" {
			albumSet[s.Album] = struct{}{}
		}
		artistSet[s.Artist] = struct{}{}
	}
	return tracks, len(albumSet), len(artistSet)
}

func sumPlays[T any](items []T, plays func(T) int) int {
	total := 0
	for _, it := range items {
		total += plays(it)
	}
	return total
}

func periodLabel(from, to time.Time) string {
	return from.Format(dayLabel) + " - " + to.Format(dayLabel)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}
