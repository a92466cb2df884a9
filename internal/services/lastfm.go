// Last.fm API implementation of [Service]
//
// Response types based on https://www.last.fm/api
package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

const (
	defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
	defaultAuthURL = "https://www.last.fm/api/auth/"
	maxPageSize    = 200
)

// flexInt decodes Last.fm numbers, which are usually sent as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// list decodes a JSON array, or a single object Last.fm sends in place of a one-item array.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(b, &item); err != nil {
		return err
	}
	*l = list[T]{item}
	return nil
}

type lfmImage struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// largest returns the last non-empty image URL; Last.fm orders images small to extralarge.
func largest(images []lfmImage) string {
	for i := len(images) - 1; i >= 0; i-- {
		if images[i].URL != "" {
			return images[i].URL
		}
	}
	return ""
}

type rankAttr struct {
	Rank flexInt `json:"rank"`
}

type namedRef struct {
	Name string `json:"name"`
	Text string `json:"#text"`
}

func (n namedRef) String() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Text
}

// LastFMUser is the user object of user.getInfo.
type LastFMUser struct {
	Name       string     `json:"name"`
	RealName   string     `json:"realname"`
	URL        string     `json:"url"`
	Country    string     `json:"country"`
	Playcount  flexInt    `json:"playcount"`
	Images     []lfmImage `json:"image"`
	Registered struct {
		Unix flexInt `json:"unixtime"`
	} `json:"registered"`
}

// LastFMArtist is an entry of user.getTopArtists.
type LastFMArtist struct {
	Name      string   `json:"name"`
	Playcount flexInt  `json:"playcount"`
	URL       string   `json:"url"`
	Attr      rankAttr `json:"@attr"`
}

// LastFMTrack is an entry of user.getTopTracks.
type LastFMTrack struct {
	Name      string   `json:"name"`
	Playcount flexInt  `json:"playcount"`
	URL       string   `json:"url"`
	Artist    namedRef `json:"artist"`
	Attr      rankAttr `json:"@attr"`
}

// LastFMAlbum is an entry of user.getTopAlbums.
type LastFMAlbum struct {
	Name      string   `json:"name"`
	Playcount flexInt  `json:"playcount"`
	URL       string   `json:"url"`
	Artist    namedRef `json:"artist"`
	Attr      rankAttr `json:"@attr"`
}

// LastFMScrobble is an entry of user.getRecentTracks.
type LastFMScrobble struct {
	Name   string     `json:"name"`
	Artist namedRef   `json:"artist"`
	Album  namedRef   `json:"album"`
	Images []lfmImage `json:"image"`
	Date   *struct {
		UTS flexInt `json:"uts"`
	} `json:"date"`
	Attr struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

type pageAttr struct {
	Page       flexInt `json:"page"`
	TotalPages flexInt `json:"totalPages"`
	Total      flexInt `json:"total"`
}

// LastFMTrackInfo is the track object of track.getInfo.
type LastFMTrackInfo struct {
	Name   string   `json:"name"`
	Artist namedRef `json:"artist"`
	Album  *struct {
		Title       string `json:"title"`
		ReleaseDate string `json:"releasedate"`
	} `json:"album"`
	Wiki *struct {
		Published string `json:"published"`
	} `json:"wiki"`
}

type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

func (e apiError) err() error {
	var base error
	switch e.Code {
	case 6:
		base = shared.ErrUserNotFound
	case 4, 9, 10, 14, 26:
		base = shared.ErrAuthFailed
	case 11, 16, 29:
		base = shared.ErrServiceUnavailable
	default:
		base = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: last.fm error %d: %s", base, e.Code, e.Message)
}

// LastFMService implements [Service] and [Authenticator] against the Last.fm web API.
type LastFMService struct {
	apiKey     string
	secret     string
	baseURL    string
	authURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewLastFMService creates a Last.fm client from cfg. A nil client uses [http.DefaultClient].
func NewLastFMService(cfg shared.LastFMConfig, client *http.Client, logger *log.Logger) (*LastFMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: lastfm api_key", shared.ErrMissingCredentials)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &LastFMService{
		apiKey:     cfg.APIKey,
		secret:     cfg.SharedSecret,
		baseURL:    baseURL,
		authURL:    authURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}, nil
}

func (s *LastFMService) Name() string {
	return "Last.fm"
}

// sign computes api_sig: the md5 of every parameter except format, sorted by key and
// concatenated as keyvalue, followed by the shared secret.
func sign(params url.Values, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "format" || k == "callback" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// doRequest performs a rate limited GET for method and decodes the JSON body into result.
func (s *LastFMService) doRequest(ctx context.Context, method string, params url.Values, signed bool, result any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("method", method)
	params.Set("api_key", s.apiKey)
	if signed {
		if s.secret == "" {
			return fmt.Errorf("%w: lastfm shared_secret", shared.ErrMissingCredentials)
		}
		params.Set("api_sig", sign(params, s.secret))
	}
	params.Set("format", "json")

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	s.logger.Debug("last.fm request", "method", method, "status", resp.StatusCode, "elapsed", time.Since(start))

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return apiErr.err()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

func userParams(user string, period models.Period, limit int) url.Values {
	p := url.Values{}
	p.Set("user", user)
	if period != "" {
		p.Set("period", string(period))
	}
	if limit > 0 {
		p.Set("limit", strconv.Itoa(limit))
	}
	return p
}

// UserInfo retrieves a user profile.
func (s *LastFMService) UserInfo(ctx context.Context, user string) (*models.UserInfo, error) {
	if strings.TrimSpace(user) == "" {
		return nil, fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}

	var response struct {
		User *LastFMUser `json:"user"`
	}
	if err := s.doRequest(ctx, "user.getInfo", userParams(user, "", 0), false, &response); err != nil {
		return nil, err
	}
	if response.User == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
	}

	u := response.User
	info := &models.UserInfo{
		Name:      u.Name,
		RealName:  u.RealName,
		URL:       u.URL,
		Country:   u.Country,
		Playcount: int(u.Playcount),
		Image:     largest(u.Images),
	}
	if u.Registered.Unix > 0 {
		info.Registered = time.Unix(int64(u.Registered.Unix), 0).UTC()
	}
	return info, nil
}

// TopArtists retrieves the user's top artists for period.
func (s *LastFMService) TopArtists(ctx context.Context, user string, period models.Period, limit int) ([]models.Artist, error) {
	var response struct {
		TopArtists struct {
			Artists list[LastFMArtist] `json:"artist"`
		} `json:"topartists"`
	}
	if err := s.doRequest(ctx, "user.getTopArtists", userParams(user, period, limit), false, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.TopArtists.Artists))
	for i, a := range response.TopArtists.Artists {
		artists = append(artists, models.Artist{
			Rank:      rank(a.Attr, i),
			Name:      a.Name,
			Playcount: int(a.Playcount),
			URL:       a.URL,
		})
	}
	return artists, nil
}

// TopTracks retrieves the user's top tracks for period.
func (s *LastFMService) TopTracks(ctx context.Context, user string, period models.Period, limit int) ([]models.Track, error) {
	var response struct {
		TopTracks struct {
			Tracks list[LastFMTrack] `json:"track"`
		} `json:"toptracks"`
	}
	if err := s.doRequest(ctx, "user.getTopTracks", userParams(user, period, limit), false, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.TopTracks.Tracks))
	for i, t := range response.TopTracks.Tracks {
		tracks = append(tracks, models.Track{
			Rank:      rank(t.Attr, i),
			Name:      t.Name,
			Artist:    t.Artist.String(),
			Playcount: int(t.Playcount),
			URL:       t.URL,
		})
	}
	return tracks, nil
}

// TopAlbums retrieves the user's top albums for period.
func (s *LastFMService) TopAlbums(ctx context.Context, user string, period models.Period, limit int) ([]models.Album, error) {
	var response struct {
		TopAlbums struct {
			Albums list[LastFMAlbum] `json:"album"`
		} `json:"topalbums"`
	}
	if err := s.doRequest(ctx, "user.getTopAlbums", userParams(user, period, limit), false, &response); err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(response.TopAlbums.Albums))
	for i, a := range response.TopAlbums.Albums {
		albums = append(albums, models.Album{
			Rank:      rank(a.Attr, i),
			Name:      a.Name,
			Artist:    a.Artist.String(),
			Playcount: int(a.Playcount),
			URL:       a.URL,
		})
	}
	return albums, nil
}

func rank(a rankAttr, i int) int {
	if a.Rank > 0 {
		return int(a.Rank)
	}
	return i + 1
}

// RecentTracks retrieves one page of the user's scrobbles. The limit is capped at 200.
func (s *LastFMService) RecentTracks(ctx context.Context, user string, q models.RecentQuery) (*models.RecentPage, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	params := userParams(user, "", limit)
	if q.Page > 1 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if !q.From.IsZero() {
		params.Set("from", strconv.FormatInt(q.From.Unix(), 10))
	}
	if !q.To.IsZero() {
		params.Set("to", strconv.FormatInt(q.To.Unix(), 10))
	}

	var response struct {
		Recent struct {
			Tracks list[LastFMScrobble] `json:"track"`
			Attr   pageAttr             `json:"@attr"`
		} `json:"recenttracks"`
	}
	if err := s.doRequest(ctx, "user.getRecentTracks", params, false, &response); err != nil {
		return nil, err
	}

	page := &models.RecentPage{
		Scrobbles:  make([]models.Scrobble, 0, len(response.Recent.Tracks)),
		Page:       int(response.Recent.Attr.Page),
		TotalPages: int(response.Recent.Attr.TotalPages),
		Total:      int(response.Recent.Attr.Total),
	}
	for _, t := range response.Recent.Tracks {
		sc := models.Scrobble{
			Track:      t.Name,
			Artist:     t.Artist.String(),
			Album:      t.Album.String(),
			Image:      largest(t.Images),
			NowPlaying: t.Attr.NowPlaying == "true",
		}
		if t.Date != nil && t.Date.UTS > 0 {
			sc.PlayedAt = time.Unix(int64(t.Date.UTS), 0).UTC()
		}
		page.Scrobbles = append(page.Scrobbles, sc)
	}
	return page, nil
}

// TrackInfo retrieves album metadata for a track.
func (s *LastFMService) TrackInfo(ctx context.Context, artist, track string) (*models.TrackInfo, error) {
	params := url.Values{}
	params.Set("artist", artist)
	params.Set("track", track)
	params.Set("autocorrect", "1")

	var response struct {
		Track *LastFMTrackInfo `json:"track"`
	}
	if err := s.doRequest(ctx, "track.getInfo", params, false, &response); err != nil {
		return nil, err
	}
	if response.Track == nil {
		return nil, fmt.Errorf("%w: track %q by %q not found", shared.ErrAPIRequest, track, artist)
	}

	t := response.Track
	info := &models.TrackInfo{Name: t.Name, Artist: t.Artist.String()}
	if t.Album != nil {
		info.Album = t.Album.Title
		info.ReleaseDate = t.Album.ReleaseDate
	}
	if info.ReleaseDate == "" && t.Wiki != nil {
		info.ReleaseDate = t.Wiki.Published
	}
	return info, nil
}

// AuthURL returns the Last.fm page that grants this API key access and redirects to callback.
func (s *LastFMService) AuthURL(callback string) string {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	if callback != "" {
		params.Set("cb", callback)
	}
	return s.authURL + "?" + params.Encode()
}

// Session exchanges an authorization token for a session key via auth.getSession.
func (s *LastFMService) Session(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}

	params := url.Values{}
	params.Set("token", token)

	var response struct {
		Session *models.Session `json:"session"`
	}
	if err := s.doRequest(ctx, "auth.getSession", params, true, &response); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if response.Session == nil || response.Session.Key == "" {
		return nil, fmt.Errorf("%w: empty session", shared.ErrAuthFailed)
	}
	return response.Session, nil
}
