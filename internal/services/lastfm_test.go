package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	tu "github.com/desertthunder/scrobblex/internal/testing"
)

// newTestService starts a server answering each Last.fm method with the given body.
func newTestService(t *testing.T, bodies map[string]string) (*LastFMService, *[]url.Values) {
	t.Helper()

	var seen []url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		seen = append(seen, q)

		body, ok := bodies[q.Get("method")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":3,"message":"Invalid Method"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	srv, err := NewLastFMService(shared.LastFMConfig{
		APIKey:            "key",
		SharedSecret:      "secret",
		BaseURL:           server.URL + "/",
		RequestsPerSecond: 1000,
	}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return srv, &seen
}

func TestLastFMService(t *testing.T) {
	ctx := context.Background()

	t.Run("new", func(t *testing.T) {
		t.Run("missing API key", func(t *testing.T) {
			_, err := NewLastFMService(shared.LastFMConfig{}, nil, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("defaults", func(t *testing.T) {
			srv, err := NewLastFMService(shared.LastFMConfig{APIKey: "k"}, nil, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.baseURL != defaultBaseURL {
				t.Errorf("expected default baseURL, got %s", srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if srv.Name() != "Last.fm" {
				t.Errorf("expected name Last.fm, got %s", srv.Name())
			}
		})
	})

	t.Run("UserInfo", func(t *testing.T) {
		t.Run("maps profile", func(t *testing.T) {
			srv, seen := newTestService(t, map[string]string{
				"user.getInfo": `{"user":{"name":"rj","realname":"Richard","url":"https://www.last.fm/user/rj",
					"country":"United Kingdom","playcount":"150316",
					"image":[{"#text":"small.png","size":"small"},{"#text":"large.png","size":"large"}],
					"registered":{"unixtime":"1037793040","#text":1037793040}}}`,
			})

			info, err := srv.UserInfo(ctx, "rj")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if info.Name != "rj" || info.Playcount != 150316 {
				t.Errorf("unexpected info: %+v", info)
			}
			if info.Image != "large.png" {
				t.Errorf("expected largest image, got %s", info.Image)
			}
			if !info.Registered.Equal(time.Unix(1037793040, 0)) {
				t.Errorf("unexpected registration time %v", info.Registered)
			}

			q := (*seen)[0]
			if q.Get("api_key") != "key" || q.Get("format") != "json" || q.Get("user") != "rj" {
				t.Errorf("unexpected query %v", q)
			}
		})

		t.Run("unknown user", func(t *testing.T) {
			srv, _ := newTestService(t, map[string]string{
				"user.getInfo": `{"error":6,"message":"User not found"}`,
			})

			_, err := srv.UserInfo(ctx, "nobody")
			if !errors.Is(err, shared.ErrUserNotFound) {
				t.Errorf("expected ErrUserNotFound, got %v", err)
			}
		})

		t.Run("empty username", func(t *testing.T) {
			srv, seen := newTestService(t, nil)

			_, err := srv.UserInfo(ctx, "  ")
			if !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if len(*seen) != 0 {
				t.Error("expected no request to be sent")
			}
		})
	})

	t.Run("top lists", func(t *testing.T) {
		srv, seen := newTestService(t, map[string]string{
			"user.getTopArtists": `{"topartists":{"artist":[
				{"name":"Radiohead","playcount":"120","url":"u1","@attr":{"rank":"1"}},
				{"name":"Björk","playcount":"80","url":"u2","@attr":{"rank":"2"}}]}}`,
			"user.getTopTracks": `{"toptracks":{"track":
				{"name":"Idioteque","playcount":"33","artist":{"name":"Radiohead"},"@attr":{"rank":"1"}}}}`,
			"user.getTopAlbums": `{"topalbums":{"album":[
				{"name":"Kid A","playcount":"50","artist":{"name":"Radiohead"}}]}}`,
		})

		artists, err := srv.TopArtists(ctx, "rj", models.Period7Day, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(artists) != 2 || artists[1].Name != "Björk" || artists[1].Playcount != 80 || artists[1].Rank != 2 {
			t.Errorf("unexpected artists %+v", artists)
		}
		if q := (*seen)[0]; q.Get("period") != "7day" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %v", q)
		}

		t.Run("single object", func(t *testing.T) {
			tracks, err := srv.TopTracks(ctx, "rj", models.PeriodOverall, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].Artist != "Radiohead" || tracks[0].Playcount != 33 {
				t.Errorf("unexpected tracks %+v", tracks)
			}
		})

		t.Run("rank falls back to position", func(t *testing.T) {
			albums, err := srv.TopAlbums(ctx, "rj", models.PeriodOverall, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(albums) != 1 || albums[0].Rank != 1 || albums[0].Artist != "Radiohead" {
				t.Errorf("unexpected albums %+v", albums)
			}
		})
	})

	t.Run("RecentTracks", func(t *testing.T) {
		srv, seen := newTestService(t, map[string]string{
			"user.getRecentTracks": `{"recenttracks":{"track":[
				{"name":"Now","artist":{"#text":"A"},"album":{"#text":""},"@attr":{"nowplaying":"true"}},
				{"name":"Then","artist":{"#text":"B"},"album":{"#text":"Record"},"date":{"uts":"1700000000","#text":"14 Nov 2023, 22:13"}}],
				"@attr":{"page":"2","totalPages":"5","total":"1000","perPage":"200"}}}`,
		})

		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		page, err := srv.RecentTracks(ctx, "rj", models.RecentQuery{Page: 2, Limit: 500, From: from})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if page.Page != 2 || page.TotalPages != 5 || page.Total != 1000 {
			t.Errorf("unexpected paging %+v", page)
		}
		if len(page.Scrobbles) != 2 {
			t.Fatalf("expected 2 scrobbles, got %d", len(page.Scrobbles))
		}
		if !page.Scrobbles[0].NowPlaying || !page.Scrobbles[0].PlayedAt.IsZero() {
			t.Errorf("expected now playing entry, got %+v", page.Scrobbles[0])
		}
		if page.Scrobbles[1].Album != "Record" || page.Scrobbles[1].PlayedAt.Unix() != 1700000000 {
			t.Errorf("unexpected scrobble %+v", page.Scrobbles[1])
		}

		q := (*seen)[0]
		if q.Get("limit") != "200" {
			t.Errorf("expected limit capped at 200, got %s", q.Get("limit"))
		}
		if q.Get("from") != "1704067200" || q.Get("to") != "" || q.Get("page") != "2" {
			t.Errorf("unexpected query %v", q)
		}
	})

	t.Run("TrackInfo", func(t *testing.T) {
		srv, _ := newTestService(t, map[string]string{
			"track.getInfo": `{"track":{"name":"Idioteque","artist":{"name":"Radiohead"},
				"album":{"title":"Kid A","releasedate":"2 Oct 2000, 00:00"}}}`,
		})

		info, err := srv.TrackInfo(ctx, "Radiohead", "Idioteque")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if y, ok := info.ReleaseYear(); !ok || y != 2000 {
			t.Errorf("expected release year 2000, got %d (%v)", y, ok)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			body   string
			want   error
		}{
			{"invalid API key", http.StatusForbidden, `{"error":10,"message":"Invalid API key"}`, shared.ErrAuthFailed},
			{"rate limited", http.StatusTooManyRequests, `{"error":29,"message":"Rate limit exceeded"}`, shared.ErrServiceUnavailable},
			{"error with status 200", http.StatusOK, `{"error":8,"message":"Operation failed"}`, shared.ErrAPIRequest},
			{"server error", http.StatusInternalServerError, `<html>oops</html>`, shared.ErrAPIRequest},
			{"malformed body", http.StatusOK, `{"topartists":`, shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(tt.body))
				}))
				defer server.Close()

				srv, _ := NewLastFMService(shared.LastFMConfig{APIKey: "k", BaseURL: server.URL}, nil, nil)
				_, err := srv.TopArtists(ctx, "rj", models.PeriodOverall, 10)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}

		t.Run("transport failure", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			srv, _ := NewLastFMService(shared.LastFMConfig{APIKey: "k"}, client, nil)

			_, err := srv.UserInfo(ctx, "rj")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("cancelled context", func(t *testing.T) {
			srv, _ := newTestService(t, nil)
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := srv.UserInfo(cctx, "rj")
			if err == nil {
				t.Error("expected error for cancelled context")
			}
		})
	})

	t.Run("authentication", func(t *testing.T) {
		t.Run("AuthURL", func(t *testing.T) {
			srv, _ := NewLastFMService(shared.LastFMConfig{APIKey: "k"}, nil, nil)
			got := srv.AuthURL("http://127.0.0.1:3000/callback")

			if !strings.HasPrefix(got, defaultAuthURL+"?") {
				t.Errorf("unexpected auth url %s", got)
			}
			if !strings.Contains(got, "cb=http%3A%2F%2F127.0.0.1%3A3000%2Fcallback") {
				t.Errorf("expected escaped callback in %s", got)
			}
		})

		t.Run("session is signed", func(t *testing.T) {
			srv, seen := newTestService(t, map[string]string{
				"auth.getSession": `{"session":{"name":"rj","key":"sk-123","subscriber":0}}`,
			})

			sess, err := srv.Session(ctx, "tok")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if sess.Name != "rj" || sess.Key != "sk-123" {
				t.Errorf("unexpected session %+v", sess)
			}

			q := (*seen)[0]
			want := url.Values{"api_key": {"key"}, "method": {"auth.getSession"}, "token": {"tok"}}
			if q.Get("api_sig") != sign(want, "secret") {
				t.Errorf("unexpected signature %s", q.Get("api_sig"))
			}
		})

		t.Run("session failure", func(t *testing.T) {
			srv, _ := newTestService(t, map[string]string{
				"auth.getSession": `{"error":14,"message":"Unauthorized Token"}`,
			})

			_, err := srv.Session(ctx, "tok")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("missing secret", func(t *testing.T) {
			srv, _ := NewLastFMService(shared.LastFMConfig{APIKey: "k"}, nil, nil)
			_, err := srv.Session(ctx, "tok")
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})
}

func TestSign(t *testing.T) {
	params := url.Values{}
	params.Set("method", "auth.getSession")
	params.Set("api_key", "xxxxxxxx")
	params.Set("token", "yyyyyy")
	params.Set("format", "json")

	a := sign(params, "s3cret")
	params.Del("format")
	b := sign(params, "s3cret")

	if a != b {
		t.Error("expected format to be excluded from signature")
	}
	if len(a) != 32 {
		t.Errorf("expected md5 hex digest, got %q", a)
	}
}

func TestDecoding(t *testing.T) {
	t.Run("flexInt", func(t *testing.T) {
		var v struct {
			A flexInt `json:"a"`
			B flexInt `json:"b"`
			C flexInt `json:"c"`
		}
		if err := json.Unmarshal([]byte(`{"a":"12","b":7,"c":""}`), &v); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v.A != 12 || v.B != 7 || v.C != 0 {
			t.Errorf("unexpected values %+v", v)
		}
		if err := json.Unmarshal([]byte(`{"a":"x"}`), &v); err == nil {
			t.Error("expected error for non-numeric string")
		}
	})

	t.Run("list", func(t *testing.T) {
		var l list[namedRef]
		if err := json.Unmarshal([]byte(`{"name":"solo"}`), &l); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(l) != 1 || l[0].String() != "solo" {
			t.Errorf("unexpected list %+v", l)
		}
		if err := json.Unmarshal([]byte(`""`), &l); err != nil || l != nil {
			t.Errorf("expected empty list, got %+v (%v)", l, err)
		}
	})
}
