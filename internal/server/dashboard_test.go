package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/tasks"
	tu "github.com/desertthunder/scrobblex/internal/testing"
	"github.com/desertthunder/scrobblex/internal/web"
)

// wednesday is 2024-03-13 15:30 UTC.
var wednesday = time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC)

type fakeEngine struct {
	dash    *models.Dashboard
	err     error
	updates []tasks.ProgressUpdate
	builds  int
	periods []models.Period
}

func (f *fakeEngine) Build(ctx context.Context, progress chan<- tasks.ProgressUpdate, user string, period models.Period) (*models.Dashboard, error) {
	f.builds++
	f.periods = append(f.periods, period)
	for _, u := range f.updates {
		select {
		case progress <- u:
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if !strings.EqualFold(user, f.dash.Username) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, user)
	}
	d := *f.dash
	d.Period = period
	return &d, nil
}

func (f *fakeEngine) Sync(ctx context.Context, progress chan<- tasks.ProgressUpdate, store tasks.ScrobbleStore, profileID, user string) (*tasks.SyncResult, error) {
	return nil, shared.ErrNotImplemented
}

func sampleDashboard() *models.Dashboard {
	return &models.Dashboard{
		Username:    "alice",
		User:        &models.UserInfo{Name: "alice", Playcount: 1234, Country: "Canada"},
		TopTracks:   []models.Track{{Rank: 1, Name: "Song A", Artist: "Artist X", Playcount: 42}},
		GeneratedAt: wednesday,
		Charts: models.ChartData{
			Tracks: &models.Dataset{Labels: []string{"Song A"}, Data: []float64{42}, Artists: []string{"Artist X"}},
		},
	}
}

type dashboardFixture struct {
	d      *Dashboard
	r      *BasicRouter
	engine *fakeEngine
	sched  *tu.FakeScheduler
	now    time.Time
	cookie *http.Cookie
}

func newDashboardFixture(t *testing.T, opts DashboardOptions) *dashboardFixture {
	t.Helper()
	f := &dashboardFixture{
		engine: &fakeEngine{
			dash:    sampleDashboard(),
			updates: []tasks.ProgressUpdate{{Phase: tasks.FetchTopLists, Step: 1, Total: 3}},
		},
		sched: tu.NewFakeScheduler(),
		now:   wednesday,
	}

	opts.Engine = f.engine
	opts.Config.DefaultTab = charts.TabTracks
	opts.Scheduler = func() dashboard.Scheduler { return f.sched }
	opts.Rand = func() float64 { return 0.5 }
	opts.Now = func() time.Time { return f.now }

	d, err := NewDashboard(opts)
	if err != nil {
		t.Fatalf("NewDashboard failed: %v", err)
	}
	t.Cleanup(d.Close)

	f.d = d
	f.r = NewBasicRouter()
	d.Register(f.r)
	return f
}

// do serves a request, sending the fixture's cookie and remembering a new one.
func (f *dashboardFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}

	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == clientIDCookieName {
			f.cookie = c
		}
	}
	return w
}

func (f *dashboardFixture) session(t *testing.T) *session {
	t.Helper()
	if f.cookie == nil {
		t.Fatal("no client-id cookie")
	}
	f.d.sessions.mu.Lock()
	defer f.d.sessions.mu.Unlock()
	sess, ok := f.d.sessions.byID[f.cookie.Value]
	if !ok {
		t.Fatalf("no session for %s", f.cookie.Value)
	}
	return sess
}

func (f *dashboardFixture) load(t *testing.T, body string) *session {
	t.Helper()
	if w := f.do(http.MethodPost, "/dashboard", body); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from /dashboard, got %d: %s", w.Code, w.Body.String())
	}
	return f.session(t)
}

func hasElement(patches []patch, substr string) bool {
	for _, p := range patches {
		if strings.Contains(p.elements, substr) {
			return true
		}
	}
	return false
}

func TestNewDashboard(t *testing.T) {
	if _, err := NewDashboard(DashboardOptions{}); err == nil {
		t.Error("expected an error without an engine")
	}
}

func TestIndex(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{})

	w := f.do(http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.cookie == nil {
		t.Fatal("expected a client-id cookie")
	}
	if !f.cookie.HttpOnly || f.cookie.Path != "/" {
		t.Errorf("unexpected cookie: %+v", f.cookie)
	}

	body := w.Body.String()
	for _, anchor := range charts.Anchors() {
		if !strings.Contains(body, `id="`+anchor+`"`) {
			t.Errorf("missing anchor %s", anchor)
		}
	}
	if !strings.Contains(body, `data-theme="black"`) {
		t.Error("expected the default theme")
	}

	sess := f.session(t)
	if got := sess.ctrl.Active(); got != charts.TabTracks {
		t.Errorf("expected the default tab to be active, got %q", got)
	}
	if !hasElement(sess.view.drain(), `id="tab-btn-tracks"`) {
		t.Error("expected the tab buttons to be queued for the event stream")
	}

	first := f.cookie.Value
	w = f.do(http.MethodGet, "/", "")
	if len(w.Result().Cookies()) != 0 {
		t.Error("expected the session to be reused without a new cookie")
	}
	if f.cookie.Value != first || f.d.sessions.len() != 1 {
		t.Errorf("expected one session, got %d", f.d.sessions.len())
	}

	w = f.do(http.MethodDelete, "/", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestTabsHandler(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{})
	f.do(http.MethodGet, "/", "")
	sess := f.session(t)

	t.Run("activate", func(t *testing.T) {
		w := f.do(http.MethodPost, "/tabs", `{"tab":"albums"}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		f.sched.Advance(400 * time.Millisecond)
		if got := sess.ctrl.Active(); got != charts.TabAlbums {
			t.Errorf("expected albums, got %q", got)
		}
	})

	t.Run("unknown tab", func(t *testing.T) {
		w := f.do(http.MethodPost, "/tabs", `{"tab":"album"}`)
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `did you mean "albums"`) {
			t.Errorf("expected a suggestion, got %q", w.Body.String())
		}
		if got := sess.ctrl.Active(); got != charts.TabAlbums {
			t.Errorf("expected the active tab to be unchanged, got %q", got)
		}
	})

	t.Run("invalid signals", func(t *testing.T) {
		w := f.do(http.MethodPost, "/tabs", `{"tab":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestDropdownsHandler(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{})
	f.do(http.MethodGet, "/", "")
	sess := f.session(t)

	tests := []struct {
		name   string
		body   string
		status int
		open   string
	}{
		{"open", `{"dropdown":"theme"}`, http.StatusNoContent, web.MenuTheme},
		{"switch", `{"dropdown":"period"}`, http.StatusNoContent, web.MenuPeriod},
		{"toggle closed", `{"dropdown":"period"}`, http.StatusNoContent, ""},
		{"unknown", `{"dropdown":"themes"}`, http.StatusNotFound, ""},
		{"reopen", `{"dropdown":"export"}`, http.StatusNoContent, web.MenuExport},
		{"outside", `{"outside":true}`, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/dropdowns", tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if got := sess.menus.Open(); got != tt.open {
				t.Errorf("expected open menu %q, got %q", tt.open, got)
			}
		})
	}

	t.Run("period selection", func(t *testing.T) {
		sess.view.reset()
		w := f.do(http.MethodPost, "/dropdowns", `{"period":"7day","outside":true}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
		if sess.period != models.Period7Day {
			t.Errorf("expected the period to be remembered, got %q", sess.period)
		}
		if !hasElement(sess.view.drain(), "Last 7 Days") {
			t.Error("expected the form to be re-rendered with the period label")
		}
	})
}

func TestLoadHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		sess := f.load(t, `{"username":" alice ","period":"7day","theme":"dark"}`)

		if sess.dash == nil || sess.username != "alice" || sess.errMsg != "" {
			t.Fatalf("unexpected session state: user=%q err=%q", sess.username, sess.errMsg)
		}
		if got := sess.ctrl.Theme().Key; got != "dark" {
			t.Errorf("expected the dark theme, got %q", got)
		}
		if f.engine.periods[0] != models.Period7Day {
			t.Errorf("expected a 7day build, got %v", f.engine.periods)
		}

		state := sess.loader.State()
		if state.Progress != 100 || sess.loader.Running() {
			t.Errorf("expected a completed loader, got %+v", state)
		}

		f.sched.Advance(400 * time.Millisecond)
		if _, ok := sess.ctrl.Charts(charts.TabTracks)["tracks"]; !ok {
			t.Error("expected the tracks chart after the fade")
		}
		if _, ok := sess.ctrl.Charts(charts.TabTracks)["recent"]; ok {
			t.Error("expected no recent chart without data")
		}

		f.sched.Advance(time.Second)
		if sess.loader.Visible() {
			t.Error("expected the loader to be hidden")
		}

		patches := sess.view.drain()
		for _, want := range []string{`id="summary"`, `id="tables"`, "Song A", `id="tracks-chart"`} {
			if !hasElement(patches, want) {
				t.Errorf("expected a patch containing %q", want)
			}
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		sess := f.load(t, `{"username":"bob","period":"overall"}`)

		if sess.errMsg != web.NoUserMessage {
			t.Errorf("expected the no-user message, got %q", sess.errMsg)
		}
		if sess.dash != nil {
			t.Error("expected no dashboard")
		}
		if sess.loader.Visible() {
			t.Error("expected the loader to be stopped")
		}
		if !hasElement(sess.view.drain(), "No user exists with that username.") {
			t.Error("expected the form error to be patched")
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		f.engine.err = shared.ErrServiceUnavailable

		w := f.do(http.MethodPost, "/dashboard", `{"username":"alice"}`)
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", w.Code)
		}
		if sess := f.session(t); sess.errMsg == "" || sess.errMsg == web.NoUserMessage {
			t.Errorf("expected a generic error, got %q", sess.errMsg)
		}
	})

	t.Run("invalid period", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		w := f.do(http.MethodPost, "/dashboard", `{"username":"alice","period":"weekly"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if f.engine.builds != 0 {
			t.Error("expected no build")
		}
	})

	t.Run("theme only", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		sess := f.load(t, `{"username":"alice"}`)
		sess.view.reset()

		f.load(t, `{"username":"alice","theme":"orange"}`)
		if f.engine.builds != 1 {
			t.Errorf("expected the dashboard not to be rebuilt, got %d builds", f.engine.builds)
		}
		if got := sess.ctrl.Theme().Key; got != "orange" {
			t.Errorf("expected orange, got %q", got)
		}

		var restyled bool
		for _, p := range sess.view.drain() {
			if p.signals["theme"] == "orange" && strings.Contains(p.script, "document.body.className") {
				restyled = true
			}
		}
		if !restyled {
			t.Error("expected a restyle patch")
		}
	})

	t.Run("unknown theme", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		sess := f.load(t, `{"theme":"neon"}`)
		if got := sess.ctrl.Theme().Key; got != "black" {
			t.Errorf("expected the black fallback, got %q", got)
		}
	})
}

func TestExportHandler(t *testing.T) {
	t.Run("no dashboard", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		if w := f.do(http.MethodGet, "/export?format=json", ""); w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	})

	t.Run("formats", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		f.load(t, `{"username":"alice","period":"7day"}`)

		tests := []struct {
			format      string
			status      int
			contentType string
			filename    string
		}{
			{"json", http.StatusOK, "application/json", "alice_data_20240313_153000.json"},
			{"csv", http.StatusOK, "application/zip", "alice_data_20240313_153000.zip"},
			{"yaml", http.StatusOK, "application/yaml", "alice_data_20240313_153000.yaml"},
			{"xml", http.StatusBadRequest, "", ""},
			{"scrobbles", http.StatusNotFound, "", ""},
		}

		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				w := f.do(http.MethodGet, "/export?format="+tt.format, "")
				if w.Code != tt.status {
					t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
				}
				if tt.status != http.StatusOK {
					return
				}
				if got := w.Header().Get("Content-Type"); got != tt.contentType {
					t.Errorf("expected %s, got %s", tt.contentType, got)
				}
				if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, tt.filename) {
					t.Errorf("expected filename %s, got %s", tt.filename, got)
				}
				if w.Body.Len() == 0 {
					t.Error("expected a body")
				}
			})
		}
	})

	t.Run("scrobble history", func(t *testing.T) {
		var users []string
		f := newDashboardFixture(t, DashboardOptions{
			History: func(ctx context.Context, user string) ([]models.Scrobble, error) {
				users = append(users, user)
				return []models.Scrobble{{Track: "Song A", Artist: "Artist X", PlayedAt: wednesday}}, nil
			},
		})
		f.load(t, `{"username":"alice"}`)

		w := f.do(http.MethodGet, "/export?format=scrobbles", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "alice_scrobbles.csv") {
			t.Errorf("unexpected disposition: %s", got)
		}
		if !strings.Contains(w.Body.String(), "Song A") {
			t.Errorf("expected the scrobble in the export, got %q", w.Body.String())
		}
		if len(users) != 1 || users[0] != "alice" {
			t.Errorf("unexpected history lookups: %v", users)
		}
	})
}

func TestEventsHandler(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{})
	f.do(http.MethodGet, "/", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.AddCookie(f.cookie)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)

	body := w.Body.String()
	for _, want := range []string{"datastar-patch-elements", "datastar-patch-signals", "tab-btn-tracks"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in the event stream", want)
		}
	}
	if f.session(t).view.pending() != 0 {
		t.Error("expected the queue to be drained")
	}
}

func TestSessionExpiry(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{SessionTTL: 30 * time.Minute})
	f.do(http.MethodGet, "/", "")
	old := f.session(t)
	cookie := f.cookie

	f.now = f.now.Add(31 * time.Minute)
	f.cookie = nil
	f.do(http.MethodGet, "/", "")

	if err := old.ctrl.Activate(charts.TabHome); err != shared.ErrControllerClosed {
		t.Errorf("expected ErrControllerClosed, got %v", err)
	}
	if f.d.sessions.len() != 1 {
		t.Errorf("expected only the new session, got %d", f.d.sessions.len())
	}

	f.cookie = cookie
	w := f.do(http.MethodPost, "/tabs", `{"tab":"home"}`)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected a fresh session for the old cookie, got %d", w.Code)
	}
	if f.cookie.Value == cookie.Value {
		t.Error("expected the expired client id to be replaced")
	}
}

func TestSessionIDs(t *testing.T) {
	t.Run("unknown cookie gets a new id", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		forged := &http.Cookie{Name: clientIDCookieName, Value: uuid.NewString()}
		f.cookie = forged

		f.do(http.MethodGet, "/", "")

		if f.cookie.Value == forged.Value {
			t.Fatal("expected the client-supplied id to be replaced")
		}
		f.d.sessions.mu.Lock()
		_, adopted := f.d.sessions.byID[forged.Value]
		f.d.sessions.mu.Unlock()
		if adopted {
			t.Error("no session should be keyed by the client-supplied id")
		}
		f.session(t)
	})

	t.Run("malformed cookie", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		f.cookie = &http.Cookie{Name: clientIDCookieName, Value: "not-a-uuid"}

		f.do(http.MethodGet, "/", "")

		if _, err := uuid.Parse(f.cookie.Value); err != nil {
			t.Errorf("expected a minted uuid, got %q", f.cookie.Value)
		}
		if f.d.sessions.len() != 1 {
			t.Errorf("expected one session, got %d", f.d.sessions.len())
		}
	})

	t.Run("known cookie is kept", func(t *testing.T) {
		f := newDashboardFixture(t, DashboardOptions{})
		f.do(http.MethodGet, "/", "")
		first := f.cookie.Value

		w := f.do(http.MethodGet, "/", "")
		if len(w.Result().Cookies()) != 0 || f.cookie.Value != first {
			t.Error("expected the minted id to be reused")
		}
	})
}

func TestHealth(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{})
	w := f.do(http.MethodGet, "/healthz", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) || !strings.Contains(w.Body.String(), `"sessions":0`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestStatic(t *testing.T) {
	f := newDashboardFixture(t, DashboardOptions{})
	w := f.do(http.MethodGet, "/static/dashboard.css", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
