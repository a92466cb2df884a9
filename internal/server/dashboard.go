package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	ds "github.com/starfederation/datastar-go/datastar"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/formatter"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/tasks"
	"github.com/desertthunder/scrobblex/internal/theme"
	"github.com/desertthunder/scrobblex/internal/web"
)

// DefaultKeepAlive is the heartbeat interval of open event streams.
const DefaultKeepAlive = 15 * time.Second

// DashboardOptions configure a [Dashboard]. Engine is required.
type DashboardOptions struct {
	Engine tasks.Engine

	// History loads the full scrobble history for the scrobbles export. Without it the export
	// falls back to the recent scrobbles of the loaded dashboard.
	History func(ctx context.Context, user string) ([]models.Scrobble, error)

	Config     shared.DashboardConfig
	SessionTTL time.Duration
	KeepAlive  time.Duration
	Logger     *log.Logger

	Scheduler func() dashboard.Scheduler // nil uses real timers
	Rand      func() float64
	Now       func() time.Time
}

// Dashboard serves the browser dashboard, one session per client.
type Dashboard struct {
	engine    tasks.Engine
	history   func(ctx context.Context, user string) ([]models.Scrobble, error)
	cfg       shared.DashboardConfig
	keepAlive time.Duration
	logger    *log.Logger
	sched     func() dashboard.Scheduler
	rand      func() float64
	now       func() time.Time

	tmpl     *template.Template
	sessions *sessionStore
}

// signals are the datastar signals posted by the page.
type signals struct {
	Tab      string `json:"tab"`
	Dropdown string `json:"dropdown"`
	Outside  bool   `json:"outside"`
	Username string `json:"username"`
	Period   string `json:"period"`
	Theme    string `json:"theme"`
}

// NewDashboard parses the page templates and creates an empty session store.
func NewDashboard(opts DashboardOptions) (*Dashboard, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("%w: dashboard engine", shared.ErrMissingArgument)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		engine:    opts.Engine,
		history:   opts.History,
		cfg:       opts.Config,
		keepAlive: opts.KeepAlive,
		logger:    opts.Logger,
		sched:     opts.Scheduler,
		rand:      opts.Rand,
		now:       opts.Now,
		tmpl:      tmpl,
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard)
	}
	if d.keepAlive <= 0 {
		d.keepAlive = DefaultKeepAlive
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.sched == nil {
		d.sched = func() dashboard.Scheduler { return nil }
	}

	ttl := opts.SessionTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	d.sessions = newSessionStore(ttl, d.now, d.newSession)
	return d, nil
}

func (d *Dashboard) newSession(id string) (*session, error) {
	logger := shared.WithLogger(d.logger, "session", id[:min(8, len(id))])
	view := newSSEView(d.tmpl, logger)

	period, err := models.ParsePeriod(d.cfg.Period)
	if err != nil {
		period = models.PeriodOverall
	}

	ctrl, err := dashboard.NewController(dashboard.Options{
		View:       view,
		Surface:    view,
		Scheduler:  d.sched(),
		Logger:     logger,
		Theme:      d.cfg.Theme,
		DefaultTab: d.cfg.DefaultTab,
		Delays:     dashboard.Delays{Fade: d.cfg.FadeDelay(), Reveal: d.cfg.RevealDelay()},
	})
	if err != nil {
		return nil, err
	}

	loader := dashboard.NewLoader(dashboard.LoaderOptions{
		View:      view,
		Scheduler: d.sched(),
		Logger:    logger,
		Rand:      d.rand,
		Start:     float64(d.cfg.LoaderStart),
		Interval:  d.cfg.LoaderInterval(),
		HideDelay: d.cfg.LoaderHideDelay(),
		FadeDelay: d.cfg.LoaderFadeDelay(),
	})

	logger.Debug("session created")
	return &session{
		id:     id,
		view:   view,
		ctrl:   ctrl,
		loader: loader,
		menus:  dashboard.NewDropdowns(view, web.Menus()...),
		period: period,
		theme:  theme.Resolve(d.cfg.Theme).Key,
	}, nil
}

// Register adds the dashboard routes to r.
func (d *Dashboard) Register(r Router) {
	r.Handle(http.MethodGet, "/{$}", http.HandlerFunc(d.Index))
	r.Handle(http.MethodGet, "/events", http.HandlerFunc(d.Events))
	r.Handle(http.MethodPost, "/tabs", http.HandlerFunc(d.Tabs))
	r.Handle(http.MethodPost, "/dropdowns", http.HandlerFunc(d.Dropdowns))
	r.Handle(http.MethodPost, "/dashboard", http.HandlerFunc(d.Load))
	r.Handle(http.MethodGet, "/export", http.HandlerFunc(d.Export))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(d.Health))
	r.Handle(http.MethodGet, "/static/", http.FileServer(http.FS(web.Static())))
}

// Close tears down every session.
func (d *Dashboard) Close() {
	d.sessions.closeAll()
}

func (d *Dashboard) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, err := d.sessions.get(w, r)
	if err != nil {
		d.logger.Error("failed to create session", "err", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// page assembles the template data of a session.
func (d *Dashboard) page(sess *session) web.Page {
	desc := sess.ctrl.Theme()
	active := sess.ctrl.Active()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	formats := make([]string, 0, len(formatter.Formats()))
	for _, f := range formatter.Formats() {
		formats = append(formats, string(f))
	}
	return web.Page{
		Theme:     desc,
		Tabs:      web.Tabs(active, desc.ActiveBorder),
		Menus:     web.BuildMenus(desc, sess.period, formats),
		Username:  sess.username,
		Period:    sess.period,
		Error:     sess.errMsg,
		Dashboard: sess.dash,
	}
}

// initialSignals hides every panel and menu. The controller reveals the active tab over the
// event stream.
func (d *Dashboard) initialSignals(sess *session, page web.Page) (string, error) {
	panels := make(map[string]any)
	for _, t := range sess.ctrl.Tabs() {
		panels[t] = map[string]any{"visible": false, "opacity": 0}
	}
	dropdowns := make(map[string]any)
	for _, id := range sess.menus.IDs() {
		dropdowns[id] = false
	}

	tab := sess.ctrl.Active()
	if tab == "" {
		tab = d.cfg.DefaultTab
	}
	if tab == "" {
		tab = charts.TabHome
	}
	sig := map[string]any{
		"tab":       tab,
		"dropdown":  "",
		"outside":   false,
		"username":  page.Username,
		"period":    string(page.Period),
		"theme":     page.Theme.Key,
		"heartbeat": 0,
		"panels":    panels,
		"dropdowns": dropdowns,
		"loader":    loaderSignals(sess.loader.State()),
	}
	b, err := shared.MarshalJSON(sig, false)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Index renders the full page and replays the active tab's transition over the event stream.
func (d *Dashboard) Index(w http.ResponseWriter, r *http.Request) {
	sess, ok := d.session(w, r)
	if !ok {
		return
	}

	sess.menus.CloseAll()
	sess.view.reset()

	page := d.page(sess)
	sig, err := d.initialSignals(sess, page)
	if err != nil {
		d.logger.Error("failed to encode signals", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	page.Signals = sig

	html, err := web.Render(d.tmpl, "index", page)
	if err != nil {
		d.logger.Error("couldn't execute template for index", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if active := sess.ctrl.Active(); active != "" {
		err = sess.ctrl.Activate(active)
	} else {
		err = sess.ctrl.Init()
	}
	if err != nil {
		d.logger.Warn("failed to activate tab", "err", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}

// Events streams the session's queued patches until the client disconnects.
func (d *Dashboard) Events(w http.ResponseWriter, r *http.Request) {
	sess, ok := d.session(w, r)
	if !ok {
		return
	}

	sse := ds.NewSSE(w, r)
	ctx := r.Context()
	ticker := time.NewTicker(d.keepAlive)
	defer ticker.Stop()

	flush := func() bool {
		for _, p := range sess.view.drain() {
			if err := p.send(sse); err != nil {
				d.logger.Debug("event stream closed", "session", sess.id, "err", err)
				return false
			}
		}
		return true
	}

	if !flush() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.view.ready:
			if !flush() {
				return
			}
		case tick := <-ticker.C:
			d.sessions.touch(sess)
			if err := sse.MarshalAndPatchSignals(map[string]any{"heartbeat": tick.Unix()}); err != nil {
				return
			}
		}
	}
}

// Tabs activates the tab named by the tab signal.
func (d *Dashboard) Tabs(w http.ResponseWriter, r *http.Request) {
	var sig signals
	if err := ds.ReadSignals(r, &sig); err != nil {
		d.logger.Warn("error reading signals", "err", err)
		http.Error(w, "Invalid signals", http.StatusBadRequest)
		return
	}
	sess, ok := d.session(w, r)
	if !ok {
		return
	}

	err := sess.ctrl.Activate(sig.Tab)
	switch {
	case errors.Is(err, shared.ErrUnknownTab):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, shared.ErrControllerClosed):
		http.Error(w, err.Error(), http.StatusGone)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Dropdowns toggles the dropdown signal or, for outside clicks, closes every menu. A changed
// period signal is remembered for the next load.
func (d *Dashboard) Dropdowns(w http.ResponseWriter, r *http.Request) {
	var sig signals
	if err := ds.ReadSignals(r, &sig); err != nil {
		d.logger.Warn("error reading signals", "err", err)
		http.Error(w, "Invalid signals", http.StatusBadRequest)
		return
	}
	sess, ok := d.session(w, r)
	if !ok {
		return
	}

	if sig.Period != "" {
		if p, err := models.ParsePeriod(sig.Period); err == nil {
			sess.mu.Lock()
			changed := p != sess.period
			sess.period = p
			sess.mu.Unlock()
			if changed {
				sess.view.section("form", d.page(sess))
			}
		}
	}

	if sig.Outside || sig.Dropdown == "" {
		sess.menus.ClickOutside(false)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := sess.menus.Toggle(sig.Dropdown); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Load applies the form signals. A new username or period rebuilds the dashboard behind the
// loader; a theme change alone restyles the page and re-creates the active tab's charts.
func (d *Dashboard) Load(w http.ResponseWriter, r *http.Request) {
	var sig signals
	if err := ds.ReadSignals(r, &sig); err != nil {
		d.logger.Warn("error reading signals", "err", err)
		http.Error(w, "Invalid signals", http.StatusBadRequest)
		return
	}
	period, err := models.ParsePeriod(sig.Period)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, ok := d.session(w, r)
	if !ok {
		return
	}

	username := strings.TrimSpace(sig.Username)
	sess.menus.CloseAll()

	sess.mu.Lock()
	themeChanged := sig.Theme != "" && theme.Resolve(sig.Theme).Key != sess.theme
	if sig.Theme != "" {
		sess.theme = theme.Resolve(sig.Theme).Key
	}
	unchanged := sess.dash != nil && strings.EqualFold(username, sess.username) && period == sess.period
	sess.period = period
	key := sess.theme
	sess.mu.Unlock()

	if themeChanged {
		sess.ctrl.SetTheme(key)
		sess.view.restyle(d.page(sess))
	}
	if username == "" || unchanged {
		sess.view.section("form", d.page(sess))
		if themeChanged {
			sess.view.section("summary", d.page(sess))
			sess.view.section("tables", d.page(sess))
			sess.ctrl.Refresh()
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	d.build(w, r, sess, username, period)
}

func (d *Dashboard) build(w http.ResponseWriter, r *http.Request, sess *session, username string, period models.Period) {
	ctx, cancel := sess.startBuild(r.Context())
	defer cancel()

	sess.loader.Start()
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			sess.loader.Advance(u.Percent())
		}
	}()

	dash, err := d.engine.Build(ctx, progress, username, period)
	close(progress)
	<-done

	if err != nil {
		sess.loader.Stop()
		sess.mu.Lock()
		if errors.Is(err, shared.ErrUserNotFound) {
			sess.errMsg = web.NoUserMessage
		} else {
			sess.errMsg = "Could not load the dashboard. Try again later."
		}
		sess.username = username
		sess.mu.Unlock()
		sess.view.section("form", d.page(sess))

		if errors.Is(err, shared.ErrUserNotFound) {
			d.logger.Info("unknown user", "user", username)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		d.logger.Error("failed to build dashboard", "user", username, "period", period, "err", err)
		http.Error(w, "Failed to load dashboard", http.StatusBadGateway)
		return
	}

	sess.mu.Lock()
	sess.username = dash.Username
	sess.errMsg = ""
	sess.dash = dash
	sess.mu.Unlock()

	sess.ctrl.SetData(&dash.Charts)
	page := d.page(sess)
	sess.view.section("form", page)
	sess.view.section("summary", page)
	sess.view.section("tables", page)

	if sess.ctrl.Active() == "" {
		err = sess.ctrl.Init()
	} else {
		sess.ctrl.Refresh()
	}
	if err != nil {
		d.logger.Warn("failed to activate tab", "err", err)
	}
	sess.loader.Complete()

	d.logger.Info("dashboard loaded", "user", dash.Username, "period", period, "charts", len(sess.ctrl.Charts(sess.ctrl.Active())))
	w.WriteHeader(http.StatusNoContent)
}

// Export downloads the loaded dashboard in the ?format= layout.
func (d *Dashboard) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := d.session(w, r)
	if !ok {
		return
	}

	format, err := formatter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess.mu.Lock()
	dash := sess.dash
	sess.mu.Unlock()
	if dash == nil {
		http.Error(w, "Load a dashboard before exporting", http.StatusConflict)
		return
	}

	sess.menus.CloseAll()
	sess.loader.Start()

	var scrobbles []models.Scrobble
	if format == formatter.FormatScrobbles {
		scrobbles = dash.Recent
		if d.history != nil {
			if scrobbles, err = d.history(r.Context(), dash.Username); err != nil {
				sess.loader.Stop()
				d.logger.Error("failed to load scrobble history", "user", dash.Username, "err", err)
				http.Error(w, "Failed to load scrobble history", http.StatusBadGateway)
				return
			}
		}
	}

	export, err := formatter.Render(format, dash.Username, dash, scrobbles, d.now())
	if err != nil {
		sess.loader.Stop()
		if errors.Is(err, shared.ErrNoScrobbles) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		d.logger.Error("failed to render export", "format", format, "err", err)
		http.Error(w, "Failed to render export", http.StatusInternalServerError)
		return
	}
	sess.loader.Complete()

	d.logger.Info("export", "user", dash.Username, "format", format, "items", export.Items, "bytes", len(export.Data))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Data)
}

// Health reports liveness and the number of open sessions.
func (d *Dashboard) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","sessions":%d,"charts":%d}`+"\n", d.sessions.len(), len(charts.Definitions()))
}
