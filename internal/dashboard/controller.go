// Package dashboard owns the interactive state of one dashboard: the active tab and its charts,
// the loader animation and the dropdown menus.
//
// Front-ends implement [View] and [charts.Surface]; the types here decide what they show and when.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/theme"
)

// Delays are the cross-fade timings of a tab switch.
type Delays struct {
	Fade   time.Duration // fade-out before panels are swapped
	Reveal time.Duration // wait after the reveal before fading in
}

// DefaultDelays returns the 300ms fade and 10ms reveal delays.
func DefaultDelays() Delays {
	return Delays{Fade: 300 * time.Millisecond, Reveal: 10 * time.Millisecond}
}

// Options configure a [Controller]. Only View and Surface are required.
type Options struct {
	View        TabView
	Surface     charts.Surface
	Scheduler   Scheduler
	Logger      *log.Logger
	Data        *models.ChartData
	Theme       string
	DefaultTab  string
	Delays      Delays
	Definitions []charts.Definition
}

// Controller keeps exactly one tab active and owns the chart instances of every tab.
//
// Each tab switch cancels the transition timers of the previous one. Charts of a tab are
// destroyed before they are created again.
type Controller struct {
	mu sync.Mutex

	view       TabView
	surface    charts.Surface
	sched      Scheduler
	logger     *log.Logger
	data       *models.ChartData
	theme      string
	defaultTab string
	delays     Delays
	defs       []charts.Definition
	tabs       []string

	active     string
	registry   map[string]map[string]charts.Chart
	pending    []Timer
	generation uint64
	closed     bool
}

// NewController creates a [Controller]. It does not touch the view until [Controller.Init].
func NewController(opts Options) (*Controller, error) {
	if opts.View == nil || opts.Surface == nil {
		return nil, fmt.Errorf("%w: view and surface are required", shared.ErrMissingArgument)
	}

	c := &Controller{
		view:       opts.View,
		surface:    opts.Surface,
		sched:      opts.Scheduler,
		logger:     opts.Logger,
		data:       opts.Data,
		theme:      opts.Theme,
		defaultTab: opts.DefaultTab,
		delays:     opts.Delays,
		defs:       opts.Definitions,
		tabs:       charts.Tabs(),
		registry:   make(map[string]map[string]charts.Chart),
	}

	if c.sched == nil {
		c.sched = NewTimerScheduler(&c.mu)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.data == nil {
		c.data = &models.ChartData{}
	}
	if c.delays == (Delays{}) {
		c.delays = DefaultDelays()
	}
	if c.defs == nil {
		c.defs = charts.Definitions()
	}
	if c.defaultTab == "" {
		c.defaultTab = charts.TabHome
	}
	if !c.known(c.defaultTab) {
		return nil, shared.WithSuggestion(shared.ErrUnknownTab, c.defaultTab, c.tabs)
	}

	return c, nil
}

// Init activates the default tab.
func (c *Controller) Init() error {
	return c.Activate(c.defaultTab)
}

// Activate makes tab the only visible tab. Unknown ids return an error wrapping
// [shared.ErrUnknownTab] and leave the state untouched.
func (c *Controller) Activate(tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activate(tab)
}

func (c *Controller) activate(tab string) error {
	if c.closed {
		return shared.ErrControllerClosed
	}
	if !c.known(tab) {
		return shared.WithSuggestion(shared.ErrUnknownTab, tab, c.tabs)
	}

	c.cancelPending()
	c.generation++
	gen := c.generation
	c.active = tab

	border := theme.Resolve(c.theme).ActiveBorder
	for _, t := range c.tabs {
		c.view.SetButtonActive(t, t == tab, border)
		c.view.SetPanelOpacity(t, 0)
	}

	c.schedule(gen, c.delays.Fade, func() {
		for _, t := range c.tabs {
			if t == tab {
				continue
			}
			c.view.SetPanelVisible(t, false)
			c.view.SetPanelOpacity(t, 1)
		}

		c.view.SetPanelVisible(tab, true)
		c.view.SetPanelOpacity(tab, 0)
		c.schedule(gen, c.delays.Reveal, func() {
			c.view.SetPanelOpacity(tab, 1)
		})
		c.initCharts(tab)
	})

	c.logger.Debug("activated tab", "tab", tab, "generation", gen)
	return nil
}

// schedule runs fn after d unless a newer activation or teardown happened first.
func (c *Controller) schedule(gen uint64, d time.Duration, fn func()) {
	t := c.sched.After(d, func() {
		if c.closed || c.generation != gen {
			return
		}
		fn()
	})
	c.pending = append(c.pending, t)
}

func (c *Controller) cancelPending() {
	for _, t := range c.pending {
		t.Stop()
	}
	c.pending = nil
}

// InitCharts destroys the charts of tab and creates them again from the current data and theme.
func (c *Controller) InitCharts(tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return shared.ErrControllerClosed
	}
	if !c.known(tab) {
		return shared.WithSuggestion(shared.ErrUnknownTab, tab, c.tabs)
	}
	c.initCharts(tab)
	return nil
}

func (c *Controller) initCharts(tab string) {
	colors := theme.Resolve(c.theme).Colors()
	c.destroyTab(tab)

	created := make(map[string]charts.Chart)
	for _, def := range charts.ForTab(c.defs, tab) {
		l := c.logger.With("tab", tab, "chart", def.Name, "anchor", def.Anchor)

		if def.Present == nil || !def.Present(c.data) {
			l.Debug("skipping chart", "reason", shared.ErrMissingDataset)
			continue
		}

		ch, err := def.Build(charts.Target{Surface: c.surface, Anchor: def.Anchor, Name: def.Name}, c.data, colors)
		switch {
		case errors.Is(err, shared.ErrRenderTargetMissing):
			l.Warn("skipping chart", "err", err)
			continue
		case errors.Is(err, shared.ErrMissingDataset):
			l.Debug("skipping chart", "err", err)
			continue
		case err != nil:
			l.Error("failed to build chart", "err", err)
			continue
		}

		if r, ok := ch.(charts.Renderer); ok {
			if err := r.Render(); err != nil {
				l.Error("failed to render chart", "err", err)
				ch.Destroy()
				continue
			}
		}
		created[def.Name] = ch
	}

	if len(created) > 0 {
		c.registry[tab] = created
	}
}

// destroyTab destroys every registered chart of tab in name order.
func (c *Controller) destroyTab(tab string) {
	existing := c.registry[tab]
	if len(existing) == 0 {
		return
	}

	names := make([]string, 0, len(existing))
	for name := range existing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		existing[name].Destroy()
	}
	delete(c.registry, tab)
}

// Refresh re-creates the charts of the active tab, e.g. after [Controller.SetData].
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.active == "" {
		return
	}
	c.initCharts(c.active)
}

// SetData replaces the datasets. Charts are not touched until the next initialization.
func (c *Controller) SetData(data *models.ChartData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data == nil {
		data = &models.ChartData{}
	}
	c.data = data
}

// SetTheme changes the theme key and restyles the active button. Unknown keys resolve to
// [theme.Default] when used.
func (c *Controller) SetTheme(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.theme = key
	if c.active != "" && !c.closed {
		c.view.SetButtonActive(c.active, true, theme.Resolve(key).ActiveBorder)
	}
}

// Theme returns the resolved theme descriptor.
func (c *Controller) Theme() theme.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return theme.Resolve(c.theme)
}

// Active returns the active tab id, or "" before [Controller.Init].
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Tabs lists the tab ids in registration order.
func (c *Controller) Tabs() []string {
	return slices.Clone(c.tabs)
}

// Charts returns a copy of the live charts of tab keyed by chart name.
func (c *Controller) Charts(tab string) map[string]charts.Chart {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]charts.Chart, len(c.registry[tab]))
	for name, ch := range c.registry[tab] {
		out[name] = ch
	}
	return out
}

// Teardown cancels pending transitions and destroys every chart. Later activations fail with
// [shared.ErrControllerClosed].
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.cancelPending()
	for _, tab := range c.tabs {
		c.destroyTab(tab)
	}
	c.closed = true
}

func (c *Controller) known(tab string) bool {
	return slices.Contains(c.tabs, tab)
}
