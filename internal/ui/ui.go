package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/formatter"
	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/tasks"
	"github.com/desertthunder/scrobblex/internal/theme"
	"github.com/desertthunder/scrobblex/internal/web"
)

const (
	defaultWidth  = 100
	defaultHeight = 40
	listHeight    = 12
)

// Options configure a [Model]. Engine and User are required.
type Options struct {
	Engine     tasks.Engine
	User       string
	Period     models.Period
	Theme      string
	DefaultTab string
	Delays     dashboard.Delays
	Scheduler  dashboard.Scheduler // nil uses real timers
	Logger     *log.Logger
	ExportDir  string
	Now        func() time.Time
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	engine tasks.Engine
	logger *log.Logger
	now    func() time.Time

	view   *termView
	ctrl   *dashboard.Controller
	loader *dashboard.Loader
	menus  *dashboard.Dropdowns

	user      string
	period    models.Period
	exportDir string

	width, height int
	palette       *Palette
	bar           progress.Model
	help          help.Model
	keys          keyMap
	lists         map[string]list.Model
	cursor        int

	dash         *models.Dashboard
	progressChan chan tasks.ProgressUpdate
	doneChan     chan loadedMsg
	status       string
	err          error
}

// NewModel creates a new TUI model for one user's dashboard.
func NewModel(ctx context.Context, opts Options) (*Model, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("%w: engine", shared.ErrMissingArgument)
	}
	if opts.User == "" {
		return nil, fmt.Errorf("%w: user", shared.ErrMissingArgument)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Period == "" {
		opts.Period = models.PeriodOverall
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	view := newTermView()
	ctrl, err := dashboard.NewController(dashboard.Options{
		View:       view,
		Surface:    view,
		Scheduler:  opts.Scheduler,
		Logger:     opts.Logger,
		Theme:      opts.Theme,
		DefaultTab: opts.DefaultTab,
		Delays:     opts.Delays,
	})
	if err != nil {
		return nil, err
	}

	loader := dashboard.NewLoader(dashboard.LoaderOptions{
		View:      view,
		Scheduler: opts.Scheduler,
		Logger:    opts.Logger,
	})

	m := &Model{
		ctx:       ctx,
		engine:    opts.Engine,
		logger:    opts.Logger,
		now:       opts.Now,
		view:      view,
		ctrl:      ctrl,
		loader:    loader,
		menus:     dashboard.NewDropdowns(view, web.Menus()...),
		user:      opts.User,
		period:    opts.Period,
		exportDir: opts.ExportDir,
		width:     defaultWidth,
		height:    defaultHeight,
		help:      help.New(),
		keys:      newKeyMap(),
		lists:     make(map[string]list.Model),
	}
	m.restyle()
	return m, nil
}

// Init activates the default tab and starts the first dashboard build.
func (m *Model) Init() tea.Cmd {
	if err := m.ctrl.Init(); err != nil {
		m.err = err
	}
	return tea.Batch(m.load(), frame())
}

// Close stops the loader timers and tears down every chart.
func (m *Model) Close() {
	m.loader.Stop()
	m.ctrl.Teardown()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		for tab, l := range m.lists {
			l.SetSize(msg.Width-4, listHeight)
			m.lists[tab] = l
		}
		return m, nil

	case frameMsg:
		return m, frame()

	case progressMsg:
		update := tasks.ProgressUpdate(msg)
		m.loader.Advance(update.Percent())
		m.status = update.Message
		return m, m.waitForProgress()

	case loadedMsg:
		m.progressChan = nil
		m.doneChan = nil
		return m, m.loaded(msg)

	case exportedMsg:
		if msg.err != nil {
			m.loader.Stop()
			m.err = msg.err
			return m, nil
		}
		m.loader.Complete()
		m.err = nil
		m.status = tasks.ExportUpdate(msg.path, msg.items).Message
		return m, nil

	case tea.KeyMsg:
		if open := m.menus.Open(); open != "" {
			return m.handleMenuKeys(open, msg)
		}
		return m.handleKeys(msg)
	}

	return m.updateList(msg)
}

func (m *Model) loaded(msg loadedMsg) tea.Cmd {
	if msg.err != nil {
		m.loader.Stop()
		if errors.Is(msg.err, shared.ErrUserNotFound) {
			m.err = errors.New(web.NoUserMessage)
		} else {
			m.err = msg.err
		}
		m.logger.Error("dashboard build failed", "user", m.user, "err", msg.err)
		return nil
	}

	m.dash = msg.dash
	m.err = nil
	m.status = fmt.Sprintf("Loaded %s (%s)", m.user, m.period.Label())
	m.ctrl.SetData(&msg.dash.Charts)
	if m.ctrl.Active() == "" {
		if err := m.ctrl.Init(); err != nil {
			m.err = err
		}
	} else {
		m.ctrl.Refresh()
	}
	m.loader.Complete()
	m.lists = newTopLists(msg.dash, m.width-4, listHeight)
	return nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.prev):
		return m, m.shiftTab(-1)
	case key.Matches(msg, m.keys.next):
		return m, m.shiftTab(1)
	case key.Matches(msg, m.keys.period):
		return m, m.openMenu(web.MenuPeriod)
	case key.Matches(msg, m.keys.theme):
		return m, m.openMenu(web.MenuTheme)
	case key.Matches(msg, m.keys.export):
		return m, m.openMenu(web.MenuExport)
	case key.Matches(msg, m.keys.reload):
		return m, m.load()
	}
	return m.updateList(msg)
}

func (m *Model) handleMenuKeys(open string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := menuItems(open)
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.menus.ClickOutside(false)
	case key.Matches(msg, m.keys.up):
		m.cursor = (m.cursor - 1 + len(items)) % len(items)
	case key.Matches(msg, m.keys.down):
		m.cursor = (m.cursor + 1) % len(items)
	case key.Matches(msg, m.keys.enter):
		m.menus.CloseAll()
		return m, m.choose(open, items[m.cursor].Value)
	case key.Matches(msg, m.keys.period), key.Matches(msg, m.keys.theme), key.Matches(msg, m.keys.export):
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m *Model) openMenu(id string) tea.Cmd {
	if err := m.menus.Toggle(id); err != nil {
		m.err = err
		return nil
	}
	m.cursor = 0
	return nil
}

func (m *Model) choose(menu, value string) tea.Cmd {
	switch menu {
	case web.MenuPeriod:
		p, err := models.ParsePeriod(value)
		if err != nil {
			m.err = err
			return nil
		}
		m.period = p
		return m.load()
	case web.MenuTheme:
		m.ctrl.SetTheme(value)
		m.restyle()
		m.ctrl.Refresh()
	case web.MenuExport:
		f, err := formatter.ParseFormat(value)
		if err != nil {
			m.err = err
			return nil
		}
		return m.export(f)
	}
	return nil
}

func (m *Model) shiftTab(delta int) tea.Cmd {
	tabs := m.ctrl.Tabs()
	i := slices.Index(tabs, m.ctrl.Active())
	next := tabs[(i+delta+len(tabs))%len(tabs)]
	if err := m.ctrl.Activate(next); err != nil {
		m.err = err
	}
	return nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	tab := m.ctrl.Active()
	l, ok := m.lists[tab]
	if !ok {
		return m, nil
	}
	var cmd tea.Cmd
	m.lists[tab], cmd = l.Update(msg)
	return m, cmd
}

// restyle rebuilds every theme-dependent style from the controller's theme.
func (m *Model) restyle() {
	d := m.ctrl.Theme()
	m.palette = NewPalette(d)
	m.bar = progress.New(progress.WithSolidFill(hex(d.Colors().Accent)), progress.WithoutPercentage())
	m.bar.Width = max(m.width-4, 10)
}

// load starts a dashboard build for the current user and period.
func (m *Model) load() tea.Cmd {
	if m.progressChan != nil {
		return nil
	}

	m.err = nil
	m.status = "Loading " + m.user
	m.loader.Start()

	progressChan := make(chan tasks.ProgressUpdate, 50)
	doneChan := make(chan loadedMsg, 1)
	m.progressChan = progressChan
	m.doneChan = doneChan

	engine, user, period := m.engine, m.user, m.period
	go func() {
		dash, err := engine.Build(m.ctx, progressChan, user, period)
		doneChan <- loadedMsg{dash: dash, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		update, ok := <-progressChan
		if !ok {
			return <-doneChan
		}
		return progressMsg(update)
	}
}

func (m *Model) export(f formatter.Format) tea.Cmd {
	if m.dash == nil {
		m.err = fmt.Errorf("%w: load a dashboard first", shared.ErrMissingArgument)
		return nil
	}

	m.loader.Start()
	dash, user, dir, now := m.dash, m.user, m.exportDir, m.now()
	return func() tea.Msg {
		e, err := formatter.Render(f, user, dash, dash.Recent, now)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := formatter.WriteExport(e, dir)
		return exportedMsg{path: path, items: e.Items, err: err}
	}
}

// View renders the header, tab bar, menus, loader and the active tab.
func (m *Model) View() string {
	snap := m.view.snapshot()
	p := m.palette

	sections := []string{m.renderHeader(), m.renderTabs(snap)}
	if menus := m.renderMenus(snap); menus != "" {
		sections = append(sections, menus)
	}
	if snap.loader.Visible {
		bar := m.bar.ViewAs(snap.loader.Progress / 100)
		if snap.loader.Opacity < 1 {
			bar = lipgloss.NewStyle().Faint(true).Render(bar)
		}
		sections = append(sections, bar+" "+p.help.Render(snap.loader.Text()))
	}
	if m.err != nil {
		sections = append(sections, p.err.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		sections = append(sections, p.help.Render(m.status))
	}

	for _, tab := range m.ctrl.Tabs() {
		if !snap.visible[tab] {
			continue
		}
		sections = append(sections, m.renderPanel(tab, snap))
	}

	sections = append(sections, m.help.View(m.keys))
	return strings.Join(sections, "\n\n")
}

func (m *Model) renderHeader() string {
	title := m.palette.title.Render("scrobblex")
	sub := m.palette.text.Render(fmt.Sprintf("%s • %s • %s", m.user, m.period.Label(), m.ctrl.Theme().Name))
	return title + "  " + sub
}

func (m *Model) renderTabs(snap snapshot) string {
	labels := make([]string, 0, len(m.ctrl.Tabs()))
	for _, tab := range m.ctrl.Tabs() {
		style := m.palette.tab
		if snap.active[tab] {
			style = m.palette.activeTab
		}
		labels = append(labels, style.Render(web.TabLabel(tab)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labels...)
}

func (m *Model) renderMenus(snap snapshot) string {
	var b strings.Builder
	for _, id := range m.menus.IDs() {
		if !snap.menus[id] {
			continue
		}
		b.WriteString(m.palette.title.Render(menuTitle(id)))
		for i, item := range menuItems(id) {
			b.WriteString("\n")
			if i == m.cursor {
				b.WriteString(m.palette.selected.Render("> " + item.Label))
			} else {
				b.WriteString(m.palette.text.Render("  " + item.Label))
			}
		}
	}
	return b.String()
}

func (m *Model) renderPanel(tab string, snap snapshot) string {
	var parts []string
	if tab == charts.TabHome {
		if summary := m.renderSummary(); summary != "" {
			parts = append(parts, summary)
		}
	}

	for _, def := range charts.ForTab(charts.Definitions(), tab) {
		s, ok := snap.snippets[def.Anchor]
		if !ok {
			continue
		}
		parts = append(parts, m.palette.card.Render(renderChart(s, m.width-8, m.palette)))
	}

	if l, ok := m.lists[tab]; ok {
		parts = append(parts, l.View())
	}

	out := strings.Join(parts, "\n")
	if snap.opacity[tab] < 1 {
		out = lipgloss.NewStyle().Faint(true).Render(out)
	}
	return out
}

func (m *Model) renderSummary() string {
	d := m.dash
	if d == nil {
		return ""
	}

	var lines []string
	if d.User != nil {
		lines = append(lines, fmt.Sprintf("%s • %d scrobbles since %s", d.User.Name, d.User.Playcount, d.User.Registered.Format("Jan 2006")))
	}
	if d.NowPlaying != nil {
		lines = append(lines, fmt.Sprintf("Now playing: %s by %s", d.NowPlaying.Track, d.NowPlaying.Artist))
	}
	if w := d.Weekly; w != nil {
		lines = append(lines, fmt.Sprintf("This week: %d scrobbles (%+.1f%%), %.1f hours",
			w.Current.Scrobbles,
			models.Trend(float64(w.Current.Scrobbles), float64(w.Previous.Scrobbles)),
			w.Current.ListeningHours,
		))
	}
	if len(lines) == 0 {
		return ""
	}
	return m.palette.card.Render(m.palette.text.Render(strings.Join(lines, "\n")))
}

func menuTitle(id string) string {
	switch id {
	case web.MenuPeriod:
		return "Period"
	case web.MenuTheme:
		return "Theme"
	default:
		return "Export"
	}
}

// menuItems lists the choices of a dropdown.
func menuItems(id string) []web.MenuItem {
	var items []web.MenuItem
	switch id {
	case web.MenuPeriod:
		for _, p := range models.Periods() {
			items = append(items, web.MenuItem{Label: p.Label(), Value: string(p)})
		}
	case web.MenuTheme:
		for _, d := range theme.All() {
			items = append(items, web.MenuItem{Label: d.Name, Value: d.Key})
		}
	case web.MenuExport:
		for _, f := range formatter.Formats() {
			items = append(items, web.MenuItem{Label: strings.ToUpper(string(f)), Value: string(f)})
		}
	}
	return items
}
