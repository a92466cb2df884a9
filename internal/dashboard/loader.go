package dashboard

import (
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LoaderOptions configure a [Loader]. Zero values take the defaults below.
type LoaderOptions struct {
	View      LoaderView
	Scheduler Scheduler
	Logger    *log.Logger
	Rand      func() float64 // uniform in [0, 1)

	Start     float64       // 10
	Step      float64       // 15, the maximum increment per tick
	Interval  time.Duration // 150ms
	HideDelay time.Duration // 400ms after completion before fading out
	FadeDelay time.Duration // 300ms fade-out before the loader is hidden
}

// Loader animates a simulated progress bar from Start to 100 and then hides itself.
//
// Only one run is live at a time: [Loader.Start] cancels the previous run.
type Loader struct {
	mu     sync.Mutex
	view   LoaderView
	sched  Scheduler
	logger *log.Logger
	rand   func() float64

	start, step          float64
	interval, hide, fade time.Duration

	state   LoaderState
	run     uint64
	running bool
	ticker  Timer
	timers  []Timer
}

// NewLoader creates an idle, hidden [Loader].
func NewLoader(opts LoaderOptions) *Loader {
	l := &Loader{
		view:     opts.View,
		sched:    opts.Scheduler,
		logger:   opts.Logger,
		rand:     opts.Rand,
		start:    opts.Start,
		step:     opts.Step,
		interval: opts.Interval,
		hide:     opts.HideDelay,
		fade:     opts.FadeDelay,
	}

	if l.sched == nil {
		l.sched = NewTimerScheduler(&l.mu)
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	if l.rand == nil {
		l.rand = rand.Float64
	}
	if l.start <= 0 {
		l.start = 10
	}
	if l.step <= 0 {
		l.step = 15
	}
	if l.interval <= 0 {
		l.interval = 150 * time.Millisecond
	}
	if l.hide <= 0 {
		l.hide = 400 * time.Millisecond
	}
	if l.fade <= 0 {
		l.fade = 300 * time.Millisecond
	}
	return l
}

// Start shows the loader at the start value and begins ticking.
func (l *Loader) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancel()
	l.run++
	run := l.run
	l.running = true
	l.state = LoaderState{Visible: true, Opacity: 1, Progress: l.start}
	l.emit()

	l.ticker = l.sched.Every(l.interval, func() {
		if l.run != run || !l.running {
			return
		}
		l.advance(l.state.Progress + l.rand()*l.step)
	})
	l.logger.Debug("loader started", "run", run)
}

// Advance moves progress to pct. Progress never moves backwards.
func (l *Loader) Advance(pct float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.advance(pct)
}

// Complete jumps to 100 and starts the hide sequence.
func (l *Loader) Complete() {
	l.Advance(100)
}

func (l *Loader) advance(pct float64) {
	if pct < l.state.Progress {
		return
	}
	if pct >= 100 {
		l.finish()
		return
	}
	l.state.Progress = pct
	l.emit()
}

func (l *Loader) finish() {
	run := l.run
	l.running = false
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	l.state.Progress = 100
	l.emit()

	l.after(run, l.hide, func() {
		l.state.Opacity = 0
		l.emit()
		l.after(run, l.fade, func() {
			l.state.Visible = false
			l.emit()
			l.logger.Debug("loader hidden", "run", run)
		})
	})
}

func (l *Loader) after(run uint64, d time.Duration, fn func()) {
	t := l.sched.After(d, func() {
		if l.run != run {
			return
		}
		fn()
	})
	l.timers = append(l.timers, t)
}

// Stop cancels the current run and hides the loader immediately.
func (l *Loader) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel()
	l.run++
	l.running = false
	l.state = LoaderState{}
	l.emit()
}

func (l *Loader) cancel() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
	for _, t := range l.timers {
		t.Stop()
	}
	l.timers = nil
}

func (l *Loader) emit() {
	if l.view != nil {
		l.view.SetLoader(l.state)
	}
}

// State returns the current loader state.
func (l *Loader) State() LoaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Progress returns the current percentage in [0, 100].
func (l *Loader) Progress() float64 {
	return l.State().Progress
}

// Visible reports whether the loader overlay is shown.
func (l *Loader) Visible() bool {
	return l.State().Visible
}

// Running reports whether the loader is still ticking.
func (l *Loader) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
