package dashboard

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler schedules callbacks for transitions and animations.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// TimerScheduler runs callbacks on real timers while holding the owner's lock, so callbacks
// never interleave with the owner's public methods.
//
// A timer stopped while its callback is waiting for the lock does not run.
type TimerScheduler struct {
	mu sync.Locker
}

// NewTimerScheduler creates a [TimerScheduler] serialized by mu.
func NewTimerScheduler(mu sync.Locker) *TimerScheduler {
	return &TimerScheduler{mu: mu}
}

type oneShot struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (o *oneShot) Stop() bool {
	o.stopped.Store(true)
	return o.t.Stop()
}

func (s *TimerScheduler) After(d time.Duration, fn func()) Timer {
	o := &oneShot{}
	o.t = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if o.stopped.Load() {
			return
		}
		fn()
	})
	return o
}

type repeating struct {
	t    *time.Ticker
	done chan struct{}
	once sync.Once
}

func (r *repeating) Stop() bool {
	stopped := false
	r.once.Do(func() {
		r.t.Stop()
		close(r.done)
		stopped = true
	})
	return stopped
}

func (s *TimerScheduler) Every(d time.Duration, fn func()) Timer {
	r := &repeating{t: time.NewTicker(d), done: make(chan struct{})}
	go func() {
		for {
			select {
			case <-r.done:
				return
			case <-r.t.C:
				s.mu.Lock()
				select {
				case <-r.done:
					s.mu.Unlock()
					return
				default:
				}
				fn()
				s.mu.Unlock()
			}
		}
	}()
	return r
}
