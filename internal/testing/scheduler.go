package testing

import (
	"sync"
	"time"

	"github.com/desertthunder/scrobblex/internal/dashboard"
)

// FakeScheduler is a virtual clock for [dashboard.Scheduler]. Nothing fires until [FakeScheduler.Advance].
//
// Timers due at the same instant fire in the order they were scheduled.
type FakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *FakeScheduler
	at      time.Duration
	every   time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

func (s *FakeScheduler) add(at, every time.Duration, fn func()) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, at: at, every: every, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *FakeScheduler) After(d time.Duration, fn func()) dashboard.Timer {
	return s.add(s.Now()+d, 0, fn)
}

func (s *FakeScheduler) Every(d time.Duration, fn func()) dashboard.Timer {
	return s.add(s.Now()+d, d, fn)
}

// Now is the virtual time elapsed since creation.
func (s *FakeScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Pending counts timers that are neither stopped nor fired.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Scheduled counts every timer ever created.
func (s *FakeScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Advance moves the clock forward by d, firing due timers in order.
// Callbacks run without the scheduler lock and may schedule or stop timers.
func (s *FakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	for {
		var next *fakeTimer
		for _, t := range s.timers {
			if t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			break
		}

		s.now = next.at
		if next.every > 0 {
			next.at += next.every
		} else {
			next.stopped = true
		}

		s.mu.Unlock()
		next.fn()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}
