package testing

import (
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
)

// ButtonState is the last state a [RecordingView] saw for a tab button.
type ButtonState struct {
	Active bool
	Class  string
}

// RecordingView implements [dashboard.View] and keeps the latest state of every element.
type RecordingView struct {
	mu        sync.Mutex
	buttons   map[string]ButtonState
	opacity   map[string]float64
	visible   map[string]bool
	dropdowns map[string]bool
	loader    []dashboard.LoaderState
	events    []string
}

func NewRecordingView() *RecordingView {
	return &RecordingView{
		buttons:   make(map[string]ButtonState),
		opacity:   make(map[string]float64),
		visible:   make(map[string]bool),
		dropdowns: make(map[string]bool),
	}
}

func (v *RecordingView) SetButtonActive(tab string, active bool, class string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buttons[tab] = ButtonState{Active: active, Class: class}
	v.events = append(v.events, fmt.Sprintf("button %s %t", tab, active))
}

func (v *RecordingView) SetPanelOpacity(tab string, opacity float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opacity[tab] = opacity
	v.events = append(v.events, fmt.Sprintf("opacity %s %g", tab, opacity))
}

func (v *RecordingView) SetPanelVisible(tab string, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[tab] = visible
	v.events = append(v.events, fmt.Sprintf("visible %s %t", tab, visible))
}

func (v *RecordingView) SetLoader(state dashboard.LoaderState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loader = append(v.loader, state)
}

func (v *RecordingView) SetDropdownOpen(id string, open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropdowns[id] = open
	v.events = append(v.events, fmt.Sprintf("dropdown %s %t", id, open))
}

func (v *RecordingView) Button(tab string) ButtonState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.buttons[tab]
}

func (v *RecordingView) Opacity(tab string) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opacity[tab]
}

func (v *RecordingView) Visible(tab string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible[tab]
}

// VisibleTabs lists visible tabs in sorted order.
func (v *RecordingView) VisibleTabs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for tab, ok := range v.visible {
		if ok {
			out = append(out, tab)
		}
	}
	slices.Sort(out)
	return out
}

func (v *RecordingView) DropdownOpen(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dropdowns[id]
}

// Loader returns the last loader state, or the zero state.
func (v *RecordingView) Loader() dashboard.LoaderState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.loader) == 0 {
		return dashboard.LoaderState{}
	}
	return v.loader[len(v.loader)-1]
}

// LoaderHistory returns every loader state in order.
func (v *RecordingView) LoaderHistory() []dashboard.LoaderState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.loader)
}

func (v *RecordingView) Events() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.events)
}

// Reset forgets recorded events, keeping the latest element state.
func (v *RecordingView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = nil
	v.loader = nil
}

// MemorySurface implements [charts.Surface] in memory.
type MemorySurface struct {
	mu       sync.Mutex
	anchors  map[string]bool
	mounted  map[string]charts.Snippet
	mounts   map[string]int
	unmounts map[string]int
}

// NewMemorySurface provides the given anchors, or every chart anchor when none are given.
func NewMemorySurface(anchors ...string) *MemorySurface {
	if len(anchors) == 0 {
		anchors = charts.Anchors()
	}
	s := &MemorySurface{
		anchors:  make(map[string]bool),
		mounted:  make(map[string]charts.Snippet),
		mounts:   make(map[string]int),
		unmounts: make(map[string]int),
	}
	for _, a := range anchors {
		s.anchors[a] = true
	}
	return s
}

func (s *MemorySurface) Has(anchor string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchors[anchor]
}

func (s *MemorySurface) Mount(anchor string, snippet charts.Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.anchors[anchor] {
		return fmt.Errorf("no anchor %q", anchor)
	}
	s.mounted[anchor] = snippet
	s.mounts[anchor]++
	return nil
}

func (s *MemorySurface) Unmount(anchor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mounted, anchor)
	s.unmounts[anchor]++
}

// Mounted returns the snippet currently mounted at anchor.
func (s *MemorySurface) Mounted(anchor string) (charts.Snippet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.mounted[anchor]
	return sn, ok
}

func (s *MemorySurface) Mounts(anchor string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounts[anchor]
}

func (s *MemorySurface) Unmounts(anchor string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmounts[anchor]
}
