package ui

import (
	"fmt"
	"maps"
	"sync"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// termView records what the dashboard controllers show. It implements [dashboard.View] and
// [charts.Surface]; [Model.View] draws a [snapshot] of it.
type termView struct {
	mu       sync.Mutex
	anchors  map[string]bool
	active   map[string]bool
	opacity  map[string]float64
	visible  map[string]bool
	loader   dashboard.LoaderState
	menus    map[string]bool
	snippets map[string]charts.Snippet
}

// snapshot is a consistent copy of a [termView].
type snapshot struct {
	active   map[string]bool
	opacity  map[string]float64
	visible  map[string]bool
	loader   dashboard.LoaderState
	menus    map[string]bool
	snippets map[string]charts.Snippet
}

func newTermView() *termView {
	v := &termView{
		anchors:  make(map[string]bool),
		active:   make(map[string]bool),
		opacity:  make(map[string]float64),
		visible:  make(map[string]bool),
		menus:    make(map[string]bool),
		snippets: make(map[string]charts.Snippet),
	}
	for _, a := range charts.Anchors() {
		v.anchors[a] = true
	}
	return v
}

func (v *termView) SetButtonActive(tab string, active bool, class string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active[tab] = active
}

func (v *termView) SetPanelOpacity(tab string, opacity float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opacity[tab] = opacity
}

func (v *termView) SetPanelVisible(tab string, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible[tab] = visible
}

func (v *termView) SetLoader(state dashboard.LoaderState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loader = state
}

func (v *termView) SetDropdownOpen(id string, open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.menus[id] = open
}

func (v *termView) Has(anchor string) bool {
	return v.anchors[anchor]
}

func (v *termView) Mount(anchor string, s charts.Snippet) error {
	if !v.Has(anchor) {
		return fmt.Errorf("%w: #%s", shared.ErrRenderTargetMissing, anchor)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snippets[anchor] = s
	return nil
}

func (v *termView) Unmount(anchor string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.snippets, anchor)
}

func (v *termView) snapshot() snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return snapshot{
		active:   maps.Clone(v.active),
		opacity:  maps.Clone(v.opacity),
		visible:  maps.Clone(v.visible),
		loader:   v.loader,
		menus:    maps.Clone(v.menus),
		snippets: maps.Clone(v.snippets),
	}
}
