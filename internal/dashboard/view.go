package dashboard

import (
	"fmt"
	"math"
)

// TabView receives the visual state of tab buttons and panels.
type TabView interface {
	SetButtonActive(tab string, active bool, class string)
	SetPanelOpacity(tab string, opacity float64)
	SetPanelVisible(tab string, visible bool)
}

// LoaderView receives the loader state.
type LoaderView interface {
	SetLoader(state LoaderState)
}

// DropdownView receives dropdown visibility changes.
type DropdownView interface {
	SetDropdownOpen(id string, open bool)
}

// View is everything a front-end renders for one dashboard.
type View interface {
	TabView
	LoaderView
	DropdownView
}

// LoaderState is the loader overlay and its progress bar.
type LoaderState struct {
	Visible  bool
	Opacity  float64
	Progress float64
}

// Text is the progress label, e.g. "42%".
func (s LoaderState) Text() string {
	return fmt.Sprintf("%d%%", int(math.Round(s.Progress)))
}

// Width is the progress bar width as a CSS percentage.
func (s LoaderState) Width() string {
	return fmt.Sprintf("%.2f%%", s.Progress)
}
