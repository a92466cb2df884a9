package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/tasks"
)

// FrameInterval is how often the model redraws timer-driven state.
const FrameInterval = 50 * time.Millisecond

// frameMsg triggers a redraw.
type frameMsg time.Time

// progressMsg carries one update of a running dashboard build.
type progressMsg tasks.ProgressUpdate

// loadedMsg ends a dashboard build.
type loadedMsg struct {
	dash *models.Dashboard
	err  error
}

// exportedMsg ends an export.
type exportedMsg struct {
	path  string
	items int
	err   error
}

func frame() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
