// Package ui implements the terminal dashboard using bubbletea's Elm architecture.
//
// The (view) [Model] drives the same dashboard.Controller, dashboard.Loader and dashboard.Dropdowns
// as the browser dashboard. Instead of patching a page they render into a termView, which keeps
// the latest tab, loader, menu and chart state for [Model.View] to draw:
//   - tab buttons and panels with their fade state
//   - mounted charts as ntcharts bar charts, or a ranked list for the heatmap
//   - the loader as a bubbles progress bar
//   - the period, theme and export menus
//
// Timers fire on their own goroutines, so the model redraws on a short frame tick. Dashboard
// builds report progress through a channel that the model polls with a command, the same way
// long-running work is reported everywhere else.
//
// Keyboard navigation uses vim-style bindings (h/l, j/k, enter, esc, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
