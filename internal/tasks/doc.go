// Package tasks builds dashboard payloads from Last.fm with real-time progress reporting.
//
// # Core Operations
//
// [DashboardEngine] implements [Engine]:
//
//  1. [DashboardEngine.Build] : Full dashboard for a user and period
//     - Validates the user through user.getInfo
//     - Fetches the top tracks, albums and artists and the recent scrobbles
//     - Groups the last scrobbles into a (day, hour) heatmap
//     - Compares the current week with the previous one
//     - Resolves release decades of the top tracks in a worker pool
//     - Derives the friends, world and past leaderboard datasets
//
//  2. [DashboardEngine.Sync] : Incremental scrobble sync into a [ScrobbleStore]
//     - Pages user.getRecentTracks from the newest cached scrobble onwards
//     - Stores each page as it arrives
//
// Sections after the profile lookup degrade on failure: the error is logged and the dataset stays nil.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking. [ProgressUpdate.Percent] maps an update onto a 0..100 bar.
package tasks
