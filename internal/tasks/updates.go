package tasks

import (
	"fmt"

	"github.com/desertthunder/scrobblex/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI, loader or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Percent maps the update onto the overall progress of a [DashboardEngine.Build] run.
//
// Each phase owns an equal slice of 0..100 and Step/Total moves within it.
func (u ProgressUpdate) Percent() float64 {
	slice := 100 / float64(phaseCount)
	base := float64(u.Phase) * slice
	if u.Total <= 0 {
		return base
	}
	step := min(max(u.Step, 0), u.Total)
	return base + slice*float64(step)/float64(u.Total)
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchTopLists
	FetchRecent
	BuildHeatmap
	CompareWeeks
	ResolveDecades
	BuildLeaderboard
	SyncScrobbles
	ExportData
	phaseCount
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchTopLists:
		return "fetch_top_lists"
	case FetchRecent:
		return "fetch_recent"
	case BuildHeatmap:
		return "build_heatmap"
	case CompareWeeks:
		return "compare_weeks"
	case ResolveDecades:
		return "resolve_decades"
	case BuildLeaderboard:
		return "build_leaderboard"
	case SyncScrobbles:
		return "sync_scrobbles"
	case ExportData:
		return "export_data"
	default:
		return ""
	}
}

func fetchProfileUpdate(user string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Looking up %s on Last.fm...", user),
	}
}

func fetchTopListsUpdate(step, total int, kind string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTopLists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching top %s...", step, total, kind),
	}
}

func fetchRecentUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRecent,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d recent scrobbles", n),
	}
}

func heatmapUpdate(points int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildHeatmap,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Built listening heatmap (%d cells)", points),
	}
}

func compareWeeksUpdate(step, total int, label string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CompareWeeks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching scrobbles for %s...", label),
	}
}

func resolveDecadeUpdate(step, total int, tr *models.Track, err error) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   ResolveDecades,
			Step:    step,
			Total:   total,
			Message: "Looking up release dates...",
		}
	}
	if err != nil {
		return ProgressUpdate{
			Phase:   ResolveDecades,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, tr.Artist, tr.Name, err),
		}
	}
	return ProgressUpdate{
		Phase:   ResolveDecades,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Name),
	}
}

func leaderboardUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildLeaderboard,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Building %s leaderboard...", name),
	}
}

func syncPageUpdate(page, pages, fetched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncScrobbles,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("[%d/%d] Fetched %d scrobbles", page, pages, fetched),
	}
}

func syncCompletedUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncScrobbles,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %d new scrobbles cached (%d fetched)", result.Inserted, result.Fetched),
		Data:    result,
	}
}

// ExportUpdate reports that an export file was written.
func ExportUpdate(path string, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportData,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ Wrote %s (%d items)", path, items),
		Data:    path,
	}
}
