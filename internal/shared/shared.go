// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger opens (or creates) the file at path in append mode and returns a logger writing to it.
//
// The terminal dashboard owns stdout/stderr, so its logs go here instead. Missing parent
// directories are created. The caller closes the file.
func NewFileLogger(path string) (*log.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLogger(f), f, nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// NormalizeTrackKey lowercases and collapses whitespace in a track title and artist, joined by "|".
func NormalizeTrackKey(title, artist string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(title) + "|" + norm(artist)
}

// Suggest returns the candidate closest to input by edit distance, or "" when nothing is within
// a third of the input's length (minimum 2 edits).
func Suggest(input string, candidates []string) string {
	if input == "" || len(candidates) == 0 {
		return ""
	}

	limit := max(len(input)/3, 2)
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", limit+1
	for _, c := range sorted {
		d := levenshtein.ComputeDistance(strings.ToLower(input), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// WithSuggestion wraps err with a "did you mean" hint when one of candidates is close to input.
func WithSuggestion(err error, input string, candidates []string) error {
	if s := Suggest(input, candidates); s != "" {
		return fmt.Errorf("%w: %q (did you mean %q?)", err, input, s)
	}
	return fmt.Errorf("%w: %q", err, input)
}

// MarshalJSON encodes v, indented with two spaces when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
