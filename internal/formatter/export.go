package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
)

// Format names an export layout.
type Format string

const (
	FormatCSV       Format = "csv"       // zip of one CSV per dataset
	FormatJSON      Format = "json"      // datasets as record lists
	FormatYAML      Format = "yaml"      // datasets as record lists, ordered
	FormatText      Format = "txt"       // aligned text tables
	FormatScrobbles Format = "scrobbles" // full scrobble history as one CSV
)

// Formats lists every export format.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatYAML, FormatText, FormatScrobbles}
}

// ParseFormat validates s, suggesting the closest format name on a typo.
func ParseFormat(s string) (Format, error) {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		if string(f) == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
		names = append(names, string(f))
	}
	return "", shared.WithSuggestion(shared.ErrUnknownFormat, s, names)
}

// Extension returns the file extension of f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return "zip"
	case FormatScrobbles:
		return "csv"
	default:
		return string(f)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "application/zip"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatScrobbles:
		return "text/csv"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export is a rendered download.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	Items       int // datasets or scrobbles written
}

// Filename returns {user}_data_{YYYYmmdd_HHMMSS}.{ext}, or {user}_scrobbles.csv for [FormatScrobbles].
func Filename(user string, f Format, now time.Time) string {
	if f == FormatScrobbles {
		return fmt.Sprintf("%s_scrobbles.csv", user)
	}
	return fmt.Sprintf("%s_data_%s.%s", user, now.Format("20060102_150405"), f.Extension())
}

// Render renders the dashboard datasets in format f. [FormatScrobbles] uses scrobbles instead of d.
func Render(f Format, user string, d *models.Dashboard, scrobbles []models.Scrobble, now time.Time) (*Export, error) {
	var (
		data  []byte
		err   error
		items = len(Tables(d))
	)

	switch f {
	case FormatCSV:
		data, err = ExportToCSVZip(user, d)
	case FormatJSON:
		data, err = ExportToJSON(d)
	case FormatYAML:
		data, err = ExportToYAML(d)
	case FormatText:
		data, err = ExportToText(d)
	case FormatScrobbles:
		if len(scrobbles) == 0 {
			return nil, fmt.Errorf("%w: no scrobbles available to export", shared.ErrNoScrobbles)
		}
		items = len(scrobbles)
		data, err = ExportScrobblesCSV(scrobbles)
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s export: %w", f, err)
	}

	return &Export{
		Filename:    Filename(user, f, now),
		ContentType: f.ContentType(),
		Data:        data,
		Items:       items,
	}, nil
}

// WriteExport writes e into dir under its own filename and returns the path.
//
// dir defaults to the working directory and is created when missing.
func WriteExport(e *Export, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, e.Filename)
	if err := os.WriteFile(path, e.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
