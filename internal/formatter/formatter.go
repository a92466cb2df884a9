// package formatter provides functions to export dashboard data to various formats (CSV, JSON, YAML, plain text)
package formatter

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/scrobblex/internal/models"
	"github.com/desertthunder/scrobblex/internal/shared"
	"gopkg.in/yaml.v3"
)

// Table is one named dataset laid out as rows. Cells are strings, ints or float64s.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Records returns the rows as column-keyed maps.
func (t Table) Records() []map[string]any {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// Tables flattens a dashboard into its exportable datasets, skipping empty ones.
func Tables(d *models.Dashboard) []Table {
	if d == nil {
		return nil
	}

	var tables []Table
	add := func(t Table) {
		if len(t.Rows) > 0 {
			tables = append(tables, t)
		}
	}

	tracks := Table{Name: "top_tracks", Columns: []string{"Rank", "Track", "Artist", "Playcount"}}
	for _, t := range d.TopTracks {
		tracks.Rows = append(tracks.Rows, []any{t.Rank, t.Name, t.Artist, t.Playcount})
	}
	add(tracks)

	albums := Table{Name: "top_albums", Columns: []string{"Rank", "Album", "Artist", "Playcount"}}
	for _, a := range d.TopAlbums {
		albums.Rows = append(albums.Rows, []any{a.Rank, a.Name, a.Artist, a.Playcount})
	}
	add(albums)

	artists := Table{Name: "top_artists", Columns: []string{"Rank", "Artist", "Playcount"}}
	for _, a := range d.TopArtists {
		artists.Rows = append(artists.Rows, []any{a.Rank, a.Name, a.Playcount})
	}
	add(artists)

	recent := Table{Name: "recent_tracks", Columns: scrobbleColumns}
	for _, s := range d.Recent {
		recent.Rows = append(recent.Rows, scrobbleRow(s))
	}
	add(recent)

	if w := d.Weekly; w != nil {
		weekly := Table{Name: "weekly_comparison", Columns: []string{"Metric", w.CurrentPeriod, w.PreviousPeriod}}
		weekly.Rows = [][]any{
			{"Artists", w.Current.Artists, w.Previous.Artists},
			{"Tracks", w.Current.Tracks, w.Previous.Tracks},
			{"Scrobbles", w.Current.Scrobbles, w.Previous.Scrobbles},
			{"Listening Hours", w.Current.ListeningHours, w.Previous.ListeningHours},
			{"Avg Scrobbles", w.Current.AvgScrobbles, w.Previous.AvgScrobbles},
			{"Most Active Day", w.Current.MostActiveDay, w.Previous.MostActiveDay},
		}
		add(weekly)
	}

	c := d.Charts
	if hm := c.Heatmap; !hm.Empty() {
		heatmap := Table{Name: "heatmap", Columns: []string{"Day", "Hour", "Plays"}}
		for i := 0; i < hm.Len(); i++ {
			heatmap.Rows = append(heatmap.Rows, []any{hm.Days[i], hm.Hours[i], hm.Plays[i]})
		}
		add(heatmap)
	}

	add(datasetTable("decades", []string{"Decade", "Playcount"}, c.Decades))
	add(seriesTable("friends", "User", c.Friends, true))
	add(datasetTable("world", []string{"Entity", "Total"}, c.World))
	add(seriesTable("past", "Period", c.Past, false))

	return tables
}

func datasetTable(name string, columns []string, ds *models.Dataset) Table {
	t := Table{Name: name, Columns: columns}
	for i := 0; i < ds.Len(); i++ {
		t.Rows = append(t.Rows, []any{ds.Labels[i], ds.Data[i]})
	}
	return t
}

func seriesTable(name, category string, ds *models.SeriesDataset, total bool) Table {
	t := Table{Name: name, Columns: []string{category}}
	if ds.Empty() {
		return t
	}
	for _, s := range ds.Series {
		t.Columns = append(t.Columns, s.Name)
	}
	if total {
		t.Columns = append(t.Columns, "Total")
	}

	for i, cat := range ds.Categories {
		row := []any{cat}
		for _, s := range ds.Series {
			var v float64
			if i < len(s.Data) {
				v = s.Data[i]
			}
			row = append(row, v)
		}
		if total {
			row = append(row, ds.Total(i))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

var scrobbleColumns = []string{"Track", "Artist", "Album", "Date"}

func scrobbleRow(s models.Scrobble) []any {
	return []any{s.Track, s.Artist, s.AlbumOrUnknown(), s.DateText()}
}

// cell renders a table value. Whole floats print without a fraction.
func cell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func writeCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cell(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// ExportToCSV converts a single table to CSV with a header row.
func ExportToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportScrobblesCSV converts a scrobble history to CSV with columns: Track, Artist, Album, Date
func ExportScrobblesCSV(scrobbles []models.Scrobble) ([]byte, error) {
	t := Table{Name: "scrobbles", Columns: scrobbleColumns}
	for _, s := range scrobbles {
		t.Rows = append(t.Rows, scrobbleRow(s))
	}
	return ExportToCSV(t)
}

// ExportToCSVZip writes one {user}_{dataset}.csv per non-empty dataset into a zip archive.
func ExportToCSVZip(user string, d *models.Dashboard) ([]byte, error) {
	tables := Tables(d)
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: nothing to export for %s", shared.ErrNoScrobbles, user)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, t := range tables {
		f, err := zw.Create(fmt.Sprintf("%s_%s.csv", user, t.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", t.Name, err)
		}
		if err := writeCSV(f, t); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToJSON converts every non-empty dataset to a JSON object of record lists keyed by dataset name.
func ExportToJSON(d *models.Dashboard) ([]byte, error) {
	out := make(map[string][]map[string]any)
	for _, t := range Tables(d) {
		out[t.Name] = t.Records()
	}
	return shared.MarshalJSON(out, true)
}

// ExportToYAML converts every non-empty dataset to YAML, keeping dataset and column order.
func ExportToYAML(d *models.Dashboard) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, t := range Tables(d) {
		records := &yaml.Node{Kind: yaml.SequenceNode}
		for _, row := range t.Rows {
			rec := &yaml.Node{Kind: yaml.MappingNode}
			for i, col := range t.Columns {
				if i >= len(row) {
					break
				}
				rec.Content = append(rec.Content, scalar(col), valueNode(row[i]))
			}
			records.Content = append(records.Content, rec)
		}
		doc.Content = append(doc.Content, scalar(t.Name), records)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// valueNode leaves numbers untagged so they are emitted plain.
func valueNode(v any) *yaml.Node {
	switch v.(type) {
	case int, float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: cell(v)}
	default:
		return scalar(cell(v))
	}
}

// ExportToText renders every non-empty dataset as an aligned plain text table.
func ExportToText(d *models.Dashboard) ([]byte, error) {
	var buf bytes.Buffer

	for _, t := range Tables(d) {
		buf.WriteString(fmt.Sprintf("\nDataset: %s\n", t.Name))

		tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
		for _, row := range t.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = cell(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return nil, fmt.Errorf("failed to write text table: %w", err)
		}

		buf.WriteString(strings.Repeat("=", 50) + "\n")
	}

	return buf.Bytes(), nil
}
