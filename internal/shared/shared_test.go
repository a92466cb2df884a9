package shared

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{
			name:   "basic normalization",
			title:  "Song Title",
			artist: "Artist Name",
			want:   "song title|artist name",
		},
		{
			name:   "extra whitespace",
			title:  "  Song   Title  ",
			artist: "  Artist   Name  ",
			want:   "song title|artist name",
		},
		{
			name:   "mixed case",
			title:  "SoNg TiTlE",
			artist: "ArTiSt NaMe",
			want:   "song title|artist name",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrackKey(tt.title, tt.artist)
			if got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	tabs := []string{"home", "tracks", "albums", "artists", "leaderboard"}

	tc := []struct {
		input string
		want  string
	}{
		{"trakcs", "tracks"},
		{"Albums", "albums"},
		{"leaderbord", "leaderboard"},
		{"zzzzzzzz", ""},
		{"", ""},
	}

	for _, tt := range tc {
		t.Run(tt.input, func(t *testing.T) {
			if got := Suggest(tt.input, tabs); got != tt.want {
				t.Errorf("Suggest(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("WithSuggestion", func(t *testing.T) {
		err := WithSuggestion(ErrUnknownTab, "artsts", tabs)
		if !errors.Is(err, ErrUnknownTab) {
			t.Fatalf("expected wrapped ErrUnknownTab, got %v", err)
		}
		if !strings.Contains(err.Error(), `did you mean "artists"`) {
			t.Errorf("expected suggestion in %q", err.Error())
		}

		err = WithSuggestion(ErrUnknownTab, "qqqqqqqq", tabs)
		if strings.Contains(err.Error(), "did you mean") {
			t.Errorf("unexpected suggestion in %q", err.Error())
		}
	})
}

func TestLoggers(t *testing.T) {
	t.Run("NewLogger", func(t *testing.T) {
		var buf bytes.Buffer
		l := WithLogger(NewLogger(&buf), "component", "test")
		l.Info("hello")

		if !strings.Contains(buf.String(), "component=test") {
			t.Errorf("expected child key in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scrobblex.log")
		l, f, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		l.Info("written")
		f.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "written") {
			t.Errorf("expected log line in file, got %q", data)
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]int{"plays": 3}

	compact, err := MarshalJSON(v, false)
	if err != nil || string(compact) != `{"plays":3}` {
		t.Errorf("unexpected compact output %q (%v)", compact, err)
	}

	pretty, err := MarshalJSON(v, true)
	if err != nil || string(pretty) != "{\n  \"plays\": 3\n}" {
		t.Errorf("unexpected pretty output %q (%v)", pretty, err)
	}
}
