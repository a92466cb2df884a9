package theme

import (
	"errors"
	"testing"

	"github.com/desertthunder/scrobblex/internal/shared"
)

func TestResolve(t *testing.T) {
	t.Run("known keys", func(t *testing.T) {
		for _, k := range Keys() {
			if got := Resolve(k); got.Key != k {
				t.Errorf("Resolve(%q).Key = %q", k, got.Key)
			}
		}
	})

	t.Run("unknown keys fall back to black", func(t *testing.T) {
		for _, k := range []string{"", "neon", "BLACK", "light "} {
			if got := Resolve(k); got.Key != Default {
				t.Errorf("Resolve(%q).Key = %q, want %q", k, got.Key, Default)
			}
		}
	})

	t.Run("lookup", func(t *testing.T) {
		if _, err := Lookup("orange"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		_, err := Lookup("orang")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("every descriptor is complete", func(t *testing.T) {
		for _, d := range All() {
			if d.Accent == "" || d.ActiveBorder == "" || d.Progress == "" {
				t.Errorf("%s has empty classes", d.Key)
			}
			if d.ChartAccent.A != 0xFF || d.ChartText.A != 0xFF {
				t.Errorf("%s chart colors should be opaque", d.Key)
			}
		}
	})
}

func TestColors(t *testing.T) {
	cs := Resolve("black").Colors()

	tc := []struct {
		name string
		got  string
		want string
	}{
		{"accent", Hex(cs.Accent), "#a855f7"},
		{"background", Hex(cs.Background), "#111827e6"},
		{"bar fill", Hex(cs.BarFill), "#a855f799"},
		{"grid", Hex(cs.Grid), "#ffffff33"},
		{"secondary accent", Hex(cs.Secondary[0].Fill), "#a855f7cc"},
		{"secondary gray", Hex(cs.Secondary[1].Fill), "#6b7280cc"},
		{"last gray solid", Hex(cs.Secondary[4].Solid), "#e5e7eb"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}

	t.Run("fills", func(t *testing.T) {
		fills := cs.Fills()
		if len(fills) != 5 {
			t.Fatalf("expected 5 fills, got %d", len(fills))
		}
		for i, f := range fills {
			if f.A != 0xCC {
				t.Errorf("fill %d alpha = %x, want cc", i, f.A)
			}
		}
	})

	t.Run("CSS", func(t *testing.T) {
		if got := CSS(cs.Accent); got != "rgba(168, 85, 247, 1)" {
			t.Errorf("unexpected css %q", got)
		}
	})
}
