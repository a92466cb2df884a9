package server

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/theme"
	"github.com/desertthunder/scrobblex/internal/web"
)

func newTestView(t *testing.T) *sseView {
	t.Helper()
	tmpl, err := web.Templates()
	if err != nil {
		t.Fatalf("Templates failed: %v", err)
	}
	return newSSEView(tmpl, log.New(io.Discard))
}

func TestSSEView(t *testing.T) {
	t.Run("tab button", func(t *testing.T) {
		v := newTestView(t)
		v.SetButtonActive(charts.TabAlbums, true, "border-teal-300")

		patches := v.drain()
		if len(patches) != 1 {
			t.Fatalf("expected 1 patch, got %d", len(patches))
		}
		if !strings.Contains(patches[0].elements, `id="tab-btn-albums"`) || !strings.Contains(patches[0].elements, "border-teal-300") {
			t.Errorf("unexpected button patch: %s", patches[0].elements)
		}
		if v.pending() != 0 {
			t.Error("expected drain to empty the queue")
		}
	})

	t.Run("panel signals", func(t *testing.T) {
		v := newTestView(t)
		v.SetPanelOpacity(charts.TabHome, 0.5)
		v.SetPanelVisible(charts.TabHome, true)

		patches := v.drain()
		if len(patches) != 2 {
			t.Fatalf("expected 2 patches, got %d", len(patches))
		}
		panel := patches[0].signals["panels"].(map[string]any)[charts.TabHome].(map[string]any)
		if panel["opacity"] != 0.5 {
			t.Errorf("expected opacity 0.5, got %v", panel["opacity"])
		}
		panel = patches[1].signals["panels"].(map[string]any)[charts.TabHome].(map[string]any)
		if panel["visible"] != true {
			t.Errorf("expected visible, got %v", panel["visible"])
		}
	})

	t.Run("loader", func(t *testing.T) {
		v := newTestView(t)
		v.SetLoader(dashboard.LoaderState{Visible: true, Opacity: 1, Progress: 42})

		loader := v.drain()[0].signals["loader"].(map[string]any)
		if loader["text"] != "42%" || loader["width"] != "42.00%" || loader["visible"] != true {
			t.Errorf("unexpected loader signals: %v", loader)
		}
	})

	t.Run("dropdown", func(t *testing.T) {
		v := newTestView(t)
		v.SetDropdownOpen(web.MenuTheme, true)

		menus := v.drain()[0].signals["dropdowns"].(map[string]any)
		if menus[web.MenuTheme] != true {
			t.Errorf("expected the theme menu open, got %v", menus)
		}
	})

	t.Run("mount", func(t *testing.T) {
		v := newTestView(t)
		if !v.Has("tracks-chart") || v.Has("nope") {
			t.Fatal("expected anchors from the chart definitions")
		}

		err := v.Mount("nope", charts.Snippet{Element: "<div></div>"})
		if !errors.Is(err, shared.ErrRenderTargetMissing) {
			t.Errorf("expected ErrRenderTargetMissing, got %v", err)
		}

		if err := v.Mount("tracks-chart", charts.Snippet{Element: `<div id="tracks-chart"></div>`, Script: "draw()"}); err != nil {
			t.Fatalf("Mount failed: %v", err)
		}
		v.Unmount("tracks-chart")

		patches := v.drain()
		if len(patches) != 3 {
			t.Fatalf("expected 3 patches, got %d", len(patches))
		}
		if patches[0].script != "draw()" {
			t.Errorf("expected the chart script, got %q", patches[0].script)
		}
		if !strings.Contains(patches[1].script, `#tracks-chart [_echarts_instance_]`) || !strings.Contains(patches[1].script, "dispose()") {
			t.Errorf("expected a dispose script for the anchor, got %q", patches[1].script)
		}
		if patches[2].elements != `<div id="tracks-chart" class="chart"></div>` {
			t.Errorf("unexpected unmount patch: %s", patches[2].elements)
		}
	})

	t.Run("remount disposes before init", func(t *testing.T) {
		v := newTestView(t)
		sn := charts.Snippet{Element: `<div id="decades-chart"></div>`, Script: "{\nlet goecharts_decades_chart_canvas = echarts.init(el);\n}"}
		for range 2 {
			if err := v.Mount("decades-chart", sn); err != nil {
				t.Fatalf("Mount failed: %v", err)
			}
			v.Unmount("decades-chart")
		}
		if err := v.Mount("decades-chart", sn); err != nil {
			t.Fatalf("Mount failed: %v", err)
		}

		var steps []string
		for _, p := range v.drain() {
			switch {
			case strings.Contains(p.script, "dispose()"):
				steps = append(steps, "dispose")
			case strings.Contains(p.script, "echarts.init"):
				steps = append(steps, "init")
			case p.elements != "":
				steps = append(steps, "clear")
			}
		}
		want := []string{"init", "dispose", "clear", "init", "dispose", "clear", "init"}
		if strings.Join(steps, " ") != strings.Join(want, " ") {
			t.Errorf("got steps %v, want %v", steps, want)
		}
	})

	t.Run("restyle", func(t *testing.T) {
		v := newTestView(t)
		v.restyle(web.Page{Theme: theme.Resolve("dark")})

		p := v.drain()[0]
		if p.signals["theme"] != "dark" {
			t.Errorf("expected theme signal, got %v", p.signals)
		}
		if !strings.Contains(p.script, `document.documentElement.dataset.theme = "dark"`) {
			t.Errorf("unexpected restyle script: %s", p.script)
		}
	})

	t.Run("ready", func(t *testing.T) {
		v := newTestView(t)
		v.SetPanelVisible(charts.TabHome, true)
		v.SetPanelVisible(charts.TabTracks, true)

		select {
		case <-v.ready:
		default:
			t.Fatal("expected a ready notification")
		}
		select {
		case <-v.ready:
			t.Fatal("expected notifications to coalesce")
		default:
		}
		if v.pending() != 2 {
			t.Errorf("expected 2 pending patches, got %d", v.pending())
		}
		v.reset()
		if v.pending() != 0 {
			t.Error("expected reset to drop the queue")
		}
	})
}
