package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"sync"

	"github.com/charmbracelet/log"
	ds "github.com/starfederation/datastar-go/datastar"

	"github.com/desertthunder/scrobblex/internal/charts"
	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/desertthunder/scrobblex/internal/web"
)

// patch is one queued datastar event. Signals are sent first, then elements, then the script.
type patch struct {
	signals  map[string]any
	elements string
	script   string
}

func (p patch) send(sse *ds.ServerSentEventGenerator) error {
	if p.signals != nil {
		if err := sse.MarshalAndPatchSignals(p.signals); err != nil {
			return err
		}
	}
	if p.elements != "" {
		if err := sse.PatchElements(p.elements); err != nil {
			return err
		}
	}
	if p.script != "" {
		if err := sse.ExecuteScript(p.script); err != nil {
			return err
		}
	}
	return nil
}

// sseView queues the state of one dashboard page for its event stream. It implements
// [dashboard.View] and [charts.Surface].
type sseView struct {
	mu      sync.Mutex
	tmpl    *template.Template
	logger  *log.Logger
	anchors map[string]bool
	queue   []patch
	ready   chan struct{}
}

func newSSEView(tmpl *template.Template, logger *log.Logger) *sseView {
	v := &sseView{
		tmpl:    tmpl,
		logger:  logger,
		anchors: make(map[string]bool),
		ready:   make(chan struct{}, 1),
	}
	for _, a := range charts.Anchors() {
		v.anchors[a] = true
	}
	return v
}

func (v *sseView) push(p patch) {
	v.mu.Lock()
	v.queue = append(v.queue, p)
	v.mu.Unlock()

	select {
	case v.ready <- struct{}{}:
	default:
	}
}

// drain removes and returns every queued patch.
func (v *sseView) drain() []patch {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.queue
	v.queue = nil
	return out
}

// reset drops queued patches, e.g. when the page is rendered from scratch.
func (v *sseView) reset() {
	v.drain()
}

func (v *sseView) pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.queue)
}

func nested(group, key string, value any) map[string]any {
	return map[string]any{group: map[string]any{key: value}}
}

func (v *sseView) SetButtonActive(tab string, active bool, class string) {
	html, err := web.Render(v.tmpl, "tab-button", web.Tab{ID: tab, Label: web.TabLabel(tab), Active: active, Border: class})
	if err != nil {
		v.logger.Error("failed to render tab button", "tab", tab, "err", err)
		return
	}
	v.push(patch{elements: html})
}

func (v *sseView) SetPanelOpacity(tab string, opacity float64) {
	v.push(patch{signals: nested("panels", tab, map[string]any{"opacity": opacity})})
}

func (v *sseView) SetPanelVisible(tab string, visible bool) {
	v.push(patch{signals: nested("panels", tab, map[string]any{"visible": visible})})
}

func (v *sseView) SetLoader(state dashboard.LoaderState) {
	v.push(patch{signals: map[string]any{"loader": loaderSignals(state)}})
}

func (v *sseView) SetDropdownOpen(id string, open bool) {
	v.push(patch{signals: nested("dropdowns", id, open)})
}

func loaderSignals(s dashboard.LoaderState) map[string]any {
	return map[string]any{
		"visible": s.Visible,
		"opacity": s.Opacity,
		"width":   s.Width(),
		"text":    s.Text(),
	}
}

func (v *sseView) Has(anchor string) bool {
	return v.anchors[anchor]
}

func (v *sseView) Mount(anchor string, s charts.Snippet) error {
	if !v.Has(anchor) {
		return fmt.Errorf("%w: #%s", shared.ErrRenderTargetMissing, anchor)
	}
	v.push(patch{elements: s.Element, script: s.Script})
	return nil
}

// disposeScript releases the echarts instances under an anchor before the element is replaced.
func disposeScript(anchor string) string {
	return fmt.Sprintf(`document.querySelectorAll("#%s [_echarts_instance_]").forEach((el) => { const c = window.echarts && echarts.getInstanceByDom(el); if (c) c.dispose(); });`, anchor)
}

func (v *sseView) Unmount(anchor string) {
	v.push(patch{script: disposeScript(anchor)})
	v.push(patch{elements: fmt.Sprintf(`<div id="%s" class="chart"></div>`, anchor)})
}

// section renders a page template and queues it for an in-place morph.
func (v *sseView) section(name string, page web.Page) {
	html, err := web.Render(v.tmpl, name, page)
	if err != nil {
		v.logger.Error("failed to render section", "section", name, "err", err)
		return
	}
	v.push(patch{elements: html})
}

// restyle swaps the page chrome classes and theme key.
func (v *sseView) restyle(page web.Page) {
	classes, _ := json.Marshal(page.Theme.Background + " " + page.Theme.Text + " min-h-screen")
	key, _ := json.Marshal(page.Theme.Key)
	v.push(patch{
		signals: map[string]any{"theme": page.Theme.Key},
		script:  fmt.Sprintf("document.body.className = %s; document.documentElement.dataset.theme = %s;", classes, key),
	})
}
