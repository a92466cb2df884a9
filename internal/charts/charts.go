// Package charts adapts two charting libraries to one lifecycle.
//
// Every chart is a [Chart]: it is bound to an anchor on a [Surface] and disposed with Destroy.
// The go-chart adapters render SVG as soon as they are constructed. The go-echarts adapters
// also implement [Renderer] and draw nothing until Render is called.
package charts

import (
	"fmt"

	"github.com/desertthunder/scrobblex/internal/shared"
)

// Kind is the visual form of a chart.
type Kind string

const (
	KindBar        Kind = "bar"
	KindDonut      Kind = "donut"
	KindBubble     Kind = "bubble"
	KindGroupedBar Kind = "grouped-bar"
	KindTreemap    Kind = "treemap"
	KindLine       Kind = "line"
)

// Chart is a live chart instance.
type Chart interface {
	Name() string
	Anchor() string
	Kind() Kind
	Destroy()
}

// Renderer is implemented by charts that need an explicit render call after construction.
type Renderer interface {
	Render() error
}

// Point is one datum of a mounted chart, with its formatted tooltip.
type Point struct {
	Label   string
	Series  string
	Value   float64
	Tooltip string
}

// Snippet is what a [Surface] mounts into an anchor.
//
// Element carries the anchor id on its root so it can replace the anchor in place.
// Script, when set, is raw JavaScript to run after the element is mounted.
type Snippet struct {
	Chart   string
	Kind    Kind
	Title   string
	Element string
	Script  string
	Points  []Point
	Colors  []string
}

// Surface is the set of chart anchors a front-end exposes.
type Surface interface {
	Has(anchor string) bool
	Mount(anchor string, s Snippet) error
	Unmount(anchor string)
}

// Target binds a chart under construction to its anchor.
type Target struct {
	Surface Surface
	Anchor  string
	Name    string
}

// check fails with [shared.ErrRenderTargetMissing] when the anchor is absent.
func (t Target) check() error {
	if t.Surface == nil || !t.Surface.Has(t.Anchor) {
		return fmt.Errorf("%w: #%s for %s", shared.ErrRenderTargetMissing, t.Anchor, t.Name)
	}
	return nil
}

// instance is the bookkeeping shared by every adapter.
type instance struct {
	target    Target
	kind      Kind
	mounted   bool
	destroyed bool
}

func (i *instance) Name() string   { return i.target.Name }
func (i *instance) Anchor() string { return i.target.Anchor }
func (i *instance) Kind() Kind     { return i.kind }

func (i *instance) mount(s Snippet) error {
	if i.destroyed {
		return fmt.Errorf("%s: chart already destroyed", i.target.Name)
	}
	s.Chart, s.Kind = i.target.Name, i.kind
	if err := i.target.Surface.Mount(i.target.Anchor, s); err != nil {
		return fmt.Errorf("failed to mount %s: %w", i.target.Name, err)
	}
	i.mounted = true
	return nil
}

// Destroy unmounts the chart. Calling it again does nothing.
func (i *instance) Destroy() {
	if i.destroyed {
		return
	}
	i.destroyed = true
	if i.mounted {
		i.target.Surface.Unmount(i.target.Anchor)
		i.mounted = false
	}
}

// Destroyed reports whether Destroy has been called.
func (i *instance) Destroyed() bool { return i.destroyed }
