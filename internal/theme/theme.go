// Package theme resolves dashboard theme keys to structured style descriptors and chart color sets.
package theme

import (
	"fmt"
	"math"

	"github.com/desertthunder/scrobblex/internal/shared"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default is used whenever a key is empty or unknown.
const Default = "black"

// Descriptor is the chrome classes and chart colors of one theme.
type Descriptor struct {
	Key          string
	Name         string
	Background   string
	Text         string
	Card         string
	Accent       string
	Hover        string
	Border       string
	Button       string
	Progress     string
	ActiveBorder string // applied to the active tab button

	ChartBackground drawing.Color
	ChartText       drawing.Color
	ChartAccent     drawing.Color
}

func rgba(r, g, b uint8, a float64) drawing.Color {
	return drawing.Color{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
}

var order = []string{"light", "dark", "black", "blue", "orange", "graffiti"}

var table = map[string]Descriptor{
	"light": {
		Key: "light", Name: "Light",
		Background:      "bg-gradient-to-br from-gray-100 to-gray-200",
		Text:            "text-gray-800",
		Card:            "glass bg-white/85",
		Accent:          "text-indigo-600",
		Hover:           "hover:bg-indigo-50",
		Border:          "border-indigo-200",
		Button:          "bg-indigo-600 text-white hover:bg-indigo-700",
		Progress:        "bg-indigo-600",
		ActiveBorder:    "border-indigo-600",
		ChartBackground: rgba(255, 255, 255, 0.9),
		ChartText:       rgba(55, 65, 81, 1),
		ChartAccent:     rgba(79, 70, 229, 1),
	},
	"dark": {
		Key: "dark", Name: "Dark",
		Background:      "bg-gradient-to-br from-gray-800 to-gray-900",
		Text:            "text-gray-100",
		Card:            "glass bg-gray-800/75",
		Accent:          "text-teal-300",
		Hover:           "hover:bg-teal-900",
		Border:          "border-teal-600",
		Button:          "bg-teal-500 text-white hover:bg-teal-600",
		Progress:        "bg-teal-500",
		ActiveBorder:    "border-teal-300",
		ChartBackground: rgba(31, 41, 55, 0.9),
		ChartText:       rgba(229, 231, 235, 1),
		ChartAccent:     rgba(45, 212, 191, 1),
	},
	"black": {
		Key: "black", Name: "Black",
		Background:      "bg-gradient-to-br from-black to-gray-950",
		Text:            "text-white",
		Card:            "glass bg-gray-900/80",
		Accent:          "text-purple-300",
		Hover:           "hover:bg-purple-900",
		Border:          "border-purple-600",
		Button:          "bg-purple-500 text-white hover:bg-purple-600",
		Progress:        "bg-purple-500",
		ActiveBorder:    "border-purple-300",
		ChartBackground: rgba(17, 24, 39, 0.9),
		ChartText:       rgba(255, 255, 255, 1),
		ChartAccent:     rgba(168, 85, 247, 1),
	},
	"blue": {
		Key: "blue", Name: "Blue",
		Background:      "bg-gradient-to-br from-blue-900 to-blue-950",
		Text:            "text-blue-100",
		Card:            "glass bg-blue-800/75",
		Accent:          "text-cyan-300",
		Hover:           "hover:bg-cyan-900",
		Border:          "border-cyan-600",
		Button:          "bg-cyan-500 text-white hover:bg-cyan-600",
		Progress:        "bg-cyan-500",
		ActiveBorder:    "border-cyan-300",
		ChartBackground: rgba(30, 58, 138, 0.9),
		ChartText:       rgba(224, 231, 255, 1),
		ChartAccent:     rgba(6, 182, 212, 1),
	},
	"orange": {
		Key: "orange", Name: "Orange",
		Background:      "bg-gradient-to-br from-orange-900 to-orange-950",
		Text:            "text-orange-100",
		Card:            "glass bg-orange-800/75",
		Accent:          "text-amber-300",
		Hover:           "hover:bg-amber-900",
		Border:          "border-amber-600",
		Button:          "bg-amber-500 text-white hover:bg-amber-600",
		Progress:        "bg-amber-500",
		ActiveBorder:    "border-amber-300",
		ChartBackground: rgba(124, 45, 18, 0.9),
		ChartText:       rgba(255, 237, 213, 1),
		ChartAccent:     rgba(251, 191, 36, 1),
	},
	"graffiti": {
		Key: "graffiti", Name: "Graffiti",
		Background:      "bg-gradient-to-r from-pink-600 via-cyan-400 to-yellow-400 animate-gradient",
		Text:            "text-gray-900",
		Card:            "glass bg-white/85",
		Accent:          "text-gray-800",
		Hover:           "hover:bg-gray-200",
		Border:          "border-gray-300",
		Button:          "bg-gray-800 text-white hover:bg-gray-900",
		Progress:        "bg-gray-800",
		ActiveBorder:    "border-gray-800",
		ChartBackground: rgba(255, 255, 255, 0.9),
		ChartText:       rgba(17, 24, 39, 1),
		ChartAccent:     rgba(31, 41, 55, 1),
	},
}

// Keys lists the theme keys in display order.
func Keys() []string {
	return append([]string(nil), order...)
}

// All returns every descriptor in display order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(order))
	for _, k := range order {
		out = append(out, table[k])
	}
	return out
}

// Resolve returns the descriptor for key, or the [Default] descriptor. It never fails.
func Resolve(key string) Descriptor {
	if d, ok := table[key]; ok {
		return d
	}
	return table[Default]
}

// Lookup is the strict form of [Resolve] used to validate user input.
func Lookup(key string) (Descriptor, error) {
	if d, ok := table[key]; ok {
		return d, nil
	}
	return Descriptor{}, shared.WithSuggestion(fmt.Errorf("%w: unknown theme", shared.ErrInvalidArgument), key, order)
}

// Known reports whether key is in the table.
func Known(key string) bool {
	_, ok := table[key]
	return ok
}
