package models

// Dataset is a labelled series. Artists, when set, is parallel to Labels.
type Dataset struct {
	Labels  []string  `json:"labels" yaml:"labels"`
	Data    []float64 `json:"data" yaml:"data"`
	Artists []string  `json:"artists,omitempty" yaml:"artists,omitempty"`
}

// Empty reports whether d has nothing to draw.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Labels) == 0 || len(d.Data) == 0
}

// Len is the number of points that have both a label and a value.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return min(len(d.Labels), len(d.Data))
}

// Artist returns the artist of point i, or "".
func (d *Dataset) Artist(i int) string {
	if d == nil || i < 0 || i >= len(d.Artists) {
		return ""
	}
	return d.Artists[i]
}

// Max returns the largest value, or 0.
func (d *Dataset) Max() float64 {
	var m float64
	for i := 0; i < d.Len(); i++ {
		m = max(m, d.Data[i])
	}
	return m
}

// HeatmapDataset holds (day, hour, plays) points as parallel slices.
type HeatmapDataset struct {
	Days  []string  `json:"days" yaml:"days"`
	Hours []int     `json:"hours" yaml:"hours"`
	Plays []float64 `json:"plays" yaml:"plays"`
}

func (h *HeatmapDataset) Empty() bool {
	return h == nil || h.Len() == 0
}

func (h *HeatmapDataset) Len() int {
	if h == nil {
		return 0
	}
	return min(len(h.Days), len(h.Hours), len(h.Plays))
}

// Series is one named line or bar group of a [SeriesDataset].
type Series struct {
	Name string    `json:"name" yaml:"name"`
	Data []float64 `json:"data" yaml:"data"`
}

// SeriesDataset holds several series over shared categories.
type SeriesDataset struct {
	Categories []string `json:"categories" yaml:"categories"`
	Series     []Series `json:"series" yaml:"series"`
}

// Empty reports whether there are no categories or every series is empty.
func (s *SeriesDataset) Empty() bool {
	if s == nil || len(s.Categories) == 0 {
		return true
	}
	for _, series := range s.Series {
		if len(series.Data) > 0 {
			return false
		}
	}
	return true
}

// Total sums every series at category index i.
func (s *SeriesDataset) Total(i int) float64 {
	var total float64
	for _, series := range s.Series {
		if i < len(series.Data) {
			total += series.Data[i]
		}
	}
	return total
}

// ChartData is every dataset the dashboard charts consume. A nil field means "render nothing".
type ChartData struct {
	Tracks  *Dataset        `json:"tracks,omitempty" yaml:"tracks,omitempty"`
	Albums  *Dataset        `json:"albums,omitempty" yaml:"albums,omitempty"`
	Artists *Dataset        `json:"artists,omitempty" yaml:"artists,omitempty"`
	Recent  *Dataset        `json:"recent,omitempty" yaml:"recent,omitempty"`
	Decades *Dataset        `json:"decades,omitempty" yaml:"decades,omitempty"`
	Heatmap *HeatmapDataset `json:"heatmap,omitempty" yaml:"heatmap,omitempty"`
	Friends *SeriesDataset  `json:"friends,omitempty" yaml:"friends,omitempty"`
	World   *Dataset        `json:"world,omitempty" yaml:"world,omitempty"`
	Past    *SeriesDataset  `json:"past,omitempty" yaml:"past,omitempty"`
}
