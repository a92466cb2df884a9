package charts

import (
	"fmt"
	"math"
	"strconv"

	"github.com/desertthunder/scrobblex/internal/models"
)

// Days orders the heatmap rows, Sunday first.
var Days = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// BubbleScale multiplies plays into the bubble size stored as the third heatmap coordinate.
const BubbleScale = 5

// FormatCount prints whole numbers without a fraction and everything else with one decimal.
func FormatCount(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// PlaysArtistTooltip is the tooltip of the tracks and albums bars.
func PlaysArtistTooltip(ds *models.Dataset, i int) string {
	return fmt.Sprintf("Plays: %s | Artist: %s", FormatCount(ds.Data[i]), ds.Artist(i))
}

// PlaysTooltip is the tooltip of the artists bar.
func PlaysTooltip(ds *models.Dataset, i int) string {
	return "Plays: " + FormatCount(ds.Data[i])
}

// LabelTooltip is the tooltip of the donut charts.
func LabelTooltip(ds *models.Dataset, i int) string {
	return ds.Labels[i] + ": " + FormatCount(ds.Data[i])
}

// ScrobblesTooltip is the tooltip of the leaderboard charts.
func ScrobblesTooltip(v float64) string {
	return FormatCount(v) + " scrobbles"
}

// HourLabel formats the x coordinate of a heatmap bubble.
func HourLabel(h int) string {
	return fmt.Sprintf("%d:00", h)
}

// DayLabel formats the y coordinate of a heatmap bubble.
func DayLabel(i int) string {
	if i < 0 || i >= len(Days) {
		return ""
	}
	return Days[i]
}

// BubblePlays turns a bubble size back into a play count label.
func BubblePlays(z float64) string {
	return fmt.Sprintf("%d plays", int(math.Round(z/BubbleScale)))
}

// DayIndex returns the row of a day name, or -1.
func DayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

// JavaScript counterparts of the formatters above, used by the go-echarts adapters.
const (
	jsScrobbles       = `function (p) { return p.name + ': ' + p.value + ' scrobbles'; }`
	jsSeriesScrobbles = `function (p) { return p.seriesName + ' (' + p.name + '): ' + p.value + ' scrobbles'; }`
	jsBubble          = `function (p) {
  var days = ['Sunday', 'Monday', 'Tuesday', 'Wednesday', 'Thursday', 'Friday', 'Saturday'];
  return days[p.value[1]] + ' ' + p.value[0] + ':00<br/>' + Math.round(p.value[2] / 5) + ' plays';
}`
)
