package models

import (
	"github.com/desertthunder/scrobblex/internal/shared"
)

// Period is the time range of the Last.fm top lists.
type Period string

const (
	PeriodOverall Period = "overall"
	Period7Day    Period = "7day"
	Period1Month  Period = "1month"
	Period3Month  Period = "3month"
	Period6Month  Period = "6month"
	Period12Month Period = "12month"
)

var periodLabels = map[Period]string{
	PeriodOverall: "All Time",
	Period7Day:    "Last 7 Days",
	Period1Month:  "Last Month",
	Period3Month:  "Last 3 Months",
	Period6Month:  "Last 6 Months",
	Period12Month: "Last Year",
}

// Periods lists every period in display order.
func Periods() []Period {
	return []Period{PeriodOverall, Period7Day, Period1Month, Period3Month, Period6Month, Period12Month}
}

// ParsePeriod validates s. The empty string is [PeriodOverall].
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodOverall, nil
	}
	p := Period(s)
	if _, ok := periodLabels[p]; ok {
		return p, nil
	}

	names := make([]string, 0, len(periodLabels))
	for _, p := range Periods() {
		names = append(names, string(p))
	}
	return "", shared.WithSuggestion(shared.ErrInvalidPeriod, s, names)
}

// Label returns the human readable name of p.
func (p Period) Label() string {
	if l, ok := periodLabels[p]; ok {
		return l
	}
	return string(p)
}

func (p Period) String() string { return string(p) }
