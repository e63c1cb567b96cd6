// Package chart derives time-ordered intensity series from pain tables and
// renders them as PNG line charts.
package chart

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"schmerzverlauf/internal/table"
)

// Point is one plotted observation.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	// Row is the index of the source row in the table the series came from.
	Row int `json:"row"`
}

// Options names the columns a series is built from.
type Options struct {
	DateColumn  string
	TimeColumn  string // optional clock time refining DateColumn
	ValueColumn string
}

// DefaultOptions matches the pain table columns.
func DefaultOptions() Options {
	return Options{DateColumn: "Datum", TimeColumn: "Uhrzeit", ValueColumn: "Stärke"}
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseDate parses the date formats found in stored tables.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses an intensity value, accepting a decimal comma. NaN and
// infinities do not count as numbers.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Series returns one point per row whose date and value both parse, sorted
// ascending by time. Rows sharing a timestamp keep their table order. Rows
// that fail to parse are skipped.
func Series(t table.Table, opts Options) []Point {
	if opts.DateColumn == "" || opts.ValueColumn == "" {
		opts = DefaultOptions()
	}
	useClock := opts.TimeColumn != "" && t.Schema().Has(opts.TimeColumn)
	points := make([]Point, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		when, ok := ParseDate(t.Value(i, opts.DateColumn))
		if !ok {
			continue
		}
		value, ok := ParseNumber(t.Value(i, opts.ValueColumn))
		if !ok {
			continue
		}
		if useClock {
			when = withClock(when, t.Value(i, opts.TimeColumn))
		}
		points = append(points, Point{Time: when, Value: value, Row: i})
	}
	sort.SliceStable(points, func(a, b int) bool { return points[a].Time.Before(points[b].Time) })
	return points
}

func withClock(day time.Time, clock string) time.Time {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day
	}
	for _, layout := range clockLayouts {
		c, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		y, m, d := day.Date()
		return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, day.Location())
	}
	return day
}
