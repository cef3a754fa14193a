// Package history turns upstream daily-close payloads into the oldest-first
// series the chart consumes.
//
// Two upstream shapes are supported: a mapping keyed by trading date (any
// order, possibly with null closes) and index-aligned timestamp/close arrays
// that are already chronological but may contain nulls for non-trading rows.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockticker/internal/provider"
)

// MaxPoints bounds every normalized series.
const MaxPoints = 30

// DateLayout is the label format for every point.
const DateLayout = "2006-01-02"

type dated struct {
	at    time.Time
	close float64
}

// FromDateKeyed normalizes a date-keyed close map. Entries with a missing,
// null or unparsable close, or a key that is not a date, are skipped. The most
// recent MaxPoints dates are kept and returned oldest first.
func FromDateKeyed(closes map[string]*string) []provider.HistoryPoint {
	rows := make([]dated, 0, len(closes))
	for key, raw := range closes {
		if raw == nil {
			continue
		}
		at, err := time.Parse(DateLayout, strings.TrimSpace(key))
		if err != nil {
			continue
		}
		v, ok := parseClose(*raw)
		if !ok {
			continue
		}
		rows = append(rows, dated{at: at, close: v})
	}

	// newest first, slice, then back to chronological
	sort.Slice(rows, func(i, j int) bool { return rows[i].at.After(rows[j].at) })
	if len(rows) > MaxPoints {
		rows = rows[:MaxPoints]
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return toPoints(rows, time.UTC)
}

// FromIndexed normalizes index-aligned unix timestamps and closes. Null closes
// are skipped; the last MaxPoints samples are kept. Labels are rendered in loc
// (UTC when nil).
func FromIndexed(timestamps []int64, closes []*float64, loc *time.Location) []provider.HistoryPoint {
	if loc == nil {
		loc = time.UTC
	}
	n := min(len(timestamps), len(closes))
	rows := make([]dated, 0, n)
	for i := 0; i < n; i++ {
		if closes[i] == nil || timestamps[i] <= 0 {
			continue
		}
		rows = append(rows, dated{
			at:    time.Unix(timestamps[i], 0).In(loc),
			close: round2(decimal.NewFromFloat(*closes[i])),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })
	if len(rows) > MaxPoints {
		rows = rows[len(rows)-MaxPoints:]
	}
	return toPoints(rows, loc)
}

// Labels returns the date labels of points in order.
func Labels(points []provider.HistoryPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Date
	}
	return out
}

// Values returns the closes of points in order.
func Values(points []provider.HistoryPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

// Chronological reports whether every label is a date not after the next one.
func Chronological(points []provider.HistoryPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i-1].Date > points[i].Date {
			return false
		}
	}
	return true
}

func parseClose(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	return round2(d), true
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func toPoints(rows []dated, loc *time.Location) []provider.HistoryPoint {
	out := make([]provider.HistoryPoint, len(rows))
	for i, r := range rows {
		out[i] = provider.HistoryPoint{Date: r.at.In(loc).Format(DateLayout), Close: r.close}
	}
	return out
}
