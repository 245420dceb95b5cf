package domain

import (
	"strings"
	"time"
)

// Range selects the aggregation window exposed through ?range=.
type Range string

const (
	RangeLast7Days  Range = "last7days"
	RangeLast30Days Range = "last30days"
)

func ParseRange(s string) (Range, error) {
	switch Range(strings.ToLower(strings.TrimSpace(s))) {
	case "", RangeLast7Days:
		return RangeLast7Days, nil
	case RangeLast30Days:
		return RangeLast30Days, nil
	}
	return "", ErrValidationMeta("invalid query param", map[string]string{
		"range": "must be one of: last7days, last30days",
	})
}

func (r Range) Days() int {
	if r == RangeLast30Days {
		return 30
	}
	return 7
}

// Window is a half-open interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func WindowEndingAt(now time.Time, days int) Window {
	return Window{From: now.Add(-time.Duration(days) * 24 * time.Hour), To: now}
}

func (r Range) Window(now time.Time) Window { return WindowEndingAt(now, r.Days()) }

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

func (w Window) Days() float64 { return w.To.Sub(w.From).Hours() / 24 }

// WeekStart truncates t to Monday 00:00 UTC, the bucket key for featured slots.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return d.AddDate(0, 0, -offset)
}
