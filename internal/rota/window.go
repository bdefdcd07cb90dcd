// Package rota answers "which shifts does this viewer see this week" and keeps
// that answer fresh as shifts change.
package rota

import (
	"time"

	"github.com/laszhr/lasz/internal/domain"
)

// WeekLayout is the date format accepted for week anchors.
const WeekLayout = "2006-01-02"

// Window is a Monday-anchored seven day range, inclusive of both ends.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WeekOf returns the window containing t: Monday 00:00 through Sunday
// 23:59:59.999 in t's location.
func WeekOf(t time.Time) Window {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0
	return windowFrom(day.AddDate(0, 0, -offset))
}

// ParseWeek resolves a YYYY-MM-DD anchor in loc to its window.
// An empty anchor means the current week.
func ParseWeek(anchor string, loc *time.Location, now time.Time) (Window, error) {
	if anchor == "" {
		return WeekOf(now.In(loc)), nil
	}
	t, err := time.ParseInLocation(WeekLayout, anchor, loc)
	if err != nil {
		return Window{}, domain.Invalid("rota.parse_week", "week must be a date in YYYY-MM-DD format")
	}
	return WeekOf(t), nil
}

func windowFrom(start time.Time) Window {
	y, m, d := start.Date()
	return Window{
		Start: start,
		End:   time.Date(y, m, d+6, 23, 59, 59, int(999*time.Millisecond), start.Location()),
	}
}

// Next returns the following week.
func (w Window) Next() Window {
	return windowFrom(w.Start.AddDate(0, 0, 7))
}

// Prev returns the preceding week.
func (w Window) Prev() Window {
	return windowFrom(w.Start.AddDate(0, 0, -7))
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ContainsShift reports whether s starts and ends inside the window.
func (w Window) ContainsShift(s domain.Shift) bool {
	return !s.StartTime.Before(w.Start) && !s.EndTime.After(w.End)
}

// Anchor returns the window's Monday formatted with WeekLayout.
func (w Window) Anchor() string {
	return w.Start.Format(WeekLayout)
}
