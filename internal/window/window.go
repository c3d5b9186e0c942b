// Package window resolves the rolling analysis window and selects the rows inside it.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/abwindow/internal/table"
)

// Window is an inclusive calendar-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date of t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	d := table.Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the window length in days.
func (w Window) Days() int {
	return table.DaysBetween(w.Start, w.End) + 1
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(table.DateLayout), w.End.Format(table.DateLayout))
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday converts "fri", "Friday", etc. into a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, eris.Errorf("window: unknown weekday %q (valid: mon, tue, wed, thu, fri, sat, sun)", s)
	}
	return d, nil
}

// MostRecent returns the latest date on or before t that falls on weekday.
func MostRecent(t time.Time, weekday time.Weekday) time.Time {
	d := table.Day(t)
	back := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// Resolve computes the window ending on the most recent anchor weekday at
// least lagDays before reference, spanning windowDays days.
func Resolve(reference time.Time, anchor time.Weekday, lagDays, windowDays int) (Window, error) {
	if windowDays <= 0 {
		return Window{}, eris.Errorf("window: window_days must be positive, got %d", windowDays)
	}
	if lagDays < 0 {
		return Window{}, eris.Errorf("window: lag_days must not be negative, got %d", lagDays)
	}

	end := MostRecent(table.Day(reference).AddDate(0, 0, -lagDays), anchor)
	start := end.AddDate(0, 0, -(windowDays - 1))
	return Window{Start: start, End: end}, nil
}
