// Package schedule resolves deletion maintenance windows. Deletions only
// execute inside configured windows; projected deletion timestamps are
// snapped forward to the next permitted time.
package schedule

import (
	"fmt"
	"time"
)

// Window is a recurring weekly maintenance window, e.g. Mon-Wed 10:00-16:00.
type Window struct {
	Days      []time.Weekday
	StartHour int
	EndHour   int
}

func (w Window) includesDay(d time.Weekday) bool {
	for _, day := range w.Days {
		if day == d {
			return true
		}
	}
	return false
}

// Windows resolves timestamps against a set of maintenance windows.
// An empty set permits deletion at any time.
type Windows struct {
	windows []Window
	loc     *time.Location
}

// New builds a window resolver. Windows with inverted hours are rejected.
func New(windows []Window, loc *time.Location) (*Windows, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, w := range windows {
		if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
			return nil, fmt.Errorf("invalid window hours %d-%d", w.StartHour, w.EndHour)
		}
		if len(w.Days) == 0 {
			return nil, fmt.Errorf("window has no days")
		}
	}
	return &Windows{windows: windows, loc: loc}, nil
}

// Always permits deletion at any time.
func Always() *Windows {
	return &Windows{loc: time.UTC}
}

// NextTimeInWindow snaps t forward to the next permitted time. If t is
// already inside a window, or no windows are configured, t is returned
// unchanged.
func (ws *Windows) NextTimeInWindow(t time.Time) time.Time {
	if len(ws.windows) == 0 {
		return t
	}

	local := t.In(ws.loc)
	best := time.Time{}

	// Two weeks forward covers every weekly recurrence.
	for offset := 0; offset < 14; offset++ {
		day := local.AddDate(0, 0, offset)
		for _, w := range ws.windows {
			if !w.includesDay(day.Weekday()) {
				continue
			}
			start := time.Date(day.Year(), day.Month(), day.Day(), w.StartHour, 0, 0, 0, ws.loc)
			end := time.Date(day.Year(), day.Month(), day.Day(), w.EndHour, 0, 0, 0, ws.loc)
			if !local.Before(start) && local.Before(end) {
				return t
			}
			if start.After(local) && (best.IsZero() || start.Before(best)) {
				best = start
			}
		}
		if !best.IsZero() {
			return best
		}
	}
	return t
}
