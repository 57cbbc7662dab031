package engine

import (
	"time"

	"github.com/kellertobias/calmirror/internal/domain"
)

// Allowed reports whether the occurrence's start instant falls inside at
// least one configured time window. No windows means everything is allowed.
// All-day events are exempt: they have no meaningful time to test against.
func Allowed(ev *domain.Occurrence, windows []domain.TimeWindow, loc *time.Location) bool {
	if len(windows) == 0 {
		return true
	}
	if ev.AllDay {
		return true
	}
	if loc == nil {
		loc = time.Local
	}

	local := ev.Start.In(loc)
	weekday := local.Weekday()
	minute := local.Hour()*60 + local.Minute()

	for _, w := range windows {
		if w.Weekday != weekday {
			continue
		}
		start, err := domain.ParseClock(w.Start)
		if err != nil {
			continue
		}
		end, err := domain.ParseClock(w.End)
		if err != nil {
			continue
		}
		if start <= minute && minute < end {
			return true
		}
	}
	return false
}
