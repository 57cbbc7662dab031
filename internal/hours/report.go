package hours

import (
	"context"
	"fmt"
	"time"

	"github.com/kellertobias/calmirror/internal/domain"
)

// EventSource is the slice of the calendar provider the report needs.
type EventSource interface {
	ListEvents(ctx context.Context, calendarRef string, from, to time.Time) ([]domain.Occurrence, error)
}

// ReportConfig selects the calendars and factor for an activatable-hours report.
type ReportConfig struct {
	Calendar          string
	ExclusionCalendar string
	Percent           int
	Location          *time.Location
}

// Report pulls busy events from the working calendar and exclusion events
// from the optional exclusion calendar, then computes per-day buckets.
// All-day and free events do not count as working time.
func Report(ctx context.Context, src EventSource, cfg ReportConfig, from, to time.Time) ([]DayBucket, error) {
	events, err := src.ListEvents(ctx, cfg.Calendar, from, to)
	if err != nil {
		return nil, fmt.Errorf("list working events: %w", err)
	}
	working := busyIntervals(events)

	var exclusions []Interval
	if cfg.ExclusionCalendar != "" {
		excl, err := src.ListEvents(ctx, cfg.ExclusionCalendar, from, to)
		if err != nil {
			return nil, fmt.Errorf("list exclusion events: %w", err)
		}
		for _, ev := range excl {
			exclusions = append(exclusions, Interval{Start: ev.Start, End: ev.End})
		}
	}

	return Compute(working, exclusions, Options{Percent: cfg.Percent, Location: cfg.Location}), nil
}

func busyIntervals(events []domain.Occurrence) []Interval {
	var out []Interval
	for _, ev := range events {
		if ev.AllDay || ev.Availability == domain.AvailabilityFree {
			continue
		}
		if !ev.End.After(ev.Start) {
			continue
		}
		out = append(out, Interval{Start: ev.Start, End: ev.End})
	}
	return out
}
