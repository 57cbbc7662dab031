package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kellertobias/calmirror/internal/domain"
)

func TestPurgeSweepsEveryCalendar(t *testing.T) {
	p := newFakeProvider(
		domain.CalendarInfo{Ref: "/cal/work/", Title: "Work", Writable: true},
		domain.CalendarInfo{Ref: "/cal/private/", Title: "Private", Writable: true},
	)
	e := newTestEngine(p, newFakeStore())

	// Managed events from two different syncs, plus one with a mangled
	// marker that still carries the brand phrase.
	a := sourceEvent("Blocked", 24*time.Hour)
	a.Description = RenderMarker(OccurrenceKey("sync-a", a.Title, a.Start))
	p.add("/cal/private/", a)

	b := sourceEvent("Copy", 48*time.Hour)
	b.Description = RenderMarker(OccurrenceKey("sync-b", b.Title, b.Start))
	p.add("/cal/work/", b)

	mangled := sourceEvent("Leftover", 72*time.Hour)
	mangled.Description = "junk " + BrandLine + " junk"
	p.add("/cal/private/", mangled)

	keep := sourceEvent("Dentist", 24*time.Hour)
	keep.Description = "personal appointment"
	keepID := p.add("/cal/private/", keep)

	res, err := e.Purge(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Deleted, 3)
	require.Len(t, p.events["/cal/private/"], 1)
	require.Empty(t, p.events["/cal/work/"])

	_, kept := p.events["/cal/private/"][keepID]
	require.True(t, kept, "unbranded event must survive the purge")
}

func TestPurgeCollectsPerCalendarErrors(t *testing.T) {
	p := newFakeProvider(
		domain.CalendarInfo{Ref: "/cal/work/", Title: "Work", Writable: true},
		domain.CalendarInfo{Ref: "/cal/private/", Title: "Private", Writable: true},
	)
	p.listErr["/cal/work/"] = errors.New("503 service unavailable")
	e := newTestEngine(p, newFakeStore())

	ev := sourceEvent("Blocked", 24*time.Hour)
	ev.Description = RenderMarker(OccurrenceKey("sync-a", ev.Title, ev.Start))
	p.add("/cal/private/", ev)

	res, err := e.Purge(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Deleted, 1)
	require.Len(t, res.Calendars, 2)

	for _, scan := range res.Calendars {
		if scan.Calendar == "/cal/work/" {
			require.NotEmpty(t, scan.Errors)
		} else {
			require.Empty(t, scan.Errors)
		}
	}
}
