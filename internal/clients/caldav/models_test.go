package caldav

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"
	webdavcaldav "github.com/emersion/go-webdav/caldav"
	"github.com/stretchr/testify/require"

	"github.com/kellertobias/calmirror/internal/domain"
)

var baseStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func objectOf(cal *ical.Calendar) *webdavcaldav.CalendarObject {
	return &webdavcaldav.CalendarObject{Path: "/cal/work/ev-1.ics", Data: cal}
}

func TestEventRoundTrip(t *testing.T) {
	src := &domain.Occurrence{
		Title:        "Planning",
		Start:        baseStart,
		End:          baseStart.Add(time.Hour),
		Location:     "Room 4",
		Description:  "agenda",
		URL:          "https://example.com/x",
		Availability: domain.AvailabilityBusy,
	}

	cal := eventToICS(src, "uid-1")
	occs, err := parseCalendarObject(objectOf(cal), "me@example.com", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, occs, 1)

	got := occs[0]
	require.Equal(t, "uid-1", got.NativeID)
	require.Equal(t, src.Title, got.Title)
	require.True(t, got.Start.Equal(src.Start))
	require.True(t, got.End.Equal(src.End))
	require.Equal(t, src.Location, got.Location)
	require.Equal(t, src.Description, got.Description)
	require.Equal(t, src.URL, got.URL)
	require.Equal(t, domain.AvailabilityBusy, got.Availability)
	require.False(t, got.AllDay)
}

func TestFreeEventsBecomeTransparent(t *testing.T) {
	src := &domain.Occurrence{
		Title:        "Optional",
		Start:        baseStart,
		End:          baseStart.Add(time.Hour),
		Availability: domain.AvailabilityFree,
	}
	cal := eventToICS(src, "uid-2")
	occs, err := parseCalendarObject(objectOf(cal), "", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, domain.AvailabilityFree, occs[0].Availability)
}

func TestAllDayRoundTrip(t *testing.T) {
	src := &domain.Occurrence{
		Title:  "Offsite",
		Start:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}
	cal := eventToICS(src, "uid-3")
	occs, err := parseCalendarObject(objectOf(cal), "", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.True(t, occs[0].AllDay)
}

func TestParseAttendeesAndSelfDetection(t *testing.T) {
	cal := eventToICS(&domain.Occurrence{
		Title: "Review",
		Start: baseStart,
		End:   baseStart.Add(time.Hour),
	}, "uid-4")

	vevent := cal.Children[0]
	org := ical.NewProp(propOrganizer)
	org.Params.Set(paramCommonName, "The Boss")
	org.Value = "mailto:boss@example.com"
	vevent.Props.Add(org)

	for _, a := range []struct{ email, partstat string }{
		{"me@example.com", "TENTATIVE"},
		{"alex@example.com", "ACCEPTED"},
	} {
		att := ical.NewProp(propAttendee)
		att.Params.Set(paramPartStat, a.partstat)
		att.Value = "mailto:" + a.email
		vevent.Props.Add(att)
	}

	occs, err := parseCalendarObject(objectOf(cal), "me@example.com", time.Time{}, time.Time{})
	require.NoError(t, err)

	got := occs[0]
	require.Equal(t, "The Boss", got.Organizer)
	require.Len(t, got.Attendees, 2)

	rsvp, ok := got.SelfRSVP()
	require.True(t, ok)
	require.Equal(t, domain.RSVPTentative, rsvp)
}

func TestExpandRecurringSeries(t *testing.T) {
	base := domain.Occurrence{
		NativeID: "uid-5",
		Title:    "Standup",
		Start:    baseStart,
		End:      baseStart.Add(30 * time.Minute),
	}
	from := baseStart.AddDate(0, 0, -1)
	to := baseStart.AddDate(0, 0, 7)

	occs := expandRecurring(base, "FREQ=DAILY;COUNT=5", nil, nil, from, to)
	require.Len(t, occs, 5)
	for i, occ := range occs {
		require.True(t, occ.Recurring)
		require.Equal(t, "uid-5", occ.NativeID)
		require.True(t, occ.Start.Equal(baseStart.AddDate(0, 0, i)))
		require.True(t, occ.OccurrenceStart.Equal(occ.Start))
		require.Equal(t, 30*time.Minute, occ.End.Sub(occ.Start))
	}
}

func TestExpandHonorsExDates(t *testing.T) {
	base := domain.Occurrence{Title: "Standup", Start: baseStart, End: baseStart.Add(30 * time.Minute)}
	exdates := []time.Time{baseStart.AddDate(0, 0, 2)}

	occs := expandRecurring(base, "FREQ=DAILY;COUNT=5", exdates, nil,
		baseStart.AddDate(0, 0, -1), baseStart.AddDate(0, 0, 7))
	require.Len(t, occs, 4)
	for _, occ := range occs {
		require.False(t, occ.Start.Equal(baseStart.AddDate(0, 0, 2)))
	}
}

func TestExpandAppliesOverrides(t *testing.T) {
	base := domain.Occurrence{Title: "Standup", Start: baseStart, End: baseStart.Add(30 * time.Minute)}
	override := domain.Occurrence{
		Title:           "Standup (moved)",
		Start:           baseStart.AddDate(0, 0, 1).Add(2 * time.Hour),
		End:             baseStart.AddDate(0, 0, 1).Add(2*time.Hour + 30*time.Minute),
		OccurrenceStart: baseStart.AddDate(0, 0, 1),
	}

	occs := expandRecurring(base, "FREQ=DAILY;COUNT=3", nil, []domain.Occurrence{override},
		baseStart.AddDate(0, 0, -1), baseStart.AddDate(0, 0, 7))
	require.Len(t, occs, 3)

	var moved int
	for _, occ := range occs {
		if occ.Title == "Standup (moved)" {
			moved++
			require.True(t, occ.Start.Equal(override.Start))
		} else {
			require.False(t, occ.OccurrenceStart.Equal(override.OccurrenceStart),
				"the overridden instance must not also appear at its series time")
		}
	}
	require.Equal(t, 1, moved)
}

func TestExpandFallsBackOnBadRule(t *testing.T) {
	base := domain.Occurrence{Title: "Standup", Start: baseStart, End: baseStart.Add(30 * time.Minute)}
	occs := expandRecurring(base, "FREQ=SOMETIMES", nil, nil, baseStart, baseStart.AddDate(0, 0, 7))
	require.Len(t, occs, 1)
	require.Equal(t, base.Title, occs[0].Title)
}

func TestEventPath(t *testing.T) {
	require.Equal(t, "/cal/work/uid-1.ics", eventPath("/cal/work/", "uid-1"))
	require.Equal(t, "/cal/work/uid-1.ics", eventPath("/cal/work", "uid-1"))
}
