package domain

import "time"

// Availability is the busy/free classification of an event.
type Availability string

const (
	AvailabilityBusy      Availability = "busy"
	AvailabilityFree      Availability = "free"
	AvailabilityTentative Availability = "tentative"
)

// EventStatus is the overall status of an event as reported by the provider.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusTentative EventStatus = "tentative"
	StatusCancelled EventStatus = "cancelled"
)

// RSVP is a single attendee's participation state.
type RSVP string

const (
	RSVPAccepted    RSVP = "accepted"
	RSVPTentative   RSVP = "tentative"
	RSVPDeclined    RSVP = "declined"
	RSVPNeedsAction RSVP = "needs-action"
)

// Attendee is one invitee of an event.
type Attendee struct {
	Name  string
	Email string
	RSVP  RSVP
	// Self marks the attendee entry that belongs to the authenticated user.
	Self bool
}

// Occurrence is one concrete instance of a calendar event. A single event
// produces one occurrence; a repeating series produces one per instance, all
// sharing the series' NativeID and disambiguated by OccurrenceStart.
type Occurrence struct {
	// NativeID is the provider identifier (CalDAV UID). May be empty and is
	// not guaranteed stable across devices or provider-side edits.
	NativeID    string
	CalendarRef string

	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    string
	Description string
	Organizer   string
	Attendees   []Attendee

	Availability Availability
	Status       EventStatus

	// Recurring is true when the occurrence came from a repeating series.
	Recurring bool
	// OccurrenceStart is the instant of this instance within the series.
	// Zero for non-recurring events.
	OccurrenceStart time.Time

	// URL is the event's auxiliary link field.
	URL string
}

// Instant returns the occurrence instant: the series instance time for
// recurring events, the start time otherwise.
func (o *Occurrence) Instant() time.Time {
	if !o.OccurrenceStart.IsZero() {
		return o.OccurrenceStart
	}
	return o.Start
}

// DurationMinutes returns the whole minutes between start and end.
func (o *Occurrence) DurationMinutes() int {
	return int(o.End.Sub(o.Start) / time.Minute)
}

// SelfRSVP returns the authenticated user's own RSVP state, if present.
func (o *Occurrence) SelfRSVP() (RSVP, bool) {
	for _, a := range o.Attendees {
		if a.Self && a.RSVP != "" {
			return a.RSVP, true
		}
	}
	return "", false
}

// CalendarInfo describes a calendar reachable through the provider.
type CalendarInfo struct {
	Ref      string
	Title    string
	Writable bool
}
