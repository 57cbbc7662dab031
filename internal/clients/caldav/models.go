package caldav

import (
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/kellertobias/calmirror/internal/domain"
)

// Property and parameter names the ical package has no constants for.
const (
	propOrganizer    = "ORGANIZER"
	propAttendee     = "ATTENDEE"
	propStatus       = "STATUS"
	propTransparency = "TRANSP"
	propURL          = "URL"
	propExDate       = "EXDATE"
	propRecurrenceID = "RECURRENCE-ID"
	paramPartStat    = "PARTSTAT"
	paramCommonName  = "CN"
)

// parseCalendarObject converts one CalDAV object into occurrences. When a
// time range is given, recurring events are expanded into one occurrence
// per instance; a zero range returns just the base event (used by ReadEvent).
func parseCalendarObject(obj *caldav.CalendarObject, selfUser string, from, to time.Time) ([]domain.Occurrence, error) {
	if obj.Data == nil {
		return nil, errNoData
	}

	var base *domain.Occurrence
	var baseRRule string
	var exdates []time.Time
	var overrides []domain.Occurrence

	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		ev := parseEventComponent(comp, selfUser)
		if rid, ok := propDateTime(comp, propRecurrenceID); ok {
			ev.OccurrenceStart = rid
			overrides = append(overrides, ev)
			continue
		}
		if base == nil {
			b := ev
			base = &b
			if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
				baseRRule = prop.Value
			}
			exdates = parseExDates(comp)
		}
	}

	if base == nil {
		return nil, errNoData
	}

	if from.IsZero() && to.IsZero() {
		return []domain.Occurrence{*base}, nil
	}
	if baseRRule == "" {
		occs := []domain.Occurrence{*base}
		for _, ov := range overrides {
			occs = append(occs, ov)
		}
		return occs, nil
	}
	base.Recurring = true
	return expandRecurring(*base, baseRRule, exdates, overrides, from, to), nil
}

func parseEventComponent(comp *ical.Component, selfUser string) domain.Occurrence {
	var ev domain.Occurrence

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		ev.NativeID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		ev.Title = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		ev.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		ev.Location = prop.Value
	}
	if prop := comp.Props.Get(propURL); prop != nil {
		ev.URL = prop.Value
	}

	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			ev.Start = t
		}
		if valueType := prop.Params.Get(ical.ParamValue); valueType == string(ical.ValueDate) {
			ev.AllDay = true
		}
	}
	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			ev.End = t
		}
	}
	if ev.End.IsZero() {
		if ev.AllDay {
			ev.End = ev.Start.AddDate(0, 0, 1)
		} else {
			ev.End = ev.Start
		}
	}

	if prop := comp.Props.Get(propOrganizer); prop != nil {
		ev.Organizer = prop.Params.Get(paramCommonName)
		if ev.Organizer == "" {
			ev.Organizer = stripMailto(prop.Value)
		}
	}
	for _, prop := range comp.Props[propAttendee] {
		email := stripMailto(prop.Value)
		ev.Attendees = append(ev.Attendees, domain.Attendee{
			Name:  prop.Params.Get(paramCommonName),
			Email: email,
			RSVP:  parsePartStat(prop.Params.Get(paramPartStat)),
			Self:  selfUser != "" && strings.EqualFold(email, selfUser),
		})
	}

	if prop := comp.Props.Get(propStatus); prop != nil {
		switch strings.ToUpper(prop.Value) {
		case "CONFIRMED":
			ev.Status = domain.StatusConfirmed
		case "TENTATIVE":
			ev.Status = domain.StatusTentative
		case "CANCELLED":
			ev.Status = domain.StatusCancelled
		}
	}

	transp := ""
	if prop := comp.Props.Get(propTransparency); prop != nil {
		transp = strings.ToUpper(prop.Value)
	}
	switch {
	case transp == "TRANSPARENT":
		ev.Availability = domain.AvailabilityFree
	case ev.Status == domain.StatusTentative:
		ev.Availability = domain.AvailabilityTentative
	default:
		ev.Availability = domain.AvailabilityBusy
	}

	if comp.Props.Get(ical.PropRecurrenceRule) != nil {
		ev.Recurring = true
	}
	return ev
}

func propDateTime(comp *ical.Component, name string) (time.Time, bool) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, false
	}
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseExDates collects EXDATE values; the property may repeat and each may
// hold a comma-separated value list.
func parseExDates(comp *ical.Component) []time.Time {
	layouts := []string{"20060102T150405Z", "20060102T150405", "20060102"}
	var out []time.Time
	for _, prop := range comp.Props[propExDate] {
		for _, v := range strings.Split(prop.Value, ",") {
			v = strings.TrimSpace(v)
			for _, layout := range layouts {
				if t, err := time.Parse(layout, v); err == nil {
					out = append(out, t)
					break
				}
			}
		}
	}
	return out
}

func stripMailto(v string) string {
	return strings.TrimPrefix(strings.TrimPrefix(v, "mailto:"), "MAILTO:")
}

func parsePartStat(v string) domain.RSVP {
	switch strings.ToUpper(v) {
	case "ACCEPTED":
		return domain.RSVPAccepted
	case "TENTATIVE":
		return domain.RSVPTentative
	case "DECLINED":
		return domain.RSVPDeclined
	case "NEEDS-ACTION":
		return domain.RSVPNeedsAction
	}
	return ""
}

// eventToICS converts an occurrence to iCalendar format for PUT.
func eventToICS(ev *domain.Occurrence, uid string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//CalMirror//CalDAV//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, ev.Title)

	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.URL != "" {
		vevent.Props.SetText(propURL, ev.URL)
	}

	// Set times - convert to UTC to avoid timezone issues
	if ev.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, ev.Start)
		if !ev.End.IsZero() {
			vevent.Props.SetDate(ical.PropDateTimeEnd, ev.End)
		}
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		if !ev.End.IsZero() {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
		}
	}

	if ev.Availability == domain.AvailabilityFree {
		vevent.Props.SetText(propTransparency, "TRANSPARENT")
	} else {
		vevent.Props.SetText(propTransparency, "OPAQUE")
	}
	vevent.Props.SetText(propStatus, "CONFIRMED")

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}
