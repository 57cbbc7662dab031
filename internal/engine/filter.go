package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kellertobias/calmirror/internal/domain"
)

// Passes evaluates all filter rules of a sync against one occurrence.
// Every rule must pass (logical AND). The function is total: malformed
// patterns simply fail to match, they never error.
func Passes(ev *domain.Occurrence, cfg *domain.SyncConfig) bool {
	ns := NamespaceHash(cfg.Name)
	for _, rule := range cfg.Filters {
		if !passRule(ev, rule, ns, cfg.ID) {
			return false
		}
	}
	return true
}

func passRule(ev *domain.Occurrence, r domain.FilterRule, namespace, syncID string) bool {
	switch r.Kind {
	case domain.FilterTitleContains:
		return contains(ev.Title, r.Pattern, r.CaseSensitive)
	case domain.FilterTitleNotContains:
		return !contains(ev.Title, r.Pattern, r.CaseSensitive)
	case domain.FilterTitleMatches:
		return matches(ev.Title, r.Pattern, r.CaseSensitive)
	case domain.FilterTitleNotMatches:
		return !matches(ev.Title, r.Pattern, r.CaseSensitive)

	case domain.FilterLocationContains:
		return contains(ev.Location, r.Pattern, r.CaseSensitive)
	case domain.FilterLocationNotContains:
		return !contains(ev.Location, r.Pattern, r.CaseSensitive)
	case domain.FilterLocationMatches:
		return matches(ev.Location, r.Pattern, r.CaseSensitive)
	case domain.FilterLocationNotMatches:
		return !matches(ev.Location, r.Pattern, r.CaseSensitive)

	case domain.FilterNotesContains:
		return contains(ev.Description, r.Pattern, r.CaseSensitive)
	case domain.FilterNotesNotContains:
		return !contains(ev.Description, r.Pattern, r.CaseSensitive)
	case domain.FilterNotesMatches:
		return matches(ev.Description, r.Pattern, r.CaseSensitive)
	case domain.FilterNotesNotMatches:
		return !matches(ev.Description, r.Pattern, r.CaseSensitive)

	case domain.FilterOrganizerContains:
		return contains(ev.Organizer, r.Pattern, r.CaseSensitive)
	case domain.FilterOrganizerNotContains:
		return !contains(ev.Organizer, r.Pattern, r.CaseSensitive)
	case domain.FilterOrganizerMatches:
		return matches(ev.Organizer, r.Pattern, r.CaseSensitive)
	case domain.FilterOrganizerNotMatches:
		return !matches(ev.Organizer, r.Pattern, r.CaseSensitive)

	case domain.FilterAttendeeContains:
		return anyAttendee(ev, func(s string) bool { return contains(s, r.Pattern, r.CaseSensitive) })
	case domain.FilterAttendeeNotContains:
		return !anyAttendee(ev, func(s string) bool { return contains(s, r.Pattern, r.CaseSensitive) })
	case domain.FilterAttendeeMatches:
		return anyAttendee(ev, func(s string) bool { return matches(s, r.Pattern, r.CaseSensitive) })
	case domain.FilterAttendeeNotMatches:
		return !anyAttendee(ev, func(s string) bool { return matches(s, r.Pattern, r.CaseSensitive) })

	case domain.FilterDurationLongerThan:
		min, err := strconv.Atoi(strings.TrimSpace(r.Pattern))
		return err == nil && ev.DurationMinutes() > min
	case domain.FilterDurationShorterThan:
		min, err := strconv.Atoi(strings.TrimSpace(r.Pattern))
		return err == nil && ev.DurationMinutes() < min

	case domain.FilterAllDayOnly:
		return ev.AllDay
	case domain.FilterNoAllDay:
		return !ev.AllDay
	case domain.FilterNoFreeAllDay:
		return !(ev.AllDay && ev.Availability == domain.AvailabilityFree)

	case domain.FilterAcceptedOnly:
		return rsvpState(ev) == domain.RSVPAccepted
	case domain.FilterTentativeOnly:
		return rsvpState(ev) == domain.RSVPTentative

	case domain.FilterAttendeesMoreThan:
		n, err := strconv.Atoi(strings.TrimSpace(r.Pattern))
		return err == nil && len(ev.Attendees) > n
	case domain.FilterAttendeesFewerThan:
		n, err := strconv.Atoi(strings.TrimSpace(r.Pattern))
		return err == nil && len(ev.Attendees) < n

	case domain.FilterRepeatingOnly:
		return ev.Recurring
	case domain.FilterNoRepeating:
		return !ev.Recurring

	case domain.FilterBusyOnly:
		return ev.Availability != domain.AvailabilityFree
	case domain.FilterFreeOnly:
		return ev.Availability == domain.AvailabilityFree

	case domain.FilterNoForeignSync:
		return !ownedByOtherSync(ev, namespace, syncID)
	}

	// Unknown rule kinds pass: an old config read by a newer binary should
	// not silently drop everything.
	return true
}

func contains(haystack, needle string, caseSensitive bool) bool {
	if needle == "" {
		return false
	}
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matches(s, pattern string, caseSensitive bool) bool {
	if pattern == "" {
		return false
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func anyAttendee(ev *domain.Occurrence, pred func(string) bool) bool {
	for _, a := range ev.Attendees {
		if pred(a.Name) || pred(a.Email) {
			return true
		}
	}
	return false
}

// rsvpState derives the effective participation state: the user's own RSVP
// when present, otherwise a heuristic from event status and availability
// (tentative availability implies tentative when no explicit RSVP exists).
func rsvpState(ev *domain.Occurrence) domain.RSVP {
	if rsvp, ok := ev.SelfRSVP(); ok {
		return rsvp
	}
	if ev.Status == domain.StatusCancelled {
		return domain.RSVPDeclined
	}
	if ev.Status == domain.StatusTentative || ev.Availability == domain.AvailabilityTentative {
		return domain.RSVPTentative
	}
	return domain.RSVPAccepted
}

// ownedByOtherSync reports whether the event carries a recognizable marker
// that belongs to a different sync configuration.
func ownedByOtherSync(ev *domain.Occurrence, namespace, syncID string) bool {
	m, ok := ParseMarker(ev.Description)
	if !ok {
		return false
	}
	if m.Key != "" {
		return m.Namespace() != namespace
	}
	return m.LegacyConfigID != syncID
}
