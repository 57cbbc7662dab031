package domain

import (
	"fmt"
	"time"
)

// SyncMode controls how much of a source event is mirrored to the target.
type SyncMode string

const (
	// ModeFull copies title, times, location and description.
	ModeFull SyncMode = "full"
	// ModePrivateCopy copies title, times and location but no body text.
	ModePrivateCopy SyncMode = "privateCopy"
	// ModeBlockerOnly creates opaque placeholders with a templated title and
	// the source times only. Location is intentionally not synced.
	ModeBlockerOnly SyncMode = "blockerOnly"
)

// IsValid checks if the mode is a known value.
func (m SyncMode) IsValid() bool {
	switch m {
	case ModeFull, ModePrivateCopy, ModeBlockerOnly:
		return true
	}
	return false
}

// FilterKind identifies one filter rule variant.
type FilterKind string

const (
	FilterTitleContains        FilterKind = "title_contains"
	FilterTitleNotContains     FilterKind = "title_not_contains"
	FilterTitleMatches         FilterKind = "title_matches"
	FilterTitleNotMatches      FilterKind = "title_not_matches"
	FilterLocationContains     FilterKind = "location_contains"
	FilterLocationNotContains  FilterKind = "location_not_contains"
	FilterLocationMatches      FilterKind = "location_matches"
	FilterLocationNotMatches   FilterKind = "location_not_matches"
	FilterNotesContains        FilterKind = "notes_contains"
	FilterNotesNotContains     FilterKind = "notes_not_contains"
	FilterNotesMatches         FilterKind = "notes_matches"
	FilterNotesNotMatches      FilterKind = "notes_not_matches"
	FilterOrganizerContains    FilterKind = "organizer_contains"
	FilterOrganizerNotContains FilterKind = "organizer_not_contains"
	FilterOrganizerMatches     FilterKind = "organizer_matches"
	FilterOrganizerNotMatches  FilterKind = "organizer_not_matches"
	FilterAttendeeContains     FilterKind = "attendee_contains"
	FilterAttendeeNotContains  FilterKind = "attendee_not_contains"
	FilterAttendeeMatches      FilterKind = "attendee_matches"
	FilterAttendeeNotMatches   FilterKind = "attendee_not_matches"

	FilterDurationLongerThan  FilterKind = "duration_longer_than"
	FilterDurationShorterThan FilterKind = "duration_shorter_than"

	FilterAllDayOnly    FilterKind = "all_day_only"
	FilterNoAllDay      FilterKind = "no_all_day"
	FilterNoFreeAllDay  FilterKind = "no_free_all_day"

	FilterAcceptedOnly  FilterKind = "accepted_only"
	FilterTentativeOnly FilterKind = "tentative_only"

	FilterAttendeesMoreThan  FilterKind = "attendees_more_than"
	FilterAttendeesFewerThan FilterKind = "attendees_fewer_than"

	FilterRepeatingOnly FilterKind = "repeating_only"
	FilterNoRepeating   FilterKind = "no_repeating"

	FilterBusyOnly FilterKind = "busy_only"
	FilterFreeOnly FilterKind = "free_only"

	// FilterNoForeignSync excludes events that carry an ownership marker
	// belonging to a different sync configuration.
	FilterNoForeignSync FilterKind = "no_foreign_sync"
)

// KnownFilterKinds lists every supported rule variant.
var KnownFilterKinds = []FilterKind{
	FilterTitleContains, FilterTitleNotContains, FilterTitleMatches, FilterTitleNotMatches,
	FilterLocationContains, FilterLocationNotContains, FilterLocationMatches, FilterLocationNotMatches,
	FilterNotesContains, FilterNotesNotContains, FilterNotesMatches, FilterNotesNotMatches,
	FilterOrganizerContains, FilterOrganizerNotContains, FilterOrganizerMatches, FilterOrganizerNotMatches,
	FilterAttendeeContains, FilterAttendeeNotContains, FilterAttendeeMatches, FilterAttendeeNotMatches,
	FilterDurationLongerThan, FilterDurationShorterThan,
	FilterAllDayOnly, FilterNoAllDay, FilterNoFreeAllDay,
	FilterAcceptedOnly, FilterTentativeOnly,
	FilterAttendeesMoreThan, FilterAttendeesFewerThan,
	FilterRepeatingOnly, FilterNoRepeating,
	FilterBusyOnly, FilterFreeOnly,
	FilterNoForeignSync,
}

// IsValid checks if the kind is a known value.
func (k FilterKind) IsValid() bool {
	for _, known := range KnownFilterKinds {
		if k == known {
			return true
		}
	}
	return false
}

// FilterRule is a single predicate over an event occurrence. All configured
// rules of a sync must pass for an occurrence to be eligible.
type FilterRule struct {
	Kind          FilterKind `yaml:"kind"`
	Pattern       string     `yaml:"pattern,omitempty"`
	CaseSensitive bool       `yaml:"case_sensitive,omitempty"`
}

// TimeWindow restricts eligible occurrences to a weekday time range.
// Times are "HH:MM" strings; start is expected to be before end.
type TimeWindow struct {
	Weekday time.Weekday `yaml:"weekday"`
	Start   string       `yaml:"start"`
	End     string       `yaml:"end"`
}

// ParseClock parses an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// SyncConfig describes one source-to-target mirroring rule set. Configs are
// authored externally (config file or UI) and consumed read-only per run.
type SyncConfig struct {
	ID              string       `yaml:"id"`
	Name            string       `yaml:"name"`
	SourceCalendar  string       `yaml:"source_calendar"`
	TargetCalendar  string       `yaml:"target_calendar"`
	Mode            SyncMode     `yaml:"mode"`
	BlockerTemplate string       `yaml:"blocker_template,omitempty"`
	HorizonDays     int          `yaml:"horizon_days,omitempty"`
	Enabled         bool         `yaml:"enabled"`
	Filters         []FilterRule `yaml:"filters,omitempty"`
	Windows         []TimeWindow `yaml:"windows,omitempty"`
	CreatedAt       time.Time    `yaml:"-"`
	UpdatedAt       time.Time    `yaml:"-"`
}
