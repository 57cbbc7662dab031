package caldav

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/kellertobias/calmirror/internal/domain"
)

var errNoData = errors.New("no event data in calendar object")

// Safety cap against pathological rules; one per series is plenty for any
// realistic horizon window.
const maxOccurrencesPerSeries = 5000

// expandRecurring materializes a recurring series into one occurrence per
// instance within [from, to). Instances removed by EXDATE or replaced by a
// RECURRENCE-ID override are skipped; overrides inside the range are
// appended with their own times.
func expandRecurring(base domain.Occurrence, rruleStr string, exdates []time.Time, overrides []domain.Occurrence, from, to time.Time) []domain.Occurrence {
	opt, err := rrule.StrToROption(rruleStr)
	if err != nil {
		return []domain.Occurrence{base}
	}
	opt.Dtstart = base.Start.UTC()

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return []domain.Occurrence{base}
	}

	skip := make(map[int64]bool, len(exdates)+len(overrides))
	for _, t := range exdates {
		skip[t.UTC().Unix()] = true
	}
	for _, ov := range overrides {
		skip[ov.OccurrenceStart.UTC().Unix()] = true
	}

	duration := base.End.Sub(base.Start)
	times := rule.Between(from.UTC(), to.UTC(), true)
	if len(times) > maxOccurrencesPerSeries {
		times = times[:maxOccurrencesPerSeries]
	}

	var out []domain.Occurrence
	for _, t := range times {
		if skip[t.UTC().Unix()] {
			continue
		}
		occ := base
		occ.Start = t
		occ.End = t.Add(duration)
		occ.OccurrenceStart = t
		occ.Recurring = true
		out = append(out, occ)
	}

	for _, ov := range overrides {
		if ov.Start.Before(to) && ov.End.After(from) {
			ov.Recurring = true
			out = append(out, ov)
		}
	}
	return out
}
