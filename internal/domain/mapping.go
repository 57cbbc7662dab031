package domain

import "time"

// MappingRecord links one source occurrence to the target event created for
// it. It is the fast-path lookup during reconciliation; the ownership marker
// embedded in the target event is the fallback that survives store loss.
type MappingRecord struct {
	ID             int64
	SyncConfigID   string
	SourceEventID  string
	// OccurrenceDate is the ISO-8601 UTC occurrence instant, disambiguating
	// one instance of a repeating series from the series' shared identifier.
	OccurrenceDate string
	TargetEventID  string
	UpdatedAt      time.Time
}
