package engine

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// The ownership marker is a two-line block appended to the description of
// every event this tool creates. It is the only durable ownership signal
// that survives loss of the mapping store, so the wire format is byte-exact
// across versions.

const (
	// BrandLine is the fixed human-readable first line of the marker.
	BrandLine = "Synced by CalMirror - do not remove this line"

	appToken = "[CalMirror]"
)

var (
	keyLineRe = regexp.MustCompile(`(?m)^\[CalMirror\] key=([0-9a-f]{64}-[0-9a-f]{64})\s*$`)

	// Legacy format written before the namespaced key scheme existed.
	legacyLineRe = regexp.MustCompile(`(?m)^\[CalMirror\] tuple=(\S+) name=(\S+) source=(\S+) occ=(\S+)\s*$`)
)

// Marker is the parsed ownership tag of a managed event.
type Marker struct {
	// Key is the namespaced "<namespaceHash>-<contentHash>" key, empty for
	// legacy-only markers.
	Key string

	// Legacy fields, set when the event carries the old tuple format.
	LegacyConfigID string
	LegacyName     string
	LegacySourceID string
	LegacyInstant  string
}

// Namespace returns the ownership namespace of the marker: the hash prefix
// for namespaced markers, empty for legacy ones (legacy ownership is decided
// by config ID instead).
func (m Marker) Namespace() string {
	if m.Key == "" {
		return ""
	}
	return KeyNamespace(m.Key)
}

// LegacyKey returns the composite "<nativeId>|<isoInstant>" key encoded in a
// legacy marker, or empty when the marker is not legacy.
func (m Marker) LegacyKey() string {
	if m.LegacySourceID == "" {
		return ""
	}
	return m.LegacySourceID + "|" + m.LegacyInstant
}

// RenderMarker produces the marker block for a namespaced key.
func RenderMarker(key string) string {
	return BrandLine + "\n" + appToken + " key=" + key
}

// RenderLegacyMarker produces the old tuple marker block. Kept so tests can
// fabricate pre-migration events; the engine itself only writes the new form.
func RenderLegacyMarker(configID, syncName, nativeID string, instant time.Time) string {
	return BrandLine + "\n" + appToken +
		" tuple=" + configID +
		" name=" + url.QueryEscape(syncName) +
		" source=" + nativeID +
		" occ=" + isoInstant(instant)
}

// ParseMarker extracts the ownership marker from free text with an anchored
// grammar. Loose brand-substring matching is reserved for the purge sweep.
func ParseMarker(text string) (Marker, bool) {
	if m := keyLineRe.FindStringSubmatch(text); m != nil {
		return Marker{Key: m[1]}, true
	}
	if m := legacyLineRe.FindStringSubmatch(text); m != nil {
		name, err := url.QueryUnescape(m[2])
		if err != nil {
			name = m[2]
		}
		return Marker{
			LegacyConfigID: m[1],
			LegacyName:     name,
			LegacySourceID: m[3],
			LegacyInstant:  m[4],
		}, true
	}
	return Marker{}, false
}

// HasMarkerText reports whether the text contains any trace of a marker,
// parseable or not. Used for the loose title+time recovery index.
func HasMarkerText(text string) bool {
	return strings.Contains(text, appToken) || strings.Contains(text, BrandLine)
}

// HasBrand reports whether the text contains the brand phrase as a plain
// substring. This deliberately coarse match is what the purge operation uses.
func HasBrand(text string) bool {
	return strings.Contains(text, BrandLine)
}

// AppendMarker appends the marker block to a description unless one is
// already present, so repeated applies stay idempotent.
func AppendMarker(description, key string) string {
	if _, ok := ParseMarker(description); ok {
		return description
	}
	if description == "" {
		return RenderMarker(key)
	}
	return description + "\n\n" + RenderMarker(key)
}

// EnsureBrand makes sure the brand line is present without altering an
// existing structured key, so legacy events gain the brand text while
// keeping the key they were created with.
func EnsureBrand(description string) string {
	if strings.Contains(description, BrandLine) {
		return description
	}
	if description == "" {
		return BrandLine
	}
	return description + "\n\n" + BrandLine
}
