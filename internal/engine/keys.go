package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Occurrence keys identify "this occurrence of this sync" independently of
// provider identifiers, which may rotate across devices or after edits.
// Title plus UTC-normalized occurrence instant is the most device-independent
// stable handle available; hashing the sync name in front partitions keys so
// two syncs sharing a target calendar cannot collide or cross-delete.

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NamespaceHash returns the ownership namespace for a sync configuration name.
func NamespaceHash(syncName string) string {
	return hashHex(syncName)
}

// isoInstant renders an instant as an ISO-8601 UTC string.
func isoInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// OccurrenceKey derives the namespaced key "<namespaceHash>-<contentHash>"
// for one occurrence of one sync.
func OccurrenceKey(syncName, title string, instant time.Time) string {
	return NamespaceHash(syncName) + "-" + hashHex(title+"|"+isoInstant(instant))
}

// KeyNamespace returns the namespace half of a namespaced key.
func KeyNamespace(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '-' {
			return key[:i]
		}
	}
	return key
}

// LegacyKey derives the pre-namespacing composite key "<nativeId>|<isoInstantUTC>".
// Mapping rows and markers written before the namespaced scheme use it, so
// the engine consults both.
func LegacyKey(nativeID string, instant time.Time) string {
	return nativeID + "|" + isoInstant(instant)
}
