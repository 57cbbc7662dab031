package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var markerInstant = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func TestOccurrenceKeyShape(t *testing.T) {
	key := OccurrenceKey("work-to-private", "Standup", markerInstant)
	require.Len(t, key, 64+1+64)
	require.Equal(t, NamespaceHash("work-to-private"), KeyNamespace(key))

	// Same inputs, same key; any input change, different key.
	require.Equal(t, key, OccurrenceKey("work-to-private", "Standup", markerInstant))
	require.NotEqual(t, key, OccurrenceKey("other", "Standup", markerInstant))
	require.NotEqual(t, key, OccurrenceKey("work-to-private", "Planning", markerInstant))
	require.NotEqual(t, key, OccurrenceKey("work-to-private", "Standup", markerInstant.Add(time.Minute)))
}

func TestOccurrenceKeyNormalizesToUTC(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	require.Equal(t,
		OccurrenceKey("s", "Title", markerInstant),
		OccurrenceKey("s", "Title", markerInstant.In(berlin)),
	)
}

func TestMarkerRoundTrip(t *testing.T) {
	key := OccurrenceKey("work-to-private", "Standup", markerInstant)
	text := RenderMarker(key)

	m, ok := ParseMarker(text)
	require.True(t, ok)
	require.Equal(t, key, m.Key)
	require.Equal(t, NamespaceHash("work-to-private"), m.Namespace())

	// Still parses when embedded in surrounding prose.
	m, ok = ParseMarker("Agenda:\n- items\n\n" + text + "\n")
	require.True(t, ok)
	require.Equal(t, key, m.Key)
}

func TestLegacyMarkerRoundTrip(t *testing.T) {
	text := RenderLegacyMarker("cfg-1", "work to private", "uid-42", markerInstant)

	m, ok := ParseMarker(text)
	require.True(t, ok)
	require.Empty(t, m.Key)
	require.Equal(t, "cfg-1", m.LegacyConfigID)
	require.Equal(t, "work to private", m.LegacyName)
	require.Equal(t, "uid-42", m.LegacySourceID)
	require.Equal(t, "uid-42|2026-03-02T09:30:00Z", m.LegacyKey())
}

func TestParseMarkerRejectsMangledKeys(t *testing.T) {
	_, ok := ParseMarker("[CalMirror] key=corrupted")
	require.False(t, ok)
	_, ok = ParseMarker("unrelated text")
	require.False(t, ok)

	// Loose detection still sees the trace.
	require.True(t, HasMarkerText("[CalMirror] key=corrupted"))
	require.False(t, HasMarkerText("unrelated text"))
}

func TestAppendMarkerIsIdempotent(t *testing.T) {
	key := OccurrenceKey("s", "Standup", markerInstant)

	once := AppendMarker("agenda", key)
	require.Contains(t, once, "agenda")
	require.Contains(t, once, key)
	require.Equal(t, once, AppendMarker(once, key))

	require.Equal(t, RenderMarker(key), AppendMarker("", key))
}

func TestEnsureBrandKeepsExistingKey(t *testing.T) {
	legacy := "[CalMirror] tuple=cfg-1 name=s source=uid-1 occ=2026-03-02T09:30:00Z"
	branded := EnsureBrand(legacy)
	require.Contains(t, branded, BrandLine)
	require.Contains(t, branded, legacy)
	require.Equal(t, branded, EnsureBrand(branded))
}

func TestHasBrandIsSubstringMatch(t *testing.T) {
	require.True(t, HasBrand("x\n"+BrandLine+"\ny"))
	require.False(t, HasBrand("[CalMirror] key=deadbeef"))
}
