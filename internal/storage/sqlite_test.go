package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kellertobias/calmirror/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertConvergesOnOneRow(t *testing.T) {
	s := newTestStorage(t)

	rec := &domain.MappingRecord{
		SyncConfigID:   "cfg-1",
		SourceEventID:  "src-1",
		OccurrenceDate: "2026-03-02T09:00:00Z",
		TargetEventID:  "tgt-1",
	}
	require.NoError(t, s.Upsert(rec))

	// Same occurrence, rotated target identifier.
	rec.TargetEventID = "tgt-2"
	require.NoError(t, s.Upsert(rec))

	recs, err := s.FindBySync("cfg-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "tgt-2", recs[0].TargetEventID)
	require.False(t, recs[0].UpdatedAt.IsZero())
}

func TestFindBySyncIsolatesConfigs(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Upsert(&domain.MappingRecord{
		SyncConfigID: "cfg-1", SourceEventID: "src-1",
		OccurrenceDate: "2026-03-02T09:00:00Z", TargetEventID: "tgt-1",
	}))
	require.NoError(t, s.Upsert(&domain.MappingRecord{
		SyncConfigID: "cfg-2", SourceEventID: "src-1",
		OccurrenceDate: "2026-03-02T09:00:00Z", TargetEventID: "tgt-2",
	}))

	recs, err := s.FindBySync("cfg-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "tgt-1", recs[0].TargetEventID)
}

func TestDeleteByTarget(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Upsert(&domain.MappingRecord{
		SyncConfigID: "cfg-1", SourceEventID: "src-1",
		OccurrenceDate: "2026-03-02T09:00:00Z", TargetEventID: "tgt-1",
	}))
	require.NoError(t, s.Upsert(&domain.MappingRecord{
		SyncConfigID: "cfg-1", SourceEventID: "src-2",
		OccurrenceDate: "2026-03-02T10:00:00Z", TargetEventID: "tgt-2",
	}))

	require.NoError(t, s.DeleteByTarget("cfg-1", "tgt-1"))

	recs, err := s.FindBySync("cfg-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "tgt-2", recs[0].TargetEventID)
}

func TestDeleteBySync(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Upsert(&domain.MappingRecord{
		SyncConfigID: "cfg-1", SourceEventID: "src-1",
		OccurrenceDate: "2026-03-02T09:00:00Z", TargetEventID: "tgt-1",
	}))
	require.NoError(t, s.DeleteBySync("cfg-1"))

	recs, err := s.FindBySync("cfg-1")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestRunLogRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	started := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordRun(&domain.RunSummary{
			SyncConfigID:   "cfg-1",
			SyncName:       "work-to-private",
			StartedAt:      started.Add(time.Duration(i) * time.Hour),
			FinishedAt:     started.Add(time.Duration(i)*time.Hour + time.Minute),
			PlannedCreated: i,
			AppliedCreated: i,
			Status:         "ok",
		}))
	}

	runs, err := s.ListRuns("cfg-1", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	require.Equal(t, 2, runs[0].AppliedCreated)
	require.Equal(t, 1, runs[1].AppliedCreated)

	runs, err = s.ListRuns("cfg-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
}
