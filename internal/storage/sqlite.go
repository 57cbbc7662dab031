package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kellertobias/calmirror/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Storage persists identifier mappings and per-run audit logs in sqlite.
// Mappings are the reconciliation fast path; the ownership marker embedded
// in target events is the fallback when this store is lost.
type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		// The composite uniqueness makes repeated "discovered via marker,
		// not yet mapped" inserts converge into a single row.
		`CREATE TABLE IF NOT EXISTS mappings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_config_id TEXT NOT NULL,
			source_event_id TEXT NOT NULL,
			occurrence_date TEXT NOT NULL,
			target_event_id TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (sync_config_id, source_event_id, occurrence_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_sync ON mappings(sync_config_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_target ON mappings(target_event_id)`,
		`CREATE TABLE IF NOT EXISTS sync_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_config_id TEXT NOT NULL,
			sync_name TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			planned_created INTEGER DEFAULT 0,
			planned_updated INTEGER DEFAULT 0,
			planned_deleted INTEGER DEFAULT 0,
			applied_created INTEGER DEFAULT 0,
			applied_updated INTEGER DEFAULT 0,
			applied_deleted INTEGER DEFAULT 0,
			status TEXT NOT NULL,
			message TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_sync ON sync_runs(sync_config_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// === Mappings ===

func (s *Storage) FindBySync(syncConfigID string) ([]domain.MappingRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, sync_config_id, source_event_id, occurrence_date, target_event_id, updated_at
		 FROM mappings WHERE sync_config_id = ? ORDER BY id`,
		syncConfigID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.MappingRecord
	for rows.Next() {
		var r domain.MappingRecord
		if err := rows.Scan(&r.ID, &r.SyncConfigID, &r.SourceEventID, &r.OccurrenceDate, &r.TargetEventID, &r.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Upsert inserts or refreshes the mapping for one occurrence. Updates also
// go through here so identifier rotation on the target side is absorbed.
func (s *Storage) Upsert(rec *domain.MappingRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO mappings (sync_config_id, source_event_id, occurrence_date, target_event_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (sync_config_id, source_event_id, occurrence_date)
		 DO UPDATE SET target_event_id = excluded.target_event_id, updated_at = excluded.updated_at`,
		rec.SyncConfigID, rec.SourceEventID, rec.OccurrenceDate, rec.TargetEventID, rec.UpdatedAt,
	)
	return err
}

// DeleteByTarget removes all mapping rows referencing a target event.
func (s *Storage) DeleteByTarget(syncConfigID, targetEventID string) error {
	_, err := s.db.Exec(
		`DELETE FROM mappings WHERE sync_config_id = ? AND target_event_id = ?`,
		syncConfigID, targetEventID,
	)
	return err
}

// DeleteBySync removes every mapping of a sync configuration.
func (s *Storage) DeleteBySync(syncConfigID string) error {
	_, err := s.db.Exec(`DELETE FROM mappings WHERE sync_config_id = ?`, syncConfigID)
	return err
}

// === Run log ===

// RecordRun stores a run summary in the audit log. Implements the engine's
// Reporter interface.
func (s *Storage) RecordRun(sum *domain.RunSummary) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_runs (sync_config_id, sync_name, started_at, finished_at,
			planned_created, planned_updated, planned_deleted,
			applied_created, applied_updated, applied_deleted,
			status, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.SyncConfigID, sum.SyncName, sum.StartedAt, sum.FinishedAt,
		sum.PlannedCreated, sum.PlannedUpdated, sum.PlannedDeleted,
		sum.AppliedCreated, sum.AppliedUpdated, sum.AppliedDeleted,
		sum.Status, sum.Message,
	)
	return err
}

// ListRuns returns the most recent run summaries for a sync configuration.
func (s *Storage) ListRuns(syncConfigID string, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT sync_config_id, sync_name, started_at, finished_at,
			planned_created, planned_updated, planned_deleted,
			applied_created, applied_updated, applied_deleted,
			status, message
		 FROM sync_runs WHERE sync_config_id = ? ORDER BY started_at DESC LIMIT ?`,
		syncConfigID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		if err := rows.Scan(&r.SyncConfigID, &r.SyncName, &r.StartedAt, &r.FinishedAt,
			&r.PlannedCreated, &r.PlannedUpdated, &r.PlannedDeleted,
			&r.AppliedCreated, &r.AppliedUpdated, &r.AppliedDeleted,
			&r.Status, &r.Message); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
