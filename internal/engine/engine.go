// Package engine implements the reconciliation core: it derives occurrence
// identities, filters source events, diffs them against managed target
// events and applies the minimal create/update/delete set. Re-running with a
// stale view is safe; the algorithm is idempotent and convergent.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/internal/domain"
)

// Provider is the abstract calendar source/sink.
type Provider interface {
	// CanRead reports whether the provider grants read access at all.
	CanRead(ctx context.Context) bool
	ListEvents(ctx context.Context, calendarRef string, from, to time.Time) ([]domain.Occurrence, error)
	// CreateEvent writes a new event and returns its native identifier.
	CreateEvent(ctx context.Context, calendarRef string, ev *domain.Occurrence) (string, error)
	UpdateEvent(ctx context.Context, calendarRef string, ev *domain.Occurrence) error
	DeleteEvent(ctx context.Context, calendarRef, nativeID string) error
	// ReadEvent returns nil without error when the event does not exist.
	// Used to verify writes.
	ReadEvent(ctx context.Context, calendarRef, nativeID string) (*domain.Occurrence, error)
	ResolveCalendar(ctx context.Context, ref string) (domain.CalendarInfo, error)
	// Calendars lists every calendar reachable with current authorization.
	Calendars(ctx context.Context) ([]domain.CalendarInfo, error)
}

// MappingStore persists source-to-target identifier mappings.
type MappingStore interface {
	FindBySync(syncConfigID string) ([]domain.MappingRecord, error)
	Upsert(rec *domain.MappingRecord) error
	DeleteByTarget(syncConfigID, targetEventID string) error
}

// Reporter receives per-run diagnostic summaries for audit logging.
type Reporter interface {
	RecordRun(sum *domain.RunSummary) error
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	// Location is the timezone used for time-window evaluation.
	Location *time.Location
	// HorizonDays is the global default horizon; per-config overrides win.
	HorizonDays int
	// Reporters receive run summaries. Leave empty to skip diagnostics.
	Reporters []Reporter
	// Now overrides the clock, for tests.
	Now func() time.Time
}

const defaultHorizonDays = 30

// Engine reconciles sync configurations against the calendar provider.
type Engine struct {
	provider  Provider
	store     MappingStore
	log       *zap.Logger
	loc       *time.Location
	horizon   int
	reporters []Reporter
	now       func() time.Time
}

// New creates an engine over a provider and mapping store.
func New(provider Provider, store MappingStore, log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		provider:  provider,
		store:     store,
		log:       log,
		loc:       opts.Location,
		horizon:   opts.HorizonDays,
		reporters: opts.Reporters,
		now:       opts.Now,
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.horizon <= 0 {
		e.horizon = defaultHorizonDays
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Sync runs one full reconciliation pass for a configuration: build the
// plan, apply it, and hand a summary to the reporters. The returned summary
// is always non-nil, even on failure.
func (e *Engine) Sync(ctx context.Context, cfg *domain.SyncConfig) (*domain.RunSummary, error) {
	sum := &domain.RunSummary{
		SyncConfigID: cfg.ID,
		SyncName:     cfg.Name,
		StartedAt:    e.now(),
	}

	plan, err := e.BuildPlan(ctx, cfg)
	if err != nil {
		sum.FinishedAt = e.now()
		sum.Status = "failed"
		sum.Message = err.Error()
		e.report(sum)
		return sum, err
	}
	sum.PlannedCreated = plan.Created
	sum.PlannedUpdated = plan.Updated
	sum.PlannedDeleted = plan.Deleted

	if plan.Empty() {
		sum.FinishedAt = e.now()
		sum.Status = "empty"
		e.report(sum)
		return sum, nil
	}

	applied, err := e.Apply(ctx, cfg, plan)
	sum.AppliedCreated = applied.Created
	sum.AppliedUpdated = applied.Updated
	sum.AppliedDeleted = applied.Deleted
	sum.FinishedAt = e.now()
	if err != nil {
		sum.Status = "failed"
		sum.Message = err.Error()
		e.report(sum)
		return sum, err
	}

	sum.Status = "ok"
	e.report(sum)
	e.log.Info("sync completed",
		zap.String("sync", cfg.Name),
		zap.Int("created", applied.Created),
		zap.Int("updated", applied.Updated),
		zap.Int("deleted", applied.Deleted),
	)
	return sum, nil
}

func (e *Engine) report(sum *domain.RunSummary) {
	for _, r := range e.reporters {
		if err := r.RecordRun(sum); err != nil {
			e.log.Warn("record run summary", zap.String("sync", sum.SyncName), zap.Error(err))
		}
	}
}
