package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/internal/domain"
	"github.com/kellertobias/calmirror/internal/errs"
)

// Apply executes a plan against the calendar sink. The remote calendar has
// no transaction primitive: each action is an independent, individually
// verified write. On the first failure the loop aborts and the already
// completed writes stay in place; the returned ApplyResult reports the
// partial progress.
func (e *Engine) Apply(ctx context.Context, cfg *domain.SyncConfig, plan *domain.PlanResult) (*domain.ApplyResult, error) {
	res := &domain.ApplyResult{}

	info, err := e.provider.ResolveCalendar(ctx, cfg.TargetCalendar)
	if err != nil {
		return res, fmt.Errorf("%w: resolve target calendar %q: %v", errs.ErrConfigurationInvalid, cfg.TargetCalendar, err)
	}
	if !info.Writable {
		return res, fmt.Errorf("%w: target calendar %q is not writable", errs.ErrConfigurationInvalid, info.Title)
	}

	for i := range plan.Actions {
		a := &plan.Actions[i]
		switch a.Kind {
		case domain.ActionCreate:
			err = e.applyCreate(ctx, cfg, a, res)
		case domain.ActionUpdate:
			err = e.applyUpdate(ctx, cfg, a, res)
		case domain.ActionDelete:
			err = e.applyDelete(ctx, cfg, a, res)
		default:
			err = fmt.Errorf("unknown action kind %q", a.Kind)
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) applyCreate(ctx context.Context, cfg *domain.SyncConfig, a *domain.PlanAction, res *domain.ApplyResult) error {
	key := OccurrenceKey(cfg.Name, a.Source.Title, a.Source.Instant())
	ev := buildTargetEvent(cfg, a.Source, key)

	id, err := e.provider.CreateEvent(ctx, cfg.TargetCalendar, ev)
	if err != nil {
		return fmt.Errorf("create %q: %w", ev.Title, err)
	}

	// The provider reported success; trust only a read-back.
	got, err := e.provider.ReadEvent(ctx, cfg.TargetCalendar, id)
	if err != nil {
		return fmt.Errorf("verify create %q: %w", ev.Title, err)
	}
	if got == nil {
		return fmt.Errorf("%w: created event %q not readable", errs.ErrWriteVerification, ev.Title)
	}

	if err := e.upsertMapping(cfg, a.Source, id); err != nil {
		return err
	}
	res.Created++
	e.log.Debug("created target event", zap.String("sync", cfg.Name), zap.String("title", ev.Title), zap.String("id", id))
	return nil
}

func (e *Engine) applyUpdate(ctx context.Context, cfg *domain.SyncConfig, a *domain.PlanAction, res *domain.ApplyResult) error {
	key := OccurrenceKey(cfg.Name, a.Source.Title, a.Source.Instant())

	ev := *a.Target
	ev.Title = desiredTitle(cfg, a.Source)
	ev.Start = a.Source.Start
	ev.End = a.Source.End
	ev.AllDay = a.Source.AllDay
	if cfg.Mode != domain.ModeBlockerOnly {
		ev.Location = a.Source.Location
	}
	ev.Availability = domain.AvailabilityBusy

	// Marker repair: append a full marker when none is present; when a
	// structured key already exists, only make sure the brand line is there
	// so legacy events keep the key they were created with.
	ev.Description = AppendMarker(ev.Description, key)
	ev.Description = EnsureBrand(ev.Description)
	if ev.URL == "" {
		ev.URL = RenderMarker(key)
	}

	if err := e.provider.UpdateEvent(ctx, cfg.TargetCalendar, &ev); err != nil {
		return fmt.Errorf("update %q: %w", ev.Title, err)
	}

	// Verify by presence, not content: providers normalize fields.
	got, err := e.provider.ReadEvent(ctx, cfg.TargetCalendar, ev.NativeID)
	if err != nil {
		return fmt.Errorf("verify update %q: %w", ev.Title, err)
	}
	if got == nil {
		return fmt.Errorf("%w: updated event %q not readable", errs.ErrWriteVerification, ev.Title)
	}

	// Upsert under the identifier read back: it may have rotated.
	if err := e.upsertMapping(cfg, a.Source, got.NativeID); err != nil {
		return err
	}
	res.Updated++
	return nil
}

func (e *Engine) applyDelete(ctx context.Context, cfg *domain.SyncConfig, a *domain.PlanAction, res *domain.ApplyResult) error {
	id := a.Target.NativeID
	if err := e.provider.DeleteEvent(ctx, cfg.TargetCalendar, id); err != nil {
		return fmt.Errorf("delete %q: %w", a.Target.Title, err)
	}

	got, err := e.provider.ReadEvent(ctx, cfg.TargetCalendar, id)
	if err != nil {
		return fmt.Errorf("verify delete %q: %w", a.Target.Title, err)
	}
	if got != nil {
		return fmt.Errorf("%w: deleted event %q still readable", errs.ErrWriteVerification, a.Target.Title)
	}

	// Best effort: a stale mapping row is harmless, the next plan simply
	// misses the fast path and falls back to the marker.
	if err := e.store.DeleteByTarget(cfg.ID, id); err != nil {
		e.log.Warn("delete mapping rows", zap.String("sync", cfg.Name), zap.String("target", id), zap.Error(err))
	}
	res.Deleted++
	return nil
}

func (e *Engine) upsertMapping(cfg *domain.SyncConfig, src *domain.Occurrence, targetID string) error {
	rec := &domain.MappingRecord{
		SyncConfigID:   cfg.ID,
		SourceEventID:  src.NativeID,
		OccurrenceDate: isoInstant(src.Instant()),
		TargetEventID:  targetID,
		UpdatedAt:      e.now(),
	}
	if err := e.store.Upsert(rec); err != nil {
		return fmt.Errorf("store mapping: %w", err)
	}
	return nil
}

// buildTargetEvent assembles the event to create for a source occurrence.
// Availability is always forced to busy: there is no cross-provider private
// flag, so opacity is the privacy convention.
func buildTargetEvent(cfg *domain.SyncConfig, src *domain.Occurrence, key string) *domain.Occurrence {
	ev := &domain.Occurrence{
		CalendarRef:  cfg.TargetCalendar,
		Title:        desiredTitle(cfg, src),
		Start:        src.Start,
		End:          src.End,
		AllDay:       src.AllDay,
		Availability: domain.AvailabilityBusy,
	}
	switch cfg.Mode {
	case domain.ModeFull:
		ev.Location = src.Location
		ev.Description = src.Description
	case domain.ModePrivateCopy:
		ev.Location = src.Location
	case domain.ModeBlockerOnly:
		// Times and templated title only.
	}
	ev.Description = AppendMarker(ev.Description, key)
	if ev.URL == "" {
		ev.URL = RenderMarker(key)
	}
	return ev
}
