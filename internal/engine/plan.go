package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/internal/domain"
)

// looseKey indexes target events by title and start instant. It is the last
// recovery path for events whose marker text survived but no longer parses.
type looseKey struct {
	title string
	start int64
}

func looseOf(title string, start time.Time) looseKey {
	return looseKey{title: title, start: start.UTC().Unix()}
}

// targetIndex holds the four lookup structures over target occurrences.
type targetIndex struct {
	byNative map[string]*domain.Occurrence
	byKey    map[string]*domain.Occurrence
	byLegacy map[string]*domain.Occurrence
	byLoose  map[looseKey]*domain.Occurrence
}

func indexTargets(target []domain.Occurrence) *targetIndex {
	idx := &targetIndex{
		byNative: make(map[string]*domain.Occurrence),
		byKey:    make(map[string]*domain.Occurrence),
		byLegacy: make(map[string]*domain.Occurrence),
		byLoose:  make(map[looseKey]*domain.Occurrence),
	}
	for i := range target {
		t := &target[i]
		if t.NativeID != "" {
			idx.byNative[t.NativeID] = t
		}
		if m, ok := ParseMarker(t.Description); ok {
			if m.Key != "" {
				idx.byKey[m.Key] = t
			}
			if lk := m.LegacyKey(); lk != "" {
				idx.byLegacy[lk] = t
			}
		}
		// Only events that already carry some marker text qualify for loose
		// matching; unmanaged events must never be claimed.
		if HasMarkerText(t.Description) || HasMarkerText(t.URL) {
			idx.byLoose[looseOf(t.Title, t.Start)] = t
		}
	}
	return idx
}

// BuildPlan computes the minimal action set for one configuration. It never
// writes; missing read authorization yields an empty plan, not an error.
func (e *Engine) BuildPlan(ctx context.Context, cfg *domain.SyncConfig) (*domain.PlanResult, error) {
	res := &domain.PlanResult{}

	if !e.provider.CanRead(ctx) {
		e.log.Warn("calendar read authorization missing, skipping", zap.String("sync", cfg.Name))
		return res, nil
	}

	days := cfg.HorizonDays
	if days <= 0 {
		days = e.horizon
	}
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}

	now := e.now()
	from, to := now, now.AddDate(0, 0, days)

	source, err := e.provider.ListEvents(ctx, cfg.SourceCalendar, from, to)
	if err != nil {
		return nil, fmt.Errorf("list source events: %w", err)
	}
	target, err := e.provider.ListEvents(ctx, cfg.TargetCalendar, from, to)
	if err != nil {
		return nil, fmt.Errorf("list target events: %w", err)
	}
	mappings, err := e.store.FindBySync(cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	idx := indexTargets(target)

	// Mapping fast path: (source native ID, occurrence instant) -> target ID.
	mappedTarget := make(map[string]string, len(mappings))
	for _, m := range mappings {
		mappedTarget[m.SourceEventID+"|"+m.OccurrenceDate] = m.TargetEventID
	}

	// seen holds the raw key of every source occurrence, filtered or not. A
	// source occurrence that fails filtering is recorded here so it is never
	// considered for deletion; this prevents create/delete churn when the
	// user temporarily narrows filters.
	seen := make(map[string]bool)
	live := make(map[string]bool)
	seenLegacy := make(map[string]bool)
	claimed := make(map[string]bool)

	var upserts []domain.PlanAction

	for i := range source {
		src := &source[i]
		key := OccurrenceKey(cfg.Name, src.Title, src.Instant())
		if seen[key] {
			e.log.Debug("duplicate source occurrence dropped",
				zap.String("sync", cfg.Name),
				zap.String("title", src.Title),
				zap.Time("instant", src.Instant()),
			)
			continue
		}
		seen[key] = true
		if src.NativeID != "" {
			seenLegacy[LegacyKey(src.NativeID, src.Instant())] = true
		}

		if !Passes(src, cfg) || !Allowed(src, cfg.Windows, e.loc) {
			continue
		}
		live[key] = true

		tgt := resolveTarget(src, key, idx, mappedTarget)
		if tgt == nil {
			upserts = append(upserts, domain.PlanAction{
				Kind:   domain.ActionCreate,
				Source: src,
				Reason: "no managed target event for occurrence",
			})
			res.Created++
			continue
		}
		claimed[tgt.NativeID] = true

		if why := dirtyReason(cfg, src, tgt); why != "" {
			upserts = append(upserts, domain.PlanAction{
				Kind:   domain.ActionUpdate,
				Source: src,
				Target: tgt,
				Reason: why,
			})
			res.Updated++
		}
	}

	deletes := e.planDeletes(cfg, target, seen, live, seenLegacy, claimed)
	res.Deleted = len(deletes)

	// Deletes first: a stale event left in place could be re-claimed by the
	// loose title+time match and show up as a transient duplicate.
	res.Actions = append(res.Actions, deletes...)
	res.Actions = append(res.Actions, upserts...)
	return res, nil
}

// resolveTarget finds the managed target event for a source occurrence:
// mapping store first, then the namespaced marker key, then the legacy
// composite key, then the loose title+time recovery index.
func resolveTarget(src *domain.Occurrence, key string, idx *targetIndex, mappedTarget map[string]string) *domain.Occurrence {
	if src.NativeID != "" {
		if id, ok := mappedTarget[src.NativeID+"|"+isoInstant(src.Instant())]; ok {
			if t, ok := idx.byNative[id]; ok {
				return t
			}
		}
	}
	if t, ok := idx.byKey[key]; ok {
		return t
	}
	if src.NativeID != "" {
		if t, ok := idx.byLegacy[LegacyKey(src.NativeID, src.Instant())]; ok {
			return t
		}
	}
	if t, ok := idx.byLoose[looseOf(src.Title, src.Start)]; ok {
		return t
	}
	return nil
}

// planDeletes emits a delete for every target occurrence that carries a
// recognizable marker owned by this sync whose source occurrence no longer
// exists at all. Ownership is checked twice over: the event must live in the
// configured target calendar and the marker namespace must match, so two
// syncs sharing a calendar can never delete each other's events.
func (e *Engine) planDeletes(cfg *domain.SyncConfig, target []domain.Occurrence, seen, live, seenLegacy, claimed map[string]bool) []domain.PlanAction {
	ns := NamespaceHash(cfg.Name)
	var deletes []domain.PlanAction
	for i := range target {
		t := &target[i]
		if claimed[t.NativeID] {
			continue
		}
		m, ok := ParseMarker(t.Description)
		if !ok {
			continue
		}
		if t.CalendarRef != "" && t.CalendarRef != cfg.TargetCalendar {
			continue
		}
		if m.Key != "" {
			if m.Namespace() != ns {
				continue
			}
			if live[m.Key] || seen[m.Key] {
				continue
			}
		} else {
			if m.LegacyConfigID != cfg.ID {
				continue
			}
			if lk := m.LegacyKey(); lk != "" && seenLegacy[lk] {
				continue
			}
		}
		deletes = append(deletes, domain.PlanAction{
			Kind:   domain.ActionDelete,
			Target: t,
			Reason: "source occurrence no longer exists",
		})
	}
	return deletes
}

// dirtyReason compares the fields the sync mode actually copies and returns
// a human-readable reason when an update is needed, empty otherwise.
// Blocker mode intentionally ignores location.
func dirtyReason(cfg *domain.SyncConfig, src, tgt *domain.Occurrence) string {
	if want := desiredTitle(cfg, src); tgt.Title != want {
		return fmt.Sprintf("title %q -> %q", tgt.Title, want)
	}
	if !tgt.Start.Equal(src.Start) {
		return "start time changed"
	}
	if !tgt.End.Equal(src.End) {
		return "end time changed"
	}
	if cfg.Mode != domain.ModeBlockerOnly && tgt.Location != src.Location {
		return "location changed"
	}
	return ""
}

// desiredTitle is the title the target event should carry for its mode.
func desiredTitle(cfg *domain.SyncConfig, src *domain.Occurrence) string {
	if cfg.Mode == domain.ModeBlockerOnly {
		return RenderBlockerTitle(cfg.BlockerTemplate, src.Title)
	}
	return src.Title
}

// RenderBlockerTitle substitutes the source title into a blocker template.
func RenderBlockerTitle(template, sourceTitle string) string {
	if template == "" {
		return "Busy"
	}
	return strings.ReplaceAll(template, "{sourceTitle}", sourceTitle)
}
