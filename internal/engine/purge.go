package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kellertobias/calmirror/internal/domain"
)

const (
	purgePastDays   = 365
	purgeFutureDays = 4 * 365
)

// CalendarScan summarizes one calendar's share of a purge sweep.
type CalendarScan struct {
	Calendar string
	Title    string
	Scanned  int
	Deleted  int
	Errors   []string
}

// PurgeResult lists everything a purge removed, for audit logging.
type PurgeResult struct {
	Calendars []CalendarScan
	Deleted   []domain.Occurrence
}

// Purge removes every event this tool has ever produced, across all
// reachable calendars, regardless of which sync or namespace produced it.
// Matching is a deliberately coarse brand-phrase substring test, much looser
// than the namespace check guarding normal deletions. Per-calendar failures
// are collected, not fatal.
func (e *Engine) Purge(ctx context.Context) (*PurgeResult, error) {
	cals, err := e.provider.Calendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	now := e.now()
	from := now.AddDate(0, 0, -purgePastDays)
	to := now.AddDate(0, 0, purgeFutureDays)

	res := &PurgeResult{}
	for _, cal := range cals {
		scan := CalendarScan{Calendar: cal.Ref, Title: cal.Title}
		events, err := e.provider.ListEvents(ctx, cal.Ref, from, to)
		if err != nil {
			scan.Errors = append(scan.Errors, err.Error())
			e.log.Warn("purge: list calendar", zap.String("calendar", cal.Title), zap.Error(err))
			res.Calendars = append(res.Calendars, scan)
			continue
		}
		scan.Scanned = len(events)

		for i := range events {
			ev := &events[i]
			if !HasBrand(ev.Description) {
				continue
			}
			if err := e.provider.DeleteEvent(ctx, cal.Ref, ev.NativeID); err != nil {
				scan.Errors = append(scan.Errors, fmt.Sprintf("delete %q: %v", ev.Title, err))
				continue
			}
			scan.Deleted++
			res.Deleted = append(res.Deleted, *ev)
		}
		res.Calendars = append(res.Calendars, scan)
	}

	e.log.Info("purge completed",
		zap.Int("calendars", len(res.Calendars)),
		zap.Int("deleted", len(res.Deleted)),
	)
	return res, nil
}
