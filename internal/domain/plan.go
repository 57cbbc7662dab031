package domain

import "time"

// ActionKind is the type of a planned reconciliation action.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// PlanAction is one create/update/delete decision of a reconciliation run.
type PlanAction struct {
	Kind   ActionKind
	Source *Occurrence
	Target *Occurrence
	Reason string
}

// PlanResult is the full action list of one run plus planned counts. Counts
// reflect planned work; after a failed apply they do not reflect ground truth.
type PlanResult struct {
	Actions []PlanAction
	Created int
	Updated int
	Deleted int
}

// Empty reports whether the plan contains no actions.
func (p *PlanResult) Empty() bool {
	return len(p.Actions) == 0
}

// ApplyResult counts the actions actually confirmed against the provider.
// The remote calendar has no transactions, so after a mid-run failure these
// counts deliberately differ from the planned ones.
type ApplyResult struct {
	Created int
	Updated int
	Deleted int
}

// RunSummary is the per-run diagnostic record handed to reporters.
type RunSummary struct {
	SyncConfigID string
	SyncName     string
	StartedAt    time.Time
	FinishedAt   time.Time

	PlannedCreated int
	PlannedUpdated int
	PlannedDeleted int
	AppliedCreated int
	AppliedUpdated int
	AppliedDeleted int

	// Status is "ok", "empty" or "failed".
	Status  string
	Message string
}
