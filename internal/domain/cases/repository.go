package cases

import (
	"context"
	"time"
)

// CaseRepository persists cases.  Implementations must return
// errors.ErrCodeCaseNotFound (via pkg/errors) for missing ids.
type CaseRepository interface {
	FindByID(ctx context.Context, id string) (*Case, error)
	Save(ctx context.Context, c *Case) error

	// FindActive returns all cases in OPEN or IN_PROGRESS status.
	FindActive(ctx context.Context) ([]*Case, error)

	// FindActiveDeadlineBefore returns active cases whose generic deadline is
	// strictly before cutoff.  Used by the expiry sweep.
	FindActiveDeadlineBefore(ctx context.Context, cutoff time.Time) ([]*Case, error)

	// ExpireIfActive flips a case to EXPIRED only if it is still active at
	// write time, so a sweep never overwrites a concurrent completion.
	// Returns true when a row was actually expired.
	ExpireIfActive(ctx context.Context, id string, at time.Time) (bool, error)
}

// ExecutionRepository persists sub-procedure executions.
type ExecutionRepository interface {
	FindByID(ctx context.Context, id string) (*Execution, error)
	FindByCaseID(ctx context.Context, caseID string) ([]*Execution, error)
	Save(ctx context.Context, e *Execution) error
}

// TemplateRepository reads checklist-template entries.
type TemplateRepository interface {
	FindEntries(ctx context.Context, templateID string) ([]*ChecklistEntry, error)
}

// AlertRepository persists the one-to-one alert record.
type AlertRepository interface {
	Upsert(ctx context.Context, a *Alert) error
	FindByCaseID(ctx context.Context, caseID string) (*Alert, error)
}

// Store bundles the repositories behind a single unit of work.  WithinTx runs
// fn against a transactional view of the store: the compliance controller's
// reload–recompute–validate–persist sequence must execute atomically so two
// concurrent updates to the same case cannot interleave their window
// computation.
type Store interface {
	Cases() CaseRepository
	Executions() ExecutionRepository
	Templates() TemplateRepository
	Alerts() AlertRepository

	WithinTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
