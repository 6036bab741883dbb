// Package testutil provides in-memory fakes shared by unit tests: a Store
// implementation backed by maps, a recording logger, and a fixed clock.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

// MemStore is a map-backed cases.Store.  Repository methods are individually
// synchronized; WithinTx additionally serializes whole transactions so
// concurrent recomputations observe each other's writes in full, mirroring
// the SERIALIZABLE-enough behavior the production store provides.
type MemStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	cases      map[string]*cases.Case
	executions map[string]*cases.Execution
	templates  map[string][]*cases.ChecklistEntry
	alerts     map[string]*cases.Alert

	// SaveHook, when set, runs inside every case save.  Tests use it to
	// inject failures mid-transaction.
	SaveHook func(c *cases.Case) error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		cases:      make(map[string]*cases.Case),
		executions: make(map[string]*cases.Execution),
		templates:  make(map[string][]*cases.ChecklistEntry),
		alerts:     make(map[string]*cases.Alert),
	}
}

func (s *MemStore) Cases() cases.CaseRepository           { return (*memCaseRepo)(s) }
func (s *MemStore) Executions() cases.ExecutionRepository { return (*memExecRepo)(s) }
func (s *MemStore) Templates() cases.TemplateRepository   { return (*memTemplateRepo)(s) }
func (s *MemStore) Alerts() cases.AlertRepository         { return (*memAlertRepo)(s) }

// WithinTx serializes fn against all other transactions.  There is no
// rollback: tests asserting on failure paths must not also assert on
// untouched state written before the failure point.
func (s *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, st cases.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, s)
}

// SeedTemplate registers checklist entries under their template id.
func (s *MemStore) SeedTemplate(templateID string, entries []*cases.ChecklistEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[templateID] = entries
}

// PutCase inserts a case directly, bypassing Save semantics.
func (s *MemStore) PutCase(c *cases.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = cloneCase(c)
}

// PutExecution inserts an execution directly.
func (s *MemStore) PutExecution(e *cases.Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[e.ID] = cloneExecution(e)
}

// AlertFor returns the stored alert or nil.
func (s *MemStore) AlertFor(caseID string) *cases.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[caseID]
	if !ok {
		return nil
	}
	clone := *a
	return &clone
}

type memCaseRepo MemStore

func (r *memCaseRepo) FindByID(_ context.Context, id string) (*cases.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeCaseNotFound, "case not found: "+id)
	}
	return cloneCase(c), nil
}

func (r *memCaseRepo) Save(_ context.Context, c *cases.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveHook != nil {
		if err := r.SaveHook(c); err != nil {
			return err
		}
	}
	r.cases[c.ID] = cloneCase(c)
	return nil
}

func (r *memCaseRepo) FindActive(_ context.Context) ([]*cases.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*cases.Case
	for _, c := range r.cases {
		if c.IsActive() {
			out = append(out, cloneCase(c))
		}
	}
	sortCases(out)
	return out, nil
}

func (r *memCaseRepo) FindActiveDeadlineBefore(_ context.Context, cutoff time.Time) ([]*cases.Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*cases.Case
	for _, c := range r.cases {
		if c.IsActive() && c.GenericDeadline.Before(cutoff) {
			out = append(out, cloneCase(c))
		}
	}
	sortCases(out)
	return out, nil
}

func (r *memCaseRepo) ExpireIfActive(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[id]
	if !ok {
		return false, errors.New(errors.ErrCodeCaseNotFound, "case not found: "+id)
	}
	if !c.IsActive() {
		return false, nil
	}
	c.Status = cases.StatusExpired
	c.UpdatedAt = at
	return true, nil
}

type memExecRepo MemStore

func (r *memExecRepo) FindByID(_ context.Context, id string) (*cases.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeExecutionNotFound, "execution not found: "+id)
	}
	return cloneExecution(e), nil
}

func (r *memExecRepo) FindByCaseID(_ context.Context, caseID string) ([]*cases.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*cases.Execution
	for _, e := range r.executions {
		if e.CaseID == caseID {
			out = append(out, cloneExecution(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memExecRepo) Save(_ context.Context, e *cases.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions[e.ID] = cloneExecution(e)
	return nil
}

type memTemplateRepo MemStore

func (r *memTemplateRepo) FindEntries(_ context.Context, templateID string) ([]*cases.ChecklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, ok := r.templates[templateID]
	if !ok {
		return nil, errors.New(errors.ErrCodeTemplateNotFound, "template not found: "+templateID)
	}
	out := make([]*cases.ChecklistEntry, len(entries))
	for i, e := range entries {
		clone := *e
		out[i] = &clone
	}
	return out, nil
}

type memAlertRepo MemStore

func (r *memAlertRepo) Upsert(_ context.Context, a *cases.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *a
	r.alerts[a.CaseID] = &clone
	return nil
}

func (r *memAlertRepo) FindByCaseID(_ context.Context, caseID string) (*cases.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[caseID]
	if !ok {
		return nil, errors.NotFound("no alert for case " + caseID)
	}
	clone := *a
	return &clone, nil
}

func sortCases(cs []*cases.Case) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}

func cloneCase(c *cases.Case) *cases.Case {
	clone := *c
	clone.BillingAuthorization = cloneStr(c.BillingAuthorization)
	clone.WindowStart = cloneTime(c.WindowStart)
	clone.WindowEnd = cloneTime(c.WindowEnd)
	clone.StartCompetency = cloneStr(c.StartCompetency)
	clone.EndCompetency = cloneStr(c.EndCompetency)
	clone.CompletedAt = cloneTime(c.CompletedAt)
	return &clone
}

func cloneExecution(e *cases.Execution) *cases.Execution {
	clone := *e
	clone.ExecutionDate = cloneTime(e.ExecutionDate)
	clone.ScheduledFor = cloneTime(e.ScheduledFor)
	clone.CollectedAt = cloneTime(e.CollectedAt)
	clone.ResultAt = cloneTime(e.ResultAt)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
