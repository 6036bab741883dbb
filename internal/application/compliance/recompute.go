package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
	rules "github.com/medregula/casetrack/internal/domain/compliance"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/pkg/errors"
)

// ExecutionUpdate carries one execution state change into the engine.
type ExecutionUpdate struct {
	ExecutionID   string
	Status        cases.ExecutionStatus
	ExecutionDate *time.Time
	ScheduledFor  *time.Time
	CollectedAt   *time.Time
	ResultAt      *time.Time
	Result        string
	UnitID        string
	ClinicianID   string
}

// window is the competency window derived from the DONE executions, together
// with the registration deadline it implies.
type window struct {
	start, end         time.Time
	startComp, endComp string
	deadline           time.Time
}

// deriveWindow computes the competency window from the DONE subset of execs.
// Returns nil when no execution anchors a window.  Returns a deadline
// violation when the latest DONE date falls past the registration deadline;
// the caller must not persist anything in that transaction.
//
// The end competency starts as the successor of the start competency and
// collapses back onto it when the registration deadline itself still falls
// inside the start month, so the window never promises a second month that
// the deadline forbids.
func deriveWindow(caseType cases.CaseType, execs []*cases.Execution) (*window, error) {
	var start, end time.Time
	found := false
	for _, e := range execs {
		if !e.IsDone() {
			continue
		}
		d := e.ExecutionDate.UTC()
		if !found {
			start, end = d, d
			found = true
			continue
		}
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	if !found {
		return nil, nil
	}

	startComp := rules.CompetencyCode(start)
	endComp := rules.NextCompetency(startComp)
	deadline := rules.RegistrationDeadline(caseType, start, endComp)
	if rules.CompetencyCode(deadline) == startComp {
		endComp = startComp
		deadline = rules.RegistrationDeadline(caseType, start, endComp)
	}

	if end.After(deadline) {
		return nil, errors.DeadlineViolation(fmt.Sprintf(
			"execution dated %s exceeds registration deadline %s for window %s..%s",
			end.Format("2006-01-02"), deadline.Format("2006-01-02"), startComp, endComp))
	}

	return &window{start: start, end: end, startComp: startComp, endComp: endComp, deadline: deadline}, nil
}

// RecordExecution applies one execution update and recomputes the case.  The
// reload, window derivation, deadline check, checklist evaluation, and all
// writes happen in one transaction; a deadline violation rejects the update
// entirely, leaving the execution untouched.
func (s *Service) RecordExecution(ctx context.Context, upd ExecutionUpdate) (*cases.Case, *cases.Alert, error) {
	if !cases.ValidExecutionStatus(upd.Status) {
		return nil, nil, errors.InvalidParam("unknown execution status: " + string(upd.Status))
	}
	if upd.Status == cases.ExecDone && upd.ExecutionDate == nil {
		return nil, nil, errors.InvalidParam("a DONE execution requires an execution date")
	}

	now := s.nowFn().UTC()
	started := time.Now()

	var (
		updatedCase  *cases.Case
		updatedAlert *cases.Alert
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, st cases.Store) error {
		exec, err := st.Executions().FindByID(ctx, upd.ExecutionID)
		if err != nil {
			return err
		}
		c, err := st.Cases().FindByID(ctx, exec.CaseID)
		if err != nil {
			return err
		}
		if c.IsTerminal() {
			return errors.IllegalTransition("cannot record executions on a case in status " + string(c.Status))
		}

		exec.Status = upd.Status
		exec.ExecutionDate = upd.ExecutionDate
		exec.ScheduledFor = upd.ScheduledFor
		exec.CollectedAt = upd.CollectedAt
		exec.ResultAt = upd.ResultAt
		if upd.Result != "" {
			exec.Result = upd.Result
		}
		if upd.UnitID != "" {
			exec.UnitID = upd.UnitID
		}
		if upd.ClinicianID != "" {
			exec.ClinicianID = upd.ClinicianID
		}
		exec.UpdatedAt = now

		execs, err := st.Executions().FindByCaseID(ctx, c.ID)
		if err != nil {
			return err
		}
		for i := range execs {
			if execs[i].ID == exec.ID {
				execs[i] = exec
			}
		}

		// Deadline enforcement happens before any write reaches the store.
		alert, err := s.recompute(ctx, st, c, execs, now)
		if err != nil {
			return err
		}
		if err := st.Executions().Save(ctx, exec); err != nil {
			return err
		}

		updatedCase, updatedAlert = c, alert
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.IsCode(err, errors.ErrCodeDeadlineViolation) {
			outcome = "deadline_violation"
		}
		s.metrics.ObserveRecompute(time.Since(started), outcome)
		return nil, nil, err
	}

	s.metrics.ObserveRecompute(time.Since(started), "ok")
	s.publishAlert(ctx, updatedCase, updatedAlert)
	return updatedCase, updatedAlert, nil
}

// Recompute re-derives the window, status, and alert of a case from its
// current executions.  It is idempotent: running it twice with no
// intervening change persists the same state.
func (s *Service) Recompute(ctx context.Context, caseID string) (*cases.Case, *cases.Alert, error) {
	now := s.nowFn().UTC()
	started := time.Now()

	var (
		updatedCase  *cases.Case
		updatedAlert *cases.Alert
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, st cases.Store) error {
		c, err := st.Cases().FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c.IsTerminal() {
			updatedCase = c
			return nil
		}
		execs, err := st.Executions().FindByCaseID(ctx, caseID)
		if err != nil {
			return err
		}
		updatedAlert, err = s.recompute(ctx, st, c, execs, now)
		if err != nil {
			return err
		}
		updatedCase = c
		return nil
	})
	if err != nil {
		s.metrics.ObserveRecompute(time.Since(started), "error")
		return nil, nil, err
	}

	s.metrics.ObserveRecompute(time.Since(started), "ok")
	s.publishAlert(ctx, updatedCase, updatedAlert)
	return updatedCase, updatedAlert, nil
}

// recompute is the transactional core shared by RecordExecution and
// Recompute.  It mutates c, persists it, and upserts the alert.
func (s *Service) recompute(ctx context.Context, st cases.Store, c *cases.Case, execs []*cases.Execution, now time.Time) (*cases.Alert, error) {
	win, err := deriveWindow(c.Type, execs)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeDeadlineViolation) {
			s.metrics.IncDeadlineViolation(c.Type)
			s.log.Warn("deadline violation rejected",
				logging.String("case_id", c.ID),
				logging.Err(err))
		}
		return nil, err
	}

	if win != nil {
		c.SetWindow(win.start, win.end, win.startComp, win.endComp, now)
	} else if c.HasWindow() {
		c.ClearWindow(now)
	}

	for _, e := range execs {
		if e.Status != cases.ExecPending {
			c.MarkInProgress(now)
			break
		}
	}

	entries, err := st.Templates().FindEntries(ctx, c.TemplateID)
	if err != nil {
		return nil, err
	}
	if result := rules.EvaluateChecklist(entries, execs); result.Satisfied && c.IsActive() {
		if err := c.Complete(now); err != nil {
			return nil, err
		}
		s.log.Info("case auto-completed", logging.String("case_id", c.ID))
	}

	deadline := c.GenericDeadline
	if win != nil {
		deadline = win.deadline
	}
	days := rules.DaysRemaining(deadline, now)
	tier := rules.Classify(days, c.Type)

	alert := &cases.Alert{
		CaseID:        c.ID,
		DaysRemaining: days,
		Tier:          tier,
		UpdatedAt:     now,
	}
	// An acknowledgment survives only while the tier holds; escalation or
	// de-escalation resurfaces the alert.
	if prev, err := st.Alerts().FindByCaseID(ctx, c.ID); err == nil && prev.Tier == tier {
		alert.Acknowledged = prev.Acknowledged
	} else if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	if err := st.Alerts().Upsert(ctx, alert); err != nil {
		return nil, err
	}
	if err := st.Cases().Save(ctx, c); err != nil {
		return nil, err
	}
	return alert, nil
}
