// Package compliance implements the case compliance controller: the single
// writer for competency windows, deadline enforcement, checklist-driven
// completion, alert upkeep, and the expiry sweep.  All writes for one case
// run inside one store transaction so recomputation is atomic and idempotent.
package compliance

import (
	"context"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
	rules "github.com/medregula/casetrack/internal/domain/compliance"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/pkg/errors"
)

// Service is the case compliance controller.
type Service struct {
	store     cases.Store
	log       logging.Logger
	metrics   EngineMetrics
	publisher AlertPublisher
	nowFn     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects a time source; tests pass a frozen clock.
func WithClock(nowFn func() time.Time) Option {
	return func(s *Service) { s.nowFn = nowFn }
}

// WithMetrics attaches an EngineMetrics implementation.
func WithMetrics(m EngineMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher attaches an alert-change publisher.
func WithPublisher(p AlertPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService constructs the controller.
func NewService(store cases.Store, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		log:     log.Named("compliance"),
		metrics: nopMetrics{},
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenCase creates a new case under the given checklist template, together
// with one PENDING execution per template entry and the initial alert record.
func (s *Service) OpenCase(ctx context.Context, patientID, templateID string, caseType cases.CaseType) (*cases.Case, error) {
	now := s.nowFn().UTC()

	var created *cases.Case
	err := s.store.WithinTx(ctx, func(ctx context.Context, st cases.Store) error {
		entries, err := st.Templates().FindEntries(ctx, templateID)
		if err != nil {
			return err
		}

		c, err := cases.NewCase(patientID, templateID, caseType, now, rules.GenericDeadline(caseType, now))
		if err != nil {
			return err
		}
		if err := st.Cases().Save(ctx, c); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := st.Executions().Save(ctx, cases.NewPendingExecution(c.ID, entry.ID, now)); err != nil {
				return err
			}
		}

		days := rules.DaysRemaining(c.GenericDeadline, now)
		if err := st.Alerts().Upsert(ctx, &cases.Alert{
			CaseID:        c.ID,
			DaysRemaining: days,
			Tier:          rules.Classify(days, c.Type),
			UpdatedAt:     now,
		}); err != nil {
			return err
		}

		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("case opened",
		logging.String("case_id", created.ID),
		logging.String("case_type", string(created.Type)),
		logging.Time("generic_deadline", created.GenericDeadline))
	return created, nil
}

// GetCase loads a case with its alert.
func (s *Service) GetCase(ctx context.Context, caseID string) (*cases.Case, *cases.Alert, error) {
	c, err := s.store.Cases().FindByID(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	alert, err := s.store.Alerts().FindByCaseID(ctx, caseID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, nil, err
	}
	return c, alert, nil
}

// CompleteCase attempts manual completion.  The full checklist is re-read and
// re-evaluated inside the transaction; if any obligatory procedure is unmet
// the rejection carries the complete list, not just the first item.
func (s *Service) CompleteCase(ctx context.Context, caseID string) (*cases.Case, error) {
	now := s.nowFn().UTC()

	var completed *cases.Case
	err := s.store.WithinTx(ctx, func(ctx context.Context, st cases.Store) error {
		c, err := st.Cases().FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		if c.IsTerminal() {
			return errors.IllegalTransition("cannot complete a case in status " + string(c.Status))
		}

		entries, err := st.Templates().FindEntries(ctx, c.TemplateID)
		if err != nil {
			return err
		}
		execs, err := st.Executions().FindByCaseID(ctx, caseID)
		if err != nil {
			return err
		}

		result := rules.EvaluateChecklist(entries, execs)
		if !result.Satisfied {
			return errors.ChecklistIncomplete(result.Unmet)
		}
		if err := c.Complete(now); err != nil {
			return err
		}
		if err := st.Cases().Save(ctx, c); err != nil {
			return err
		}
		completed = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("case completed", logging.String("case_id", caseID))
	return completed, nil
}

// CancelCase cancels a case with a mandatory justification.
func (s *Service) CancelCase(ctx context.Context, caseID, justification string) (*cases.Case, error) {
	now := s.nowFn().UTC()

	var cancelled *cases.Case
	err := s.store.WithinTx(ctx, func(ctx context.Context, st cases.Store) error {
		c, err := st.Cases().FindByID(ctx, caseID)
		if err != nil {
			return err
		}
		if err := c.Cancel(justification, now); err != nil {
			return err
		}
		if err := st.Cases().Save(ctx, c); err != nil {
			return err
		}
		cancelled = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("case cancelled",
		logging.String("case_id", caseID),
		logging.String("justification", justification))
	return cancelled, nil
}

// AcknowledgeAlert marks the case's current alert as seen.  A later tier
// escalation clears the acknowledgment again during recomputation.
func (s *Service) AcknowledgeAlert(ctx context.Context, caseID string) error {
	now := s.nowFn().UTC()
	return s.store.WithinTx(ctx, func(ctx context.Context, st cases.Store) error {
		a, err := st.Alerts().FindByCaseID(ctx, caseID)
		if err != nil {
			return err
		}
		a.Acknowledged = true
		a.UpdatedAt = now
		return st.Alerts().Upsert(ctx, a)
	})
}

func (s *Service) publishAlert(ctx context.Context, c *cases.Case, a *cases.Alert) {
	if s.publisher == nil || a == nil {
		return
	}
	if err := s.publisher.PublishAlertChanged(ctx, c, a); err != nil {
		s.log.Warn("alert publish failed",
			logging.String("case_id", c.ID),
			logging.Err(err))
	}
}
