package compliance

import (
	"context"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
	rules "github.com/medregula/casetrack/internal/domain/compliance"
)

// DeadlineView is the live deadline picture of one case.  It is computed on
// read and never stored: days remaining and tier decay with the calendar even
// when nothing about the case changes.
type DeadlineView struct {
	CaseID   string           `json:"case_id"`
	Status   cases.CaseStatus `json:"status"`
	CaseType cases.CaseType   `json:"case_type"`

	// EffectiveDeadline is the registration deadline once a window exists,
	// the generic deadline before that.
	EffectiveDeadline time.Time       `json:"effective_deadline"`
	GenericDeadline   time.Time       `json:"generic_deadline"`
	DaysRemaining     int             `json:"days_remaining"`
	Tier              cases.AlertTier `json:"tier"`

	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	StartCompetency *string    `json:"start_competency,omitempty"`
	EndCompetency   *string    `json:"end_competency,omitempty"`

	// SubmissionDeadline is the informational billing cutoff: the fifth
	// business day of the month after the end competency.  It never blocks
	// writes.
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty"`
}

// BuildDeadlineView computes the live view from an already-loaded case.
func BuildDeadlineView(c *cases.Case, now time.Time) *DeadlineView {
	v := &DeadlineView{
		CaseID:            c.ID,
		Status:            c.Status,
		CaseType:          c.Type,
		EffectiveDeadline: c.GenericDeadline,
		GenericDeadline:   c.GenericDeadline,
		WindowStart:       c.WindowStart,
		WindowEnd:         c.WindowEnd,
		StartCompetency:   c.StartCompetency,
		EndCompetency:     c.EndCompetency,
	}
	if c.HasWindow() {
		v.EffectiveDeadline = rules.RegistrationDeadline(c.Type, *c.WindowStart, *c.EndCompetency)
		submission := rules.NthBusinessDayOfFollowingMonth(*c.EndCompetency, 5)
		v.SubmissionDeadline = &submission
	}
	v.DaysRemaining = rules.DaysRemaining(v.EffectiveDeadline, now)
	v.Tier = rules.Classify(v.DaysRemaining, c.Type)
	return v
}

// DeadlineViewByID loads the case and computes its live deadline view.
func (s *Service) DeadlineViewByID(ctx context.Context, caseID string) (*DeadlineView, error) {
	c, err := s.store.Cases().FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return BuildDeadlineView(c, s.nowFn().UTC()), nil
}
