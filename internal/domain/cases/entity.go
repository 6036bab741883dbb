// Package cases defines the authorization-case aggregate and its sub-entities:
// checklist template entries, sub-procedure executions, and the per-case
// deadline alert.  The package holds entity state and the status machine only;
// deadline arithmetic and checklist evaluation live in domain/compliance.
package cases

import (
	"time"

	"github.com/google/uuid"

	"github.com/medregula/casetrack/pkg/errors"
)

// CaseType selects the regulatory regime that governs a case's deadlines.
type CaseType string

const (
	CaseTypeGeneral     CaseType = "GENERAL"
	CaseTypeOncological CaseType = "ONCOLOGICAL"
)

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	StatusOpen       CaseStatus = "OPEN"
	StatusInProgress CaseStatus = "IN_PROGRESS"
	StatusCompleted  CaseStatus = "COMPLETED"
	StatusExpired    CaseStatus = "EXPIRED"
	StatusCancelled  CaseStatus = "CANCELLED"
)

// Case is the aggregate root for one medical-procedure authorization request.
//
// The competency-window fields (WindowStart, WindowEnd, StartCompetency,
// EndCompetency) are nil until the first DONE execution is recorded; they are
// owned exclusively by the compliance controller, as are CompletedAt, Status
// transitions driven by recomputation, and the alert record.
type Case struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patient_id"`
	TemplateID string     `json:"template_id"`
	Type       CaseType   `json:"type"`
	Status     CaseStatus `json:"status"`

	// CreatedAt anchors the generic deadline (creation + 60d GENERAL,
	// + 30d ONCOLOGICAL).
	CreatedAt       time.Time `json:"created_at"`
	GenericDeadline time.Time `json:"generic_deadline"`

	// BillingAuthorization is nil until the downstream billing process
	// issues a number.
	BillingAuthorization *string `json:"billing_authorization,omitempty"`

	// Competency window.  EndCompetency is always equal to StartCompetency
	// or its immediate successor: the window spans at most two monthly
	// competencies.
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	StartCompetency *string    `json:"start_competency,omitempty"`
	EndCompetency   *string    `json:"end_competency,omitempty"`

	// CompletedAt is set exactly once, at first checklist satisfaction.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CancelReason is the mandatory justification recorded on cancellation.
	CancelReason string `json:"cancel_reason,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// NewCase creates an open case.  The generic deadline is computed by the
// compliance calculator and passed in so this package stays free of calendar
// logic.
func NewCase(patientID, templateID string, caseType CaseType, now, genericDeadline time.Time) (*Case, error) {
	if patientID == "" {
		return nil, errors.InvalidParam("patient id must not be empty")
	}
	if templateID == "" {
		return nil, errors.InvalidParam("template id must not be empty")
	}
	if caseType != CaseTypeGeneral && caseType != CaseTypeOncological {
		return nil, errors.InvalidParam("unknown case type: " + string(caseType))
	}

	return &Case{
		ID:              uuid.New().String(),
		PatientID:       patientID,
		TemplateID:      templateID,
		Type:            caseType,
		Status:          StatusOpen,
		CreatedAt:       now,
		GenericDeadline: genericDeadline,
		UpdatedAt:       now,
	}, nil
}

// IsActive reports whether the case can still receive execution updates.
func (c *Case) IsActive() bool {
	return c.Status == StatusOpen || c.Status == StatusInProgress
}

// IsTerminal reports whether the case reached a non-re-enterable state.
func (c *Case) IsTerminal() bool {
	switch c.Status {
	case StatusCompleted, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// HasWindow reports whether a competency window has been established.
func (c *Case) HasWindow() bool {
	return c.WindowStart != nil && c.WindowEnd != nil &&
		c.StartCompetency != nil && c.EndCompetency != nil
}

var validTransitions = map[CaseStatus][]CaseStatus{
	StatusOpen:       {StatusInProgress, StatusCompleted, StatusExpired, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusExpired, StatusCancelled},
	// Terminal states have no transitions.
}

func canTransition(from, to CaseStatus) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// MarkInProgress moves an open case to IN_PROGRESS.  No-op if already there.
func (c *Case) MarkInProgress(now time.Time) {
	if c.Status == StatusOpen {
		c.Status = StatusInProgress
		c.UpdatedAt = now
	}
}

// Complete transitions the case to COMPLETED and stamps the completion date.
// Completion happens at most once; a second call is rejected.
func (c *Case) Complete(now time.Time) error {
	if c.Status == StatusCompleted {
		return errors.IllegalTransition("case is already completed")
	}
	if !canTransition(c.Status, StatusCompleted) {
		return errors.IllegalTransition("cannot complete a case in status " + string(c.Status))
	}
	c.Status = StatusCompleted
	c.CompletedAt = &now
	c.UpdatedAt = now
	return nil
}

// Cancel transitions the case to CANCELLED.  A non-empty justification is
// mandatory.
func (c *Case) Cancel(justification string, now time.Time) error {
	if justification == "" {
		return errors.IllegalTransition("cancellation requires a justification")
	}
	if !canTransition(c.Status, StatusCancelled) {
		return errors.IllegalTransition("cannot cancel a case in status " + string(c.Status))
	}
	c.Status = StatusCancelled
	c.CancelReason = justification
	c.UpdatedAt = now
	return nil
}

// Expire transitions an active case to EXPIRED.
func (c *Case) Expire(now time.Time) error {
	if !canTransition(c.Status, StatusExpired) {
		return errors.IllegalTransition("cannot expire a case in status " + string(c.Status))
	}
	c.Status = StatusExpired
	c.UpdatedAt = now
	return nil
}

// SetWindow records the competency window derived from DONE executions.
func (c *Case) SetWindow(start, end time.Time, startComp, endComp string, now time.Time) {
	c.WindowStart = &start
	c.WindowEnd = &end
	c.StartCompetency = &startComp
	c.EndCompetency = &endComp
	c.UpdatedAt = now
}

// ClearWindow erases the competency window, e.g. after the last DONE
// execution was unmarked.
func (c *Case) ClearWindow(now time.Time) {
	c.WindowStart = nil
	c.WindowEnd = nil
	c.StartCompetency = nil
	c.EndCompetency = nil
	c.UpdatedAt = now
}
