package cases

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the state of one sub-procedure execution.
type ExecutionStatus string

const (
	ExecPending        ExecutionStatus = "PENDING"
	ExecScheduled      ExecutionStatus = "SCHEDULED"
	ExecDone           ExecutionStatus = "DONE"
	ExecAwaitingResult ExecutionStatus = "AWAITING_RESULT"
	ExecCancelled      ExecutionStatus = "CANCELLED"
	ExecWaived         ExecutionStatus = "WAIVED"
)

// ValidExecutionStatus reports whether s is a known status value.  Used at
// the interfaces boundary before a status string reaches the engine.
func ValidExecutionStatus(s ExecutionStatus) bool {
	switch s {
	case ExecPending, ExecScheduled, ExecDone, ExecAwaitingResult, ExecCancelled, ExecWaived:
		return true
	}
	return false
}

// Execution records performing (or scheduling, waiving) one checklist entry
// for one case.  One row exists per (case, entry) pair, created PENDING when
// the case is opened, and never deleted except via case cascade.
type Execution struct {
	ID      string          `json:"id"`
	CaseID  string          `json:"case_id"`
	EntryID string          `json:"entry_id"`
	Status  ExecutionStatus `json:"status"`

	// ExecutionDate is the date the procedure was actually performed; it is
	// the anchor for the competency window, not a bookkeeping timestamp.
	ExecutionDate *time.Time `json:"execution_date,omitempty"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`

	// Specimen dates are meaningful only for anatomic-pathology procedures.
	CollectedAt  *time.Time `json:"collected_at,omitempty"`
	ResultAt     *time.Time `json:"result_at,omitempty"`
	Result       string     `json:"result,omitempty"`
	UnitID       string     `json:"unit_id,omitempty"`
	ClinicianID  string     `json:"clinician_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewPendingExecution creates the initial PENDING row for a checklist entry.
func NewPendingExecution(caseID, entryID string, now time.Time) *Execution {
	return &Execution{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		EntryID:   entryID,
		Status:    ExecPending,
		UpdatedAt: now,
	}
}

// IsDone reports whether the execution is performed with a known date, which
// is what anchors it inside the competency window.
func (e *Execution) IsDone() bool {
	return e.Status == ExecDone && e.ExecutionDate != nil
}
