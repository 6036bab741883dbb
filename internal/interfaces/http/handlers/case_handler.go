package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appcompliance "github.com/medregula/casetrack/internal/application/compliance"
	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

// CaseHandler serves the case lifecycle endpoints.
type CaseHandler struct {
	service *appcompliance.Service
}

// NewCaseHandler constructs a CaseHandler.
func NewCaseHandler(service *appcompliance.Service) *CaseHandler {
	return &CaseHandler{service: service}
}

// CreateCaseRequest is the body of POST /cases.
type CreateCaseRequest struct {
	PatientID  string `json:"patient_id"`
	TemplateID string `json:"template_id"`
	CaseType   string `json:"case_type"`
}

// CaseResponse is the canonical case representation.
type CaseResponse struct {
	Case  *cases.Case  `json:"case"`
	Alert *cases.Alert `json:"alert,omitempty"`
}

// Create opens a new case.
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	c, err := h.service.OpenCase(r.Context(), req.PatientID, req.TemplateID, cases.CaseType(req.CaseType))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CaseResponse{Case: c})
}

// Get returns a case with its alert.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, alert, err := h.service.GetCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CaseResponse{Case: c, Alert: alert})
}

// RecordExecutionRequest is the body of PUT /cases/executions/{executionID}.
// Dates are ISO 8601.
type RecordExecutionRequest struct {
	Status        string     `json:"status"`
	ExecutionDate *time.Time `json:"execution_date,omitempty"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	CollectedAt   *time.Time `json:"collected_at,omitempty"`
	ResultAt      *time.Time `json:"result_at,omitempty"`
	Result        string     `json:"result,omitempty"`
	UnitID        string     `json:"unit_id,omitempty"`
	ClinicianID   string     `json:"clinician_id,omitempty"`
}

// RecordExecution applies an execution update and returns the recomputed
// case.  A deadline violation answers 422 with the offending dates.
func (h *CaseHandler) RecordExecution(w http.ResponseWriter, r *http.Request) {
	var req RecordExecutionRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	c, alert, err := h.service.RecordExecution(r.Context(), appcompliance.ExecutionUpdate{
		ExecutionID:   chi.URLParam(r, "executionID"),
		Status:        cases.ExecutionStatus(req.Status),
		ExecutionDate: req.ExecutionDate,
		ScheduledFor:  req.ScheduledFor,
		CollectedAt:   req.CollectedAt,
		ResultAt:      req.ResultAt,
		Result:        req.Result,
		UnitID:        req.UnitID,
		ClinicianID:   req.ClinicianID,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CaseResponse{Case: c, Alert: alert})
}

// Complete attempts manual completion.  An unmet checklist answers 422 with
// every missing item.
func (h *CaseHandler) Complete(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.CompleteCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CaseResponse{Case: c})
}

// CancelCaseRequest is the body of POST /cases/{caseID}/cancel.
type CancelCaseRequest struct {
	Justification string `json:"justification"`
}

// Cancel cancels a case with a mandatory justification.
func (h *CaseHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelCaseRequest
	if err := decodeBody(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	if req.Justification == "" {
		writeAppError(w, errors.InvalidParam("justification must not be empty"))
		return
	}

	c, err := h.service.CancelCase(r.Context(), chi.URLParam(r, "caseID"), req.Justification)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CaseResponse{Case: c})
}

// Deadline returns the live deadline view.
func (h *CaseHandler) Deadline(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.DeadlineViewByID(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Recompute forces an idempotent recomputation, used after out-of-band data
// fixes.
func (h *CaseHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	c, alert, err := h.service.Recompute(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CaseResponse{Case: c, Alert: alert})
}

// AcknowledgeAlert marks the case's alert as seen.
func (h *CaseHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.service.AcknowledgeAlert(r.Context(), chi.URLParam(r, "caseID")); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
