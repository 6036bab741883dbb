package handlers

import (
	"net/http"

	appcompliance "github.com/medregula/casetrack/internal/application/compliance"
)

// AdminHandler serves operational endpoints not meant for clinic clients.
type AdminHandler struct {
	service *appcompliance.Service
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(service *appcompliance.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

// SweepResponse reports the outcome of one sweep run.
type SweepResponse struct {
	Expired int `json:"expired"`
}

// TriggerSweep runs the expiry sweep on demand, ahead of the worker's
// schedule.  Safe to call repeatedly.
func (h *AdminHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.service.SweepExpired(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Expired: expired})
}
