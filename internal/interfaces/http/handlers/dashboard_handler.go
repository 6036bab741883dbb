package handlers

import (
	"net/http"
	"strconv"

	"github.com/medregula/casetrack/internal/application/dashboard"
	"github.com/medregula/casetrack/pkg/errors"
)

// DashboardHandler serves the monitoring read side.
type DashboardHandler struct {
	service *dashboard.Service
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Overview returns tier counts over the active caseload.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Overview(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Approaching lists active cases close to their deadline.  The window
// defaults to 10 days and is overridden with ?within_days=N.
func (h *DashboardHandler) Approaching(w http.ResponseWriter, r *http.Request) {
	withinDays := 10
	if v := r.URL.Query().Get("within_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeAppError(w, errors.InvalidParam("within_days must be a non-negative integer"))
			return
		}
		withinDays = n
	}

	views, err := h.service.ApproachingDeadlines(r.Context(), withinDays)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
