package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/medregula/casetrack/pkg/types/common"
)

// HealthChecker is implemented by infrastructure clients that can probe
// their backing service.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// probeTimeout bounds each dependency probe during readiness checks.
const probeTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	components map[string]HealthChecker
}

// NewHealthHandler constructs a HealthHandler over the named dependencies.
// A nil checker is skipped, which lets optional components (cache, broker)
// be wired conditionally.
func NewHealthHandler(components map[string]HealthChecker) *HealthHandler {
	filtered := make(map[string]HealthChecker, len(components))
	for name, c := range components {
		if c != nil {
			filtered[name] = c
		}
	}
	return &HealthHandler{components: filtered}
}

// HealthResponse is the readiness probe body.
type HealthResponse struct {
	Status     common.HealthStatus      `json:"status"`
	Components []common.ComponentHealth `json:"components,omitempty"`
	Timestamp  time.Time                `json:"timestamp"`
}

// Liveness answers as long as the process is serving requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    common.HealthUp,
		Timestamp: time.Now().UTC(),
	})
}

// Readiness probes every registered dependency.  Any failed probe degrades
// the overall status and answers 503 so the load balancer drains traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	overall := common.HealthUp
	components := make([]common.ComponentHealth, 0, len(h.components))

	for name, checker := range h.components {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		start := time.Now()
		err := checker.HealthCheck(ctx)
		cancel()

		ch := common.ComponentHealth{
			Name:    name,
			Status:  common.HealthUp,
			Latency: time.Since(start),
		}
		if err != nil {
			ch.Status = common.HealthDown
			ch.Message = err.Error()
			overall = common.HealthDown
		}
		components = append(components, ch)
	}

	status := http.StatusOK
	if overall != common.HealthUp {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{
		Status:     overall,
		Components: components,
		Timestamp:  time.Now().UTC(),
	})
}
