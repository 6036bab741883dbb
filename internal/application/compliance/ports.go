package compliance

import (
	"context"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
)

// AlertPublisher emits alert-change events to interested downstream systems
// (notification fan-out, audit trail).  Publishing is best-effort: a failed
// publish is logged and never fails the originating operation.
type AlertPublisher interface {
	PublishAlertChanged(ctx context.Context, c *cases.Case, a *cases.Alert) error
}

// EngineMetrics receives operational measurements from the engine.  The
// prometheus implementation lives in infrastructure/monitoring; tests and
// slim deployments use the nop default.
type EngineMetrics interface {
	ObserveRecompute(d time.Duration, outcome string)
	IncDeadlineViolation(caseType cases.CaseType)
	ObserveSweep(scanned, expired int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRecompute(time.Duration, string) {}
func (nopMetrics) IncDeadlineViolation(cases.CaseType)    {}
func (nopMetrics) ObserveSweep(int, int)                  {}
