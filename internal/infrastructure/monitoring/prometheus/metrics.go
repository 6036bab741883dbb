package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medregula/casetrack/internal/domain/cases"
)

// AppMetrics bundles every metric the service emits.  It implements the
// compliance engine's EngineMetrics port and the HTTP middleware's recorder.
type AppMetrics struct {
	collector *Collector

	recomputeTotal     *prometheus.CounterVec
	recomputeDuration  *prometheus.HistogramVec
	deadlineViolations *prometheus.CounterVec
	sweepRuns          *prometheus.CounterVec
	casesExpired       *prometheus.CounterVec
	sweepScanned       *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewAppMetrics registers the application metrics on collector.
func NewAppMetrics(collector *Collector) *AppMetrics {
	return &AppMetrics{
		collector: collector,

		recomputeTotal: collector.RegisterCounter(
			"recompute_total",
			"Number of case recomputations by outcome.",
			"outcome"),
		recomputeDuration: collector.RegisterHistogram(
			"recompute_duration_seconds",
			"Duration of case recomputations.",
			[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			"outcome"),
		deadlineViolations: collector.RegisterCounter(
			"deadline_violations_total",
			"Number of writes rejected for violating the registration deadline.",
			"case_type"),
		sweepRuns: collector.RegisterCounter(
			"sweep_runs_total",
			"Number of expiry sweep executions."),
		casesExpired: collector.RegisterCounter(
			"cases_expired_total",
			"Number of cases expired by the sweep."),
		sweepScanned: collector.RegisterGauge(
			"sweep_scanned_cases",
			"Cases scanned by the most recent expiry sweep."),

		httpRequests: collector.RegisterCounter(
			"http_requests_total",
			"HTTP requests by method, route, and status.",
			"method", "route", "status"),
		httpDuration: collector.RegisterHistogram(
			"http_request_duration_seconds",
			"HTTP request latency by method and route.",
			nil,
			"method", "route"),
	}
}

// ObserveRecompute records one recomputation.
func (m *AppMetrics) ObserveRecompute(d time.Duration, outcome string) {
	m.recomputeTotal.WithLabelValues(outcome).Inc()
	m.recomputeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncDeadlineViolation counts one rejected write.
func (m *AppMetrics) IncDeadlineViolation(caseType cases.CaseType) {
	m.deadlineViolations.WithLabelValues(string(caseType)).Inc()
}

// ObserveSweep records one sweep run.
func (m *AppMetrics) ObserveSweep(scanned, expired int) {
	m.sweepRuns.WithLabelValues().Inc()
	m.casesExpired.WithLabelValues().Add(float64(expired))
	m.sweepScanned.WithLabelValues().Set(float64(scanned))
}

// ObserveHTTP records one served request.
func (m *AppMetrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
