package compliance

import (
	"context"

	"github.com/medregula/casetrack/internal/domain/cases"
	rules "github.com/medregula/casetrack/internal/domain/compliance"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
)

// SweepExpired expires every active case whose generic deadline has passed.
// Each case is expired with a guarded conditional write, so a sweep racing a
// concurrent completion loses cleanly and moves on.  Failures on one case are
// logged and never abort the rest of the sweep; the sweep is idempotent.
// Returns the number of cases actually expired.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.nowFn().UTC()

	due, err := s.store.Cases().FindActiveDeadlineBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range due {
		ok, err := s.store.Cases().ExpireIfActive(ctx, c.ID, now)
		if err != nil {
			s.log.Error("expiry failed",
				logging.String("case_id", c.ID),
				logging.Err(err))
			continue
		}
		if !ok {
			// Lost the race against a completion or cancellation.
			continue
		}
		expired++

		// The stored alert counts down to the registration deadline whenever
		// a window exists; the generic deadline is only the fallback.
		deadline := c.GenericDeadline
		if c.HasWindow() {
			deadline = rules.RegistrationDeadline(c.Type, *c.WindowStart, *c.EndCompetency)
		}
		days := rules.DaysRemaining(deadline, now)
		alert := &cases.Alert{
			CaseID:        c.ID,
			DaysRemaining: days,
			Tier:          rules.Classify(days, c.Type),
			UpdatedAt:     now,
		}
		if err := s.store.Alerts().Upsert(ctx, alert); err != nil {
			s.log.Error("alert update after expiry failed",
				logging.String("case_id", c.ID),
				logging.Err(err))
			continue
		}
		c.Status = cases.StatusExpired
		s.publishAlert(ctx, c, alert)
	}

	s.metrics.ObserveSweep(len(due), expired)
	s.log.Info("expiry sweep finished",
		logging.Int("scanned", len(due)),
		logging.Int("expired", expired))
	return expired, nil
}
