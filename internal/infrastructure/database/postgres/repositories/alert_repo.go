package repositories

import (
	"context"
	"database/sql"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

type alertRepo struct {
	baseRepo
}

func (r *alertRepo) Upsert(ctx context.Context, a *cases.Alert) error {
	query := `
		INSERT INTO alerts (case_id, days_remaining, tier, acknowledged, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id) DO UPDATE SET
			days_remaining = EXCLUDED.days_remaining,
			tier = EXCLUDED.tier,
			acknowledged = EXCLUDED.acknowledged,
			updated_at = EXCLUDED.updated_at`

	_, err := r.executor().ExecContext(ctx, query,
		a.CaseID, a.DaysRemaining, a.Tier, a.Acknowledged, a.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert alert")
	}
	return nil
}

func (r *alertRepo) FindByCaseID(ctx context.Context, caseID string) (*cases.Alert, error) {
	query := `
		SELECT case_id, days_remaining, tier, acknowledged, updated_at
		FROM alerts WHERE case_id = $1`

	var a cases.Alert
	err := r.executor().QueryRowContext(ctx, query, caseID).Scan(
		&a.CaseID, &a.DaysRemaining, &a.Tier, &a.Acknowledged, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("no alert for case " + caseID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load alert")
	}
	return &a, nil
}
