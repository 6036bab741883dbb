package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

type caseRepo struct {
	baseRepo
}

const caseColumns = `
	id, patient_id, template_id, case_type, status, created_at, generic_deadline,
	billing_authorization, window_start, window_end, start_competency, end_competency,
	completed_at, cancel_reason, updated_at, version`

func scanCase(s scanner) (*cases.Case, error) {
	var (
		c       cases.Case
		billing sql.NullString
		wStart  sql.NullTime
		wEnd    sql.NullTime
		sComp   sql.NullString
		eComp   sql.NullString
		done    sql.NullTime
		reason  sql.NullString
	)
	err := s.Scan(
		&c.ID, &c.PatientID, &c.TemplateID, &c.Type, &c.Status, &c.CreatedAt, &c.GenericDeadline,
		&billing, &wStart, &wEnd, &sComp, &eComp,
		&done, &reason, &c.UpdatedAt, &c.Version,
	)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeCaseNotFound, "case not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan case")
	}
	if billing.Valid {
		c.BillingAuthorization = &billing.String
	}
	if wStart.Valid {
		t := wStart.Time.UTC()
		c.WindowStart = &t
	}
	if wEnd.Valid {
		t := wEnd.Time.UTC()
		c.WindowEnd = &t
	}
	if sComp.Valid {
		c.StartCompetency = &sComp.String
	}
	if eComp.Valid {
		c.EndCompetency = &eComp.String
	}
	if done.Valid {
		t := done.Time.UTC()
		c.CompletedAt = &t
	}
	if reason.Valid {
		c.CancelReason = reason.String
	}
	return &c, nil
}

func (r *caseRepo) FindByID(ctx context.Context, id string) (*cases.Case, error) {
	query := `SELECT` + caseColumns + ` FROM cases WHERE id = $1`
	return scanCase(r.executor().QueryRowContext(ctx, query, id))
}

func (r *caseRepo) Save(ctx context.Context, c *cases.Case) error {
	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			generic_deadline = EXCLUDED.generic_deadline,
			billing_authorization = EXCLUDED.billing_authorization,
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			start_competency = EXCLUDED.start_competency,
			end_competency = EXCLUDED.end_competency,
			completed_at = EXCLUDED.completed_at,
			cancel_reason = EXCLUDED.cancel_reason,
			updated_at = EXCLUDED.updated_at,
			version = cases.version + 1
		RETURNING version`

	err := r.executor().QueryRowContext(ctx, query,
		c.ID, c.PatientID, c.TemplateID, c.Type, c.Status, c.CreatedAt, c.GenericDeadline,
		c.BillingAuthorization, c.WindowStart, c.WindowEnd, c.StartCompetency, c.EndCompetency,
		c.CompletedAt, nullIfEmpty(c.CancelReason), c.UpdatedAt,
	).Scan(&c.Version)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save case")
	}
	return nil
}

func (r *caseRepo) FindActive(ctx context.Context) ([]*cases.Case, error) {
	query := `SELECT` + caseColumns + ` FROM cases
		WHERE status IN ('OPEN', 'IN_PROGRESS')
		ORDER BY generic_deadline ASC`
	return r.queryCases(ctx, query)
}

func (r *caseRepo) FindActiveDeadlineBefore(ctx context.Context, cutoff time.Time) ([]*cases.Case, error) {
	query := `SELECT` + caseColumns + ` FROM cases
		WHERE status IN ('OPEN', 'IN_PROGRESS') AND generic_deadline < $1
		ORDER BY generic_deadline ASC`
	return r.queryCases(ctx, query, cutoff)
}

// ExpireIfActive is the sweep's guarded write: the status predicate in the
// UPDATE makes losing a race against a concurrent completion harmless.
func (r *caseRepo) ExpireIfActive(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE cases
		SET status = 'EXPIRED', updated_at = $2, version = version + 1
		WHERE id = $1 AND status IN ('OPEN', 'IN_PROGRESS')`

	res, err := r.executor().ExecContext(ctx, query, id, at)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to expire case")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read expiry result")
	}
	return affected == 1, nil
}

func (r *caseRepo) queryCases(ctx context.Context, query string, args ...interface{}) ([]*cases.Case, error) {
	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query cases")
	}
	defer rows.Close()

	var out []*cases.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate cases")
	}
	return out, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
