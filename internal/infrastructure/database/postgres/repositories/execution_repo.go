package repositories

import (
	"context"
	"database/sql"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

type executionRepo struct {
	baseRepo
}

const executionColumns = `
	id, case_id, entry_id, status, execution_date, scheduled_for,
	collected_at, result_at, result, unit_id, clinician_id, updated_at`

func scanExecution(s scanner) (*cases.Execution, error) {
	var (
		e         cases.Execution
		execDate  sql.NullTime
		scheduled sql.NullTime
		collected sql.NullTime
		resultAt  sql.NullTime
		result    sql.NullString
		unit      sql.NullString
		clinician sql.NullString
	)
	err := s.Scan(
		&e.ID, &e.CaseID, &e.EntryID, &e.Status, &execDate, &scheduled,
		&collected, &resultAt, &result, &unit, &clinician, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeExecutionNotFound, "execution not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan execution")
	}
	if execDate.Valid {
		t := execDate.Time.UTC()
		e.ExecutionDate = &t
	}
	if scheduled.Valid {
		t := scheduled.Time.UTC()
		e.ScheduledFor = &t
	}
	if collected.Valid {
		t := collected.Time.UTC()
		e.CollectedAt = &t
	}
	if resultAt.Valid {
		t := resultAt.Time.UTC()
		e.ResultAt = &t
	}
	if result.Valid {
		e.Result = result.String
	}
	if unit.Valid {
		e.UnitID = unit.String
	}
	if clinician.Valid {
		e.ClinicianID = clinician.String
	}
	return &e, nil
}

func (r *executionRepo) FindByID(ctx context.Context, id string) (*cases.Execution, error) {
	query := `SELECT` + executionColumns + ` FROM executions WHERE id = $1`
	return scanExecution(r.executor().QueryRowContext(ctx, query, id))
}

func (r *executionRepo) FindByCaseID(ctx context.Context, caseID string) ([]*cases.Execution, error) {
	query := `SELECT` + executionColumns + ` FROM executions WHERE case_id = $1 ORDER BY id ASC`
	rows, err := r.executor().QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query executions")
	}
	defer rows.Close()

	var out []*cases.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate executions")
	}
	return out, nil
}

func (r *executionRepo) Save(ctx context.Context, e *cases.Execution) error {
	query := `
		INSERT INTO executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			execution_date = EXCLUDED.execution_date,
			scheduled_for = EXCLUDED.scheduled_for,
			collected_at = EXCLUDED.collected_at,
			result_at = EXCLUDED.result_at,
			result = EXCLUDED.result,
			unit_id = EXCLUDED.unit_id,
			clinician_id = EXCLUDED.clinician_id,
			updated_at = EXCLUDED.updated_at`

	_, err := r.executor().ExecContext(ctx, query,
		e.ID, e.CaseID, e.EntryID, e.Status, e.ExecutionDate, e.ScheduledFor,
		e.CollectedAt, e.ResultAt, nullIfEmpty(e.Result), nullIfEmpty(e.UnitID),
		nullIfEmpty(e.ClinicianID), e.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save execution")
	}
	return nil
}
