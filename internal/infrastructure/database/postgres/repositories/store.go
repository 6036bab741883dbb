package repositories

import (
	"context"
	"database/sql"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/internal/infrastructure/database/postgres"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/pkg/errors"
)

// sqlStore bundles the repositories over one connection, or over one
// transaction inside WithinTx.
type sqlStore struct {
	base baseRepo
}

// NewStore constructs the PostgreSQL-backed cases.Store.
func NewStore(conn *postgres.Connection, log logging.Logger) cases.Store {
	return &sqlStore{base: baseRepo{conn: conn, log: log.Named("store")}}
}

func (s *sqlStore) Cases() cases.CaseRepository           { return &caseRepo{baseRepo: s.base} }
func (s *sqlStore) Executions() cases.ExecutionRepository { return &executionRepo{baseRepo: s.base} }
func (s *sqlStore) Templates() cases.TemplateRepository   { return &templateRepo{baseRepo: s.base} }
func (s *sqlStore) Alerts() cases.AlertRepository         { return &alertRepo{baseRepo: s.base} }

// WithinTx runs fn against a transactional view of the store.  The
// transaction commits when fn returns nil and rolls back otherwise, so the
// engine's recompute sequence is all-or-nothing.
func (s *sqlStore) WithinTx(ctx context.Context, fn func(ctx context.Context, st cases.Store) error) error {
	if s.base.tx != nil {
		// Already inside a transaction; nested calls join it.
		return fn(ctx, s)
	}

	tx, err := s.base.conn.DB().BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}

	txStore := &sqlStore{base: baseRepo{conn: s.base.conn, tx: tx, log: s.base.log}}
	if err := fn(ctx, txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.base.log.Error("transaction rollback failed", logging.Err(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}
