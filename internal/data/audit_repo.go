package data

import (
	"context"

	"odbcbridge/internal/core"

	"github.com/jmoiron/sqlx"
)

type AuditRepo struct {
	db *sqlx.DB
}

func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(ctx context.Context, l *core.AuditLog) error {
	res, err := r.db.NamedExecContext(ctx, `INSERT INTO audit_logs
		(invocation_id, timestamp, command, driver, target, duration_ms, status, error_message, row_count)
		VALUES (:invocation_id, :timestamp, :command, :driver, :target, :duration_ms, :status, :error_message, :row_count)`, l)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.ID = id
	return nil
}
