package repository

import (
	"context"
	"database/sql"
	"time"

	auditDomain "github.com/gridworks/datahub/internal/audit/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// MySQLAuditLogRepository implements audit log persistence for MySQL.
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create inserts an audit log. Nil metadata is stored as NULL.
func (r *MySQLAuditLogRepository) Create(ctx context.Context, log *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, r.db)

	metadataJSON, err := marshalMetadata(log.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (id, request_id, actor_kind, actor_id, event_type, acl_key, metadata, signature, is_signed, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		log.ID.String(),
		log.RequestID.String(),
		string(log.Actor.Kind),
		log.Actor.ID,
		log.EventType,
		log.AclKey,
		metadataJSON,
		log.Signature,
		log.IsSigned,
		log.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// List returns audit logs newest first with pagination and optional inclusive
// time bounds.
func (r *MySQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, request_id, actor_kind, actor_id, event_type, acl_key, metadata, signature, is_signed, created_at
			  FROM audit_logs
			  WHERE (? IS NULL OR created_at >= ?)
			    AND (? IS NULL OR created_at <= ?)
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query,
		createdAtFrom, createdAtFrom,
		createdAtTo, createdAtTo,
		limit, offset,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer rows.Close()

	return collectAuditLogs(rows)
}
