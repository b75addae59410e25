// Package repository implements audit log persistence for both PostgreSQL
// and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	auditDomain "github.com/gridworks/datahub/internal/audit/domain"
	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// PostgreSQLAuditLogRepository implements audit log persistence for PostgreSQL.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create inserts an audit log. Nil metadata is stored as NULL.
func (r *PostgreSQLAuditLogRepository) Create(ctx context.Context, log *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, r.db)

	metadataJSON, err := marshalMetadata(log.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (id, request_id, actor_kind, actor_id, event_type, acl_key, metadata, signature, is_signed, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = querier.ExecContext(ctx, query,
		log.ID,
		log.RequestID,
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
func (r *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, request_id, actor_kind, actor_id, event_type, acl_key, metadata, signature, is_signed, created_at
			  FROM audit_logs
			  WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			    AND ($2::timestamptz IS NULL OR created_at <= $2)
			  ORDER BY id DESC
			  LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, createdAtFrom, createdAtTo, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer rows.Close()

	return collectAuditLogs(rows)
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit log metadata")
	}
	return data, nil
}

// scanAuditLog maps a single row onto a domain entry, shared by both drivers.
func scanAuditLog(scan func(dest ...any) error) (*auditDomain.AuditLog, error) {
	var log auditDomain.AuditLog
	var actorKind string
	var metadataJSON []byte
	err := scan(
		&log.ID,
		&log.RequestID,
		&actorKind,
		&log.Actor.ID,
		&log.EventType,
		&log.AclKey,
		&metadataJSON,
		&log.Signature,
		&log.IsSigned,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit log")
	}
	log.Actor.Kind = authzDomain.PrincipalKind(actorKind)

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &log.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
		}
	}

	return &log, nil
}

func collectAuditLogs(rows *sql.Rows) ([]*auditDomain.AuditLog, error) {
	logs := make([]*auditDomain.AuditLog, 0)
	for rows.Next() {
		log, err := scanAuditLog(rows.Scan)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}
	return logs, nil
}
