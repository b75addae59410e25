// Package repository implements persistence for permission requests, for both
// PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
)

// PostgreSQLRequestRepository implements request persistence for PostgreSQL.
type PostgreSQLRequestRepository struct {
	db *sql.DB
}

// NewPostgreSQLRequestRepository creates a new PostgreSQL request repository.
func NewPostgreSQLRequestRepository(db *sql.DB) *PostgreSQLRequestRepository {
	return &PostgreSQLRequestRepository{db: db}
}

func marshalRequestPermissions(perms authzDomain.PermissionSet) ([]byte, error) {
	data, err := json.Marshal(perms)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal permission set")
	}
	return data, nil
}

// requestRow scans one permission_requests row into a domain request.
func scanRequest(scan func(dest ...any) error) (*requestsDomain.PermissionsRequest, error) {
	var request requestsDomain.PermissionsRequest
	var index, principalKind string
	var permsData []byte
	var resolvedBy sql.NullString

	err := scan(
		&request.ID,
		&index,
		&principalKind,
		&request.Principal.ID,
		&permsData,
		&request.Reason,
		&request.Status,
		&resolvedBy,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	aclKey, err := authzDomain.ParseAclKey(index)
	if err != nil {
		return nil, err
	}
	request.AclKey = aclKey
	request.Principal.Kind = authzDomain.PrincipalKind(principalKind)

	if err := json.Unmarshal(permsData, &request.Permissions); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal permission set")
	}

	if resolvedBy.Valid {
		resolver, err := parsePrincipalRef(resolvedBy.String)
		if err != nil {
			return nil, err
		}
		request.ResolvedBy = &resolver
	}

	return &request, nil
}

// parsePrincipalRef parses the "KIND|id" form used in the resolved_by column.
func parsePrincipalRef(value string) (authzDomain.Principal, error) {
	for i := 0; i < len(value); i++ {
		if value[i] == '|' {
			return authzDomain.NewPrincipal(authzDomain.PrincipalKind(value[:i]), value[i+1:])
		}
	}
	return authzDomain.Principal{}, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed principal reference")
}

const requestColumns = `id, acl_key, principal_kind, principal_id, permissions, reason, status, resolved_by, created_at, updated_at, resolved_at`

// Create inserts a new request.
func (r *PostgreSQLRequestRepository) Create(
	ctx context.Context,
	request *requestsDomain.PermissionsRequest,
) error {
	querier := database.GetTx(ctx, r.db)

	permsData, err := marshalRequestPermissions(request.Permissions)
	if err != nil {
		return err
	}

	query := `INSERT INTO permission_requests (` + requestColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var resolvedBy any
	if request.ResolvedBy != nil {
		resolvedBy = request.ResolvedBy.String()
	}

	_, err = querier.ExecContext(ctx, query,
		request.ID,
		request.AclKey.Index(),
		string(request.Principal.Kind),
		request.Principal.ID,
		permsData,
		request.Reason,
		string(request.Status),
		resolvedBy,
		request.CreatedAt,
		request.UpdatedAt,
		request.ResolvedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create permission request")
	}
	return nil
}

// Update rewrites the mutable fields of an existing request.
func (r *PostgreSQLRequestRepository) Update(
	ctx context.Context,
	request *requestsDomain.PermissionsRequest,
) error {
	querier := database.GetTx(ctx, r.db)

	permsData, err := marshalRequestPermissions(request.Permissions)
	if err != nil {
		return err
	}

	query := `UPDATE permission_requests
			  SET permissions = $1, reason = $2, status = $3, resolved_by = $4, updated_at = $5, resolved_at = $6
			  WHERE id = $7`

	var resolvedBy any
	if request.ResolvedBy != nil {
		resolvedBy = request.ResolvedBy.String()
	}

	result, err := querier.ExecContext(ctx, query,
		permsData,
		request.Reason,
		string(request.Status),
		resolvedBy,
		request.UpdatedAt,
		request.ResolvedAt,
		request.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update permission request")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check updated rows")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrNotFound, "permission request not found")
	}
	return nil
}

// GetByID returns a request by id.
func (r *PostgreSQLRequestRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests WHERE id = $1`

	request, err := scanRequest(querier.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "permission request not found")
		}
		return nil, apperrors.Wrap(err, "failed to get permission request")
	}
	return request, nil
}

// GetOpen returns the open request for (aclKey, principal), if any.
func (r *PostgreSQLRequestRepository) GetOpen(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) (*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests
			  WHERE acl_key = $1 AND principal_kind = $2 AND principal_id = $3 AND status = $4`

	request, err := scanRequest(querier.QueryRowContext(ctx, query,
		aclKey.Index(),
		string(principal.Kind),
		principal.ID,
		string(requestsDomain.StatusSubmitted),
	).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "permission request not found")
		}
		return nil, apperrors.Wrap(err, "failed to get open permission request")
	}
	return request, nil
}

// ListByPrincipal pages through a principal's requests, newest first,
// optionally filtered by status.
func (r *PostgreSQLRequestRepository) ListByPrincipal(
	ctx context.Context,
	principal authzDomain.Principal,
	status *requestsDomain.Status,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests
			  WHERE principal_kind = $1 AND principal_id = $2
			    AND ($3::text IS NULL OR status = $3)
			  ORDER BY created_at DESC
			  OFFSET $4 LIMIT $5`

	var statusArg any
	if status != nil {
		statusArg = string(*status)
	}

	rows, err := querier.QueryContext(ctx, query,
		string(principal.Kind), principal.ID, statusArg, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list permission requests")
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListByStatus pages through requests in the given status, oldest first so
// reviewers see the longest waiting asks first. A non-nil root narrows the
// page to requests on that key and everything nested under it.
func (r *PostgreSQLRequestRepository) ListByStatus(
	ctx context.Context,
	status requestsDomain.Status,
	root authzDomain.AclKey,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests
			  WHERE status = $1
			  ORDER BY created_at ASC
			  OFFSET $2 LIMIT $3`
	args := []any{string(status), offset, limit}

	if len(root) > 0 {
		query = `SELECT ` + requestColumns + ` FROM permission_requests
				 WHERE status = $1 AND (acl_key = $2 OR acl_key LIKE $3)
				 ORDER BY created_at ASC
				 OFFSET $4 LIMIT $5`
		args = []any{
			string(status),
			root.Index(),
			root.Index() + authzDomain.AclKeySeparator + "%",
			offset,
			limit,
		}
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list permission requests")
	}
	defer rows.Close()

	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]*requestsDomain.PermissionsRequest, error) {
	var requests []*requestsDomain.PermissionsRequest
	for rows.Next() {
		request, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan permission request")
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate permission requests")
	}
	return requests, nil
}
