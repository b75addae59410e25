package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
)

// MySQLRequestRepository implements request persistence for MySQL.
type MySQLRequestRepository struct {
	db *sql.DB
}

// NewMySQLRequestRepository creates a new MySQL request repository.
func NewMySQLRequestRepository(db *sql.DB) *MySQLRequestRepository {
	return &MySQLRequestRepository{db: db}
}

// Create inserts a new request.
func (r *MySQLRequestRepository) Create(
	ctx context.Context,
	request *requestsDomain.PermissionsRequest,
) error {
	querier := database.GetTx(ctx, r.db)

	permsData, err := marshalRequestPermissions(request.Permissions)
	if err != nil {
		return err
	}

	query := `INSERT INTO permission_requests (` + requestColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var resolvedBy any
	if request.ResolvedBy != nil {
		resolvedBy = request.ResolvedBy.String()
	}

	_, err = querier.ExecContext(ctx, query,
		request.ID.String(),
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
func (r *MySQLRequestRepository) Update(
	ctx context.Context,
	request *requestsDomain.PermissionsRequest,
) error {
	querier := database.GetTx(ctx, r.db)

	permsData, err := marshalRequestPermissions(request.Permissions)
	if err != nil {
		return err
	}

	query := `UPDATE permission_requests
			  SET permissions = ?, reason = ?, status = ?, resolved_by = ?, updated_at = ?, resolved_at = ?
			  WHERE id = ?`

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
		request.ID.String(),
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
func (r *MySQLRequestRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests WHERE id = ?`

	request, err := scanRequest(querier.QueryRowContext(ctx, query, id.String()).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "permission request not found")
		}
		return nil, apperrors.Wrap(err, "failed to get permission request")
	}
	return request, nil
}

// GetOpen returns the open request for (aclKey, principal), if any.
func (r *MySQLRequestRepository) GetOpen(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) (*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests
			  WHERE acl_key = ? AND principal_kind = ? AND principal_id = ? AND status = ?`

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
func (r *MySQLRequestRepository) ListByPrincipal(
	ctx context.Context,
	principal authzDomain.Principal,
	status *requestsDomain.Status,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests
			  WHERE principal_kind = ? AND principal_id = ?
			    AND (? IS NULL OR status = ?)
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	var statusArg any
	if status != nil {
		statusArg = string(*status)
	}

	rows, err := querier.QueryContext(ctx, query,
		string(principal.Kind), principal.ID, statusArg, statusArg, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list permission requests")
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListByStatus pages through requests in the given status, oldest first. A
// non-nil root narrows the page to requests on that key and everything
// nested under it.
func (r *MySQLRequestRepository) ListByStatus(
	ctx context.Context,
	status requestsDomain.Status,
	root authzDomain.AclKey,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + requestColumns + ` FROM permission_requests
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ? OFFSET ?`
	args := []any{string(status), limit, offset}

	if len(root) > 0 {
		query = `SELECT ` + requestColumns + ` FROM permission_requests
				 WHERE status = ? AND (acl_key = ? OR acl_key LIKE ?)
				 ORDER BY created_at ASC
				 LIMIT ? OFFSET ?`
		args = []any{
			string(status),
			root.Index(),
			root.Index() + authzDomain.AclKeySeparator + "%",
			limit,
			offset,
		}
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list permission requests")
	}
	defer rows.Close()

	return collectRequests(rows)
}
