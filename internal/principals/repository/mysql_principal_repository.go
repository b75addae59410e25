package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	principalsDomain "github.com/gridworks/datahub/internal/principals/domain"
)

// MySQLPrincipalRepository implements principal directory persistence for MySQL.
type MySQLPrincipalRepository struct {
	db *sql.DB
}

// NewMySQLPrincipalRepository creates a new MySQL principal repository.
func NewMySQLPrincipalRepository(db *sql.DB) *MySQLPrincipalRepository {
	return &MySQLPrincipalRepository{db: db}
}

func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// Create registers a principal in the directory.
func (r *MySQLPrincipalRepository) Create(ctx context.Context, entry *principalsDomain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO principals (kind, principal_id, title, created_at)
			  VALUES (?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		string(entry.Principal.Kind),
		entry.Principal.ID,
		entry.Title,
		entry.CreatedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "principal already exists")
		}
		return apperrors.Wrap(err, "failed to create principal")
	}
	return nil
}

// Get returns a directory entry.
func (r *MySQLPrincipalRepository) Get(
	ctx context.Context,
	principal authzDomain.Principal,
) (*principalsDomain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT kind, principal_id, title, created_at FROM principals
			  WHERE kind = ? AND principal_id = ?`

	var entry principalsDomain.Entry
	var kind string
	err := querier.QueryRowContext(ctx, query, string(principal.Kind), principal.ID).Scan(
		&kind,
		&entry.Principal.ID,
		&entry.Title,
		&entry.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "principal not found")
		}
		return nil, apperrors.Wrap(err, "failed to get principal")
	}
	entry.Principal.Kind = authzDomain.PrincipalKind(kind)

	return &entry, nil
}

// Delete removes a principal and every membership edge touching it.
func (r *MySQLPrincipalRepository) Delete(
	ctx context.Context,
	principal authzDomain.Principal,
) error {
	querier := database.GetTx(ctx, r.db)

	edgeQuery := `DELETE FROM principal_memberships
				  WHERE (child_kind = ? AND child_id = ?) OR (parent_kind = ? AND parent_id = ?)`
	if _, err := querier.ExecContext(ctx, edgeQuery,
		string(principal.Kind), principal.ID,
		string(principal.Kind), principal.ID,
	); err != nil {
		return apperrors.Wrap(err, "failed to delete membership edges")
	}

	query := `DELETE FROM principals WHERE kind = ? AND principal_id = ?`
	result, err := querier.ExecContext(ctx, query, string(principal.Kind), principal.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete principal")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check deleted rows")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrNotFound, "principal not found")
	}
	return nil
}

// AddEdge inserts a membership edge. Duplicate edges are a no-op.
func (r *MySQLPrincipalRepository) AddEdge(
	ctx context.Context,
	membership principalsDomain.Membership,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT IGNORE INTO principal_memberships (child_kind, child_id, parent_kind, parent_id, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		string(membership.Child.Kind),
		membership.Child.ID,
		string(membership.Parent.Kind),
		membership.Parent.ID,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to add membership edge")
	}
	return nil
}

// RemoveEdge deletes a membership edge. Missing edges are a no-op.
func (r *MySQLPrincipalRepository) RemoveEdge(
	ctx context.Context,
	membership principalsDomain.Membership,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM principal_memberships
			  WHERE child_kind = ? AND child_id = ? AND parent_kind = ? AND parent_id = ?`

	_, err := querier.ExecContext(ctx, query,
		string(membership.Child.Kind),
		membership.Child.ID,
		string(membership.Parent.Kind),
		membership.Parent.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to remove membership edge")
	}
	return nil
}

// ParentsOf returns the direct parents of a principal in a stable order.
func (r *MySQLPrincipalRepository) ParentsOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT parent_kind, parent_id FROM principal_memberships
			  WHERE child_kind = ? AND child_id = ?
			  ORDER BY parent_kind, parent_id`

	return r.queryPrincipals(ctx, querier, query, principal)
}

// ChildrenOf returns the direct members of a principal in a stable order.
func (r *MySQLPrincipalRepository) ChildrenOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT child_kind, child_id FROM principal_memberships
			  WHERE parent_kind = ? AND parent_id = ?
			  ORDER BY child_kind, child_id`

	return r.queryPrincipals(ctx, querier, query, principal)
}

func (r *MySQLPrincipalRepository) queryPrincipals(
	ctx context.Context,
	querier database.Querier,
	query string,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	rows, err := querier.QueryContext(ctx, query, string(principal.Kind), principal.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query membership edges")
	}
	defer rows.Close()

	var principals []authzDomain.Principal
	for rows.Next() {
		var kind, id string
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan membership edge")
		}
		principals = append(principals, authzDomain.Principal{
			Kind: authzDomain.PrincipalKind(kind),
			ID:   id,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate membership edges")
	}

	return principals, nil
}
