// Package repository implements persistence for the principal directory and
// the membership graph, for both PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	principalsDomain "github.com/gridworks/datahub/internal/principals/domain"
)

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique
// constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// PostgreSQLPrincipalRepository implements principal directory persistence
// for PostgreSQL.
type PostgreSQLPrincipalRepository struct {
	db *sql.DB
}

// NewPostgreSQLPrincipalRepository creates a new PostgreSQL principal repository.
func NewPostgreSQLPrincipalRepository(db *sql.DB) *PostgreSQLPrincipalRepository {
	return &PostgreSQLPrincipalRepository{db: db}
}

// Create registers a principal in the directory.
func (r *PostgreSQLPrincipalRepository) Create(ctx context.Context, entry *principalsDomain.Entry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO principals (kind, principal_id, title, created_at)
			  VALUES ($1, $2, $3, $4)`

	_, err := querier.ExecContext(ctx, query,
		string(entry.Principal.Kind),
		entry.Principal.ID,
		entry.Title,
		entry.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "principal already exists")
		}
		return apperrors.Wrap(err, "failed to create principal")
	}
	return nil
}

// Get returns a directory entry.
func (r *PostgreSQLPrincipalRepository) Get(
	ctx context.Context,
	principal authzDomain.Principal,
) (*principalsDomain.Entry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT kind, principal_id, title, created_at FROM principals
			  WHERE kind = $1 AND principal_id = $2`

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
func (r *PostgreSQLPrincipalRepository) Delete(
	ctx context.Context,
	principal authzDomain.Principal,
) error {
	querier := database.GetTx(ctx, r.db)

	edgeQuery := `DELETE FROM principal_memberships
				  WHERE (child_kind = $1 AND child_id = $2) OR (parent_kind = $1 AND parent_id = $2)`
	if _, err := querier.ExecContext(ctx, edgeQuery, string(principal.Kind), principal.ID); err != nil {
		return apperrors.Wrap(err, "failed to delete membership edges")
	}

	query := `DELETE FROM principals WHERE kind = $1 AND principal_id = $2`
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
func (r *PostgreSQLPrincipalRepository) AddEdge(
	ctx context.Context,
	membership principalsDomain.Membership,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO principal_memberships (child_kind, child_id, parent_kind, parent_id, created_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT DO NOTHING`

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
func (r *PostgreSQLPrincipalRepository) RemoveEdge(
	ctx context.Context,
	membership principalsDomain.Membership,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM principal_memberships
			  WHERE child_kind = $1 AND child_id = $2 AND parent_kind = $3 AND parent_id = $4`

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
func (r *PostgreSQLPrincipalRepository) ParentsOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT parent_kind, parent_id FROM principal_memberships
			  WHERE child_kind = $1 AND child_id = $2
			  ORDER BY parent_kind, parent_id`

	return r.queryPrincipals(ctx, querier, query, principal)
}

// ChildrenOf returns the direct members of a principal in a stable order.
func (r *PostgreSQLPrincipalRepository) ChildrenOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT child_kind, child_id FROM principal_memberships
			  WHERE parent_kind = $1 AND parent_id = $2
			  ORDER BY child_kind, child_id`

	return r.queryPrincipals(ctx, querier, query, principal)
}

func (r *PostgreSQLPrincipalRepository) queryPrincipals(
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
