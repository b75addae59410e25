// Package repository implements securable object catalog persistence for
// both PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"strings"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
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

// PostgreSQLObjectRepository implements catalog persistence for PostgreSQL.
type PostgreSQLObjectRepository struct {
	db *sql.DB
}

// NewPostgreSQLObjectRepository creates a new PostgreSQL object repository.
func NewPostgreSQLObjectRepository(db *sql.DB) *PostgreSQLObjectRepository {
	return &PostgreSQLObjectRepository{db: db}
}

// Create registers a securable object. Registering an already known key
// returns a conflict.
func (r *PostgreSQLObjectRepository) Create(ctx context.Context, object *catalogDomain.SecurableObject) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO securable_objects (acl_key, object_type, name, description, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(ctx, query,
		object.AclKey.Index(),
		string(object.Type),
		object.Name,
		object.Description,
		object.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "securable object already exists")
		}
		return apperrors.Wrap(err, "failed to create securable object")
	}
	return nil
}

// Get returns the catalog entry for a key.
func (r *PostgreSQLObjectRepository) Get(
	ctx context.Context,
	aclKey authzDomain.AclKey,
) (*catalogDomain.SecurableObject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT acl_key, object_type, name, description, created_at FROM securable_objects
			  WHERE acl_key = $1`

	return scanObject(querier.QueryRowContext(ctx, query, aclKey.Index()).Scan)
}

// DeleteByPrefix removes the object at the given key and every object nested
// below it. Returns the number of catalog rows removed.
func (r *PostgreSQLObjectRepository) DeleteByPrefix(ctx context.Context, aclKey authzDomain.AclKey) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM securable_objects WHERE acl_key = $1 OR acl_key LIKE $2`

	result, err := querier.ExecContext(ctx, query,
		aclKey.Index(),
		aclKey.Index()+authzDomain.AclKeySeparator+"%",
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete securable objects")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to check deleted rows")
	}
	return affected, nil
}

// ListByType returns a page of catalog entries of one type ordered by key.
func (r *PostgreSQLObjectRepository) ListByType(
	ctx context.Context,
	objectType authzDomain.SecurableObjectType,
	limit, offset int,
) ([]*catalogDomain.SecurableObject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT acl_key, object_type, name, description, created_at FROM securable_objects
			  WHERE object_type = $1
			  ORDER BY acl_key
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, string(objectType), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list securable objects")
	}
	defer rows.Close()

	return collectObjects(rows)
}

// scanObject maps a single row onto a catalog entry, shared by both drivers.
func scanObject(scan func(dest ...any) error) (*catalogDomain.SecurableObject, error) {
	var object catalogDomain.SecurableObject
	var index, objectType string
	err := scan(&index, &objectType, &object.Name, &object.Description, &object.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "securable object not found")
		}
		return nil, apperrors.Wrap(err, "failed to scan securable object")
	}

	key, err := authzDomain.ParseAclKey(index)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse stored acl key")
	}
	object.AclKey = key
	object.Type = authzDomain.SecurableObjectType(objectType)

	return &object, nil
}

func collectObjects(rows *sql.Rows) ([]*catalogDomain.SecurableObject, error) {
	var objects []*catalogDomain.SecurableObject
	for rows.Next() {
		object, err := scanObject(rows.Scan)
		if err != nil {
			return nil, err
		}
		objects = append(objects, object)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate securable objects")
	}
	return objects, nil
}
