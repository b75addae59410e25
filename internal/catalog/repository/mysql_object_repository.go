package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// isMySQLDuplicateEntry checks if the error is a MySQL duplicate entry error.
func isMySQLDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// MySQLObjectRepository implements catalog persistence for MySQL.
type MySQLObjectRepository struct {
	db *sql.DB
}

// NewMySQLObjectRepository creates a new MySQL object repository.
func NewMySQLObjectRepository(db *sql.DB) *MySQLObjectRepository {
	return &MySQLObjectRepository{db: db}
}

// Create registers a securable object. Registering an already known key
// returns a conflict.
func (r *MySQLObjectRepository) Create(ctx context.Context, object *catalogDomain.SecurableObject) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO securable_objects (acl_key, object_type, name, description, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query,
		object.AclKey.Index(),
		string(object.Type),
		object.Name,
		object.Description,
		object.CreatedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "securable object already exists")
		}
		return apperrors.Wrap(err, "failed to create securable object")
	}
	return nil
}

// Get returns the catalog entry for a key.
func (r *MySQLObjectRepository) Get(
	ctx context.Context,
	aclKey authzDomain.AclKey,
) (*catalogDomain.SecurableObject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT acl_key, object_type, name, description, created_at FROM securable_objects
			  WHERE acl_key = ?`

	return scanObject(querier.QueryRowContext(ctx, query, aclKey.Index()).Scan)
}

// DeleteByPrefix removes the object at the given key and every object nested
// below it. Returns the number of catalog rows removed.
func (r *MySQLObjectRepository) DeleteByPrefix(ctx context.Context, aclKey authzDomain.AclKey) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM securable_objects WHERE acl_key = ? OR acl_key LIKE ?`

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
func (r *MySQLObjectRepository) ListByType(
	ctx context.Context,
	objectType authzDomain.SecurableObjectType,
	limit, offset int,
) ([]*catalogDomain.SecurableObject, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT acl_key, object_type, name, description, created_at FROM securable_objects
			  WHERE object_type = ?
			  ORDER BY acl_key
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, string(objectType), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list securable objects")
	}
	defer rows.Close()

	return collectObjects(rows)
}
