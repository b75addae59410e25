// Package repository implements persistence for the authorization store: one
// row per (acl key, principal) pair holding that principal's permission set.
// Repositories support both PostgreSQL and MySQL; permission sets are stored
// as JSON name lists so the enumeration can grow without a migration.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// PostgreSQLPermissionRepository implements permission persistence for PostgreSQL.
//
// Read-modify-write mutations (Grant, Revoke) lock the target row with
// FOR UPDATE; callers are expected to run mutations inside TxManager.WithTx so
// the lock spans the whole mutation.
type PostgreSQLPermissionRepository struct {
	db *sql.DB
}

// NewPostgreSQLPermissionRepository creates a new PostgreSQL permission repository.
func NewPostgreSQLPermissionRepository(db *sql.DB) *PostgreSQLPermissionRepository {
	return &PostgreSQLPermissionRepository{db: db}
}

// principalPlaceholders renders "(($1,$2),($3,$4),...)" pairs for a principal
// IN list starting at the given placeholder index.
func principalPlaceholders(start, count int) string {
	pairs := make([]string, count)
	for i := 0; i < count; i++ {
		pairs[i] = fmt.Sprintf("($%d, $%d)", start+i*2, start+i*2+1)
	}
	return strings.Join(pairs, ", ")
}

func principalArgs(args []any, principals []authzDomain.Principal) []any {
	for _, p := range principals {
		args = append(args, string(p.Kind), p.ID)
	}
	return args
}

func marshalPermissions(perms authzDomain.PermissionSet) ([]byte, error) {
	data, err := json.Marshal(perms)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal permission set")
	}
	return data, nil
}

func unmarshalPermissions(data []byte) (authzDomain.PermissionSet, error) {
	var perms authzDomain.PermissionSet
	if err := json.Unmarshal(data, &perms); err != nil {
		return 0, apperrors.Wrap(err, "failed to unmarshal permission set")
	}
	return perms, nil
}

// lockRow reads the current permission set for the row, locking it when a
// transaction is present. Returns (0, false) when the row is absent.
func (r *PostgreSQLPermissionRepository) lockRow(
	ctx context.Context,
	querier database.Querier,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) (authzDomain.PermissionSet, bool, error) {
	query := `SELECT permissions FROM permissions
			  WHERE acl_key = $1 AND principal_kind = $2 AND principal_id = $3
			  FOR UPDATE`

	var data []byte
	err := querier.QueryRowContext(ctx, query, aclKey.Index(), string(principal.Kind), principal.ID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, apperrors.Wrap(err, "failed to read permission row")
	}

	perms, err := unmarshalPermissions(data)
	if err != nil {
		return 0, false, err
	}
	return perms, true, nil
}

func (r *PostgreSQLPermissionRepository) upsert(
	ctx context.Context,
	querier database.Querier,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	data, err := marshalPermissions(perms)
	if err != nil {
		return err
	}

	query := `INSERT INTO permissions (acl_key, principal_kind, principal_id, permissions, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $5)
			  ON CONFLICT (acl_key, principal_kind, principal_id)
			  DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = EXCLUDED.updated_at`

	_, err = querier.ExecContext(ctx, query, aclKey.Index(), string(principal.Kind), principal.ID, data, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to upsert permission row")
	}
	return nil
}

func (r *PostgreSQLPermissionRepository) deleteRow(
	ctx context.Context,
	querier database.Querier,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) error {
	query := `DELETE FROM permissions
			  WHERE acl_key = $1 AND principal_kind = $2 AND principal_id = $3`

	_, err := querier.ExecContext(ctx, query, aclKey.Index(), string(principal.Kind), principal.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete permission row")
	}
	return nil
}

// Grant unions perms into the stored set for (aclKey, principal).
func (r *PostgreSQLPermissionRepository) Grant(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	querier := database.GetTx(ctx, r.db)

	existing, _, err := r.lockRow(ctx, querier, aclKey, principal)
	if err != nil {
		return err
	}
	return r.upsert(ctx, querier, aclKey, principal, existing.Union(perms))
}

// Revoke subtracts perms from the stored set; a drained set deletes the row.
func (r *PostgreSQLPermissionRepository) Revoke(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	querier := database.GetTx(ctx, r.db)

	existing, found, err := r.lockRow(ctx, querier, aclKey, principal)
	if err != nil {
		return err
	}
	if !found {
		// Revoking from an absent row is a no-op, not an error.
		return nil
	}

	remaining := existing.Difference(perms)
	if remaining.IsEmpty() {
		return r.deleteRow(ctx, querier, aclKey, principal)
	}
	return r.upsert(ctx, querier, aclKey, principal, remaining)
}

// Replace sets the stored set to exactly perms; an empty set deletes the row.
func (r *PostgreSQLPermissionRepository) Replace(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	querier := database.GetTx(ctx, r.db)

	if perms.IsEmpty() {
		return r.deleteRow(ctx, querier, aclKey, principal)
	}
	return r.upsert(ctx, querier, aclKey, principal, perms)
}

// Get returns the stored permission set for (aclKey, principal). An absent row
// yields the empty set: unknown objects and missing grants are indistinguishable.
func (r *PostgreSQLPermissionRepository) Get(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) (authzDomain.PermissionSet, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT permissions FROM permissions
			  WHERE acl_key = $1 AND principal_kind = $2 AND principal_id = $3`

	var data []byte
	err := querier.QueryRowContext(ctx, query, aclKey.Index(), string(principal.Kind), principal.ID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, apperrors.Wrap(err, "failed to get permission row")
	}

	return unmarshalPermissions(data)
}

// GetForPrincipals returns the union of stored permission sets on aclKey
// across the given principals. This backs closure evaluation with one query.
func (r *PostgreSQLPermissionRepository) GetForPrincipals(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principals []authzDomain.Principal,
) (authzDomain.PermissionSet, error) {
	if len(principals) == 0 {
		return 0, nil
	}

	querier := database.GetTx(ctx, r.db)

	query := fmt.Sprintf(
		`SELECT permissions FROM permissions
		 WHERE acl_key = $1 AND (principal_kind, principal_id) IN (%s)`,
		principalPlaceholders(2, len(principals)),
	)

	args := principalArgs([]any{aclKey.Index()}, principals)
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to query permissions for principals")
	}
	defer rows.Close()

	var union authzDomain.PermissionSet
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return 0, apperrors.Wrap(err, "failed to scan permission row")
		}
		perms, err := unmarshalPermissions(data)
		if err != nil {
			return 0, err
		}
		union = union.Union(perms)
	}
	if err := rows.Err(); err != nil {
		return 0, apperrors.Wrap(err, "failed to iterate permission rows")
	}

	return union, nil
}

// GetAcl returns every ace stored for aclKey. An unknown key yields an acl
// with no aces.
func (r *PostgreSQLPermissionRepository) GetAcl(
	ctx context.Context,
	aclKey authzDomain.AclKey,
) (*authzDomain.Acl, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT principal_kind, principal_id, permissions FROM permissions
			  WHERE acl_key = $1
			  ORDER BY principal_kind, principal_id`

	rows, err := querier.QueryContext(ctx, query, aclKey.Index())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query acl")
	}
	defer rows.Close()

	acl := &authzDomain.Acl{AclKey: aclKey}
	for rows.Next() {
		var kind, id string
		var data []byte
		if err := rows.Scan(&kind, &id, &data); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan ace row")
		}
		perms, err := unmarshalPermissions(data)
		if err != nil {
			return nil, err
		}
		acl.Aces = append(acl.Aces, authzDomain.Ace{
			Principal:   authzDomain.Principal{Kind: authzDomain.PrincipalKind(kind), ID: id},
			Permissions: perms,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate acl rows")
	}

	return acl, nil
}

// DeleteByPrefix removes every row whose acl key equals or extends the prefix.
// Used when a securable object and everything nested under it is destroyed.
func (r *PostgreSQLPermissionRepository) DeleteByPrefix(
	ctx context.Context,
	prefix authzDomain.AclKey,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM permissions
			  WHERE acl_key = $1 OR acl_key LIKE $2`

	_, err := querier.ExecContext(ctx, query, prefix.Index(), prefix.Index()+authzDomain.AclKeySeparator+"%")
	if err != nil {
		return apperrors.Wrap(err, "failed to delete permissions by prefix")
	}
	return nil
}

// ListObjectPermissions pages through securable objects of the given type on
// which at least one of the principals holds any permission, returning the
// per-object union. Paging is over candidate objects; callers filter the
// unions against their required set.
func (r *PostgreSQLPermissionRepository) ListObjectPermissions(
	ctx context.Context,
	objectType authzDomain.SecurableObjectType,
	principals []authzDomain.Principal,
	offset, limit int,
) ([]authzDomain.ObjectPermissions, error) {
	if len(principals) == 0 {
		return nil, nil
	}

	querier := database.GetTx(ctx, r.db)

	inList := principalPlaceholders(4, len(principals))
	query := fmt.Sprintf(
		`SELECT p.acl_key, p.permissions
		 FROM permissions p
		 WHERE p.acl_key IN (
			SELECT DISTINCT p2.acl_key
			FROM permissions p2
			JOIN securable_objects o ON o.acl_key = p2.acl_key
			WHERE o.object_type = $1 AND (p2.principal_kind, p2.principal_id) IN (%s)
			ORDER BY p2.acl_key
			OFFSET $2 LIMIT $3
		 ) AND (p.principal_kind, p.principal_id) IN (%s)
		 ORDER BY p.acl_key`,
		inList, inList,
	)

	args := principalArgs([]any{string(objectType), offset, limit}, principals)
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query object permissions")
	}
	defer rows.Close()

	var results []authzDomain.ObjectPermissions
	byIndex := make(map[string]int)
	for rows.Next() {
		var index string
		var data []byte
		if err := rows.Scan(&index, &data); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan object permission row")
		}
		perms, err := unmarshalPermissions(data)
		if err != nil {
			return nil, err
		}

		if pos, ok := byIndex[index]; ok {
			results[pos].Permissions = results[pos].Permissions.Union(perms)
			continue
		}

		aclKey, err := authzDomain.ParseAclKey(index)
		if err != nil {
			return nil, err
		}
		byIndex[index] = len(results)
		results = append(results, authzDomain.ObjectPermissions{AclKey: aclKey, Permissions: perms})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate object permission rows")
	}

	return results, nil
}
