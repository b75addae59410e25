package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/testutil"
)

func newTestAclKey(t *testing.T, db *sql.DB, objectType string) authzDomain.AclKey {
	t.Helper()

	index := testutil.CreateTestObject(t, db, "postgres", objectType, "test-object")
	aclKey, err := authzDomain.ParseAclKey(index)
	require.NoError(t, err)
	return aclKey
}

func TestNewPostgreSQLPermissionRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLPermissionRepository{}, repo)
}

func TestPostgreSQLPermissionRepository_GrantAndGet(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	aclKey := newTestAclKey(t, db, "EntitySet")
	principal := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}

	err := repo.Grant(ctx, aclKey, principal, authzDomain.PermissionRead)
	require.NoError(t, err)

	perms, err := repo.Get(ctx, aclKey, principal)
	require.NoError(t, err)
	assert.Equal(t, authzDomain.PermissionRead, perms)

	// A second grant unions with the existing set.
	err = repo.Grant(ctx, aclKey, principal, authzDomain.PermissionWrite)
	require.NoError(t, err)

	perms, err = repo.Get(ctx, aclKey, principal)
	require.NoError(t, err)
	assert.Equal(t, authzDomain.PermissionRead.Union(authzDomain.PermissionWrite), perms)
}

func TestPostgreSQLPermissionRepository_GetAbsentRow(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	aclKey := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
	principal := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "nobody"}

	perms, err := repo.Get(ctx, aclKey, principal)
	require.NoError(t, err)
	assert.True(t, perms.IsEmpty())
}

func TestPostgreSQLPermissionRepository_Revoke(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	aclKey := newTestAclKey(t, db, "EntitySet")
	principal := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}

	granted := authzDomain.PermissionRead.Union(authzDomain.PermissionWrite)
	require.NoError(t, repo.Grant(ctx, aclKey, principal, granted))

	err := repo.Revoke(ctx, aclKey, principal, authzDomain.PermissionWrite)
	require.NoError(t, err)

	perms, err := repo.Get(ctx, aclKey, principal)
	require.NoError(t, err)
	assert.Equal(t, authzDomain.PermissionRead, perms)

	// Draining the set removes the row entirely.
	err = repo.Revoke(ctx, aclKey, principal, authzDomain.PermissionRead)
	require.NoError(t, err)

	var count int
	query := `SELECT COUNT(*) FROM permissions WHERE acl_key = $1`
	require.NoError(t, db.QueryRowContext(ctx, query, aclKey.Index()).Scan(&count))
	assert.Equal(t, 0, count)

	// Revoking from an absent row is a no-op.
	err = repo.Revoke(ctx, aclKey, principal, authzDomain.PermissionRead)
	require.NoError(t, err)
}

func TestPostgreSQLPermissionRepository_Replace(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	aclKey := newTestAclKey(t, db, "EntitySet")
	principal := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}

	require.NoError(t, repo.Grant(ctx, aclKey, principal, authzDomain.PermissionOwner))

	err := repo.Replace(ctx, aclKey, principal, authzDomain.PermissionDiscover)
	require.NoError(t, err)

	perms, err := repo.Get(ctx, aclKey, principal)
	require.NoError(t, err)
	assert.Equal(t, authzDomain.PermissionDiscover, perms)

	// An empty replacement deletes the row.
	err = repo.Replace(ctx, aclKey, principal, 0)
	require.NoError(t, err)

	perms, err = repo.Get(ctx, aclKey, principal)
	require.NoError(t, err)
	assert.True(t, perms.IsEmpty())
}

func TestPostgreSQLPermissionRepository_GetForPrincipals(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	aclKey := newTestAclKey(t, db, "EntitySet")
	alice := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
	analysts := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}
	admins := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "admins"}

	require.NoError(t, repo.Grant(ctx, aclKey, alice, authzDomain.PermissionRead))
	require.NoError(t, repo.Grant(ctx, aclKey, analysts, authzDomain.PermissionWrite))
	require.NoError(t, repo.Grant(ctx, aclKey, admins, authzDomain.PermissionOwner))

	// Union across the queried principals only.
	perms, err := repo.GetForPrincipals(ctx, aclKey, []authzDomain.Principal{alice, analysts})
	require.NoError(t, err)
	assert.Equal(t, authzDomain.PermissionRead.Union(authzDomain.PermissionWrite), perms)

	perms, err = repo.GetForPrincipals(ctx, aclKey, nil)
	require.NoError(t, err)
	assert.True(t, perms.IsEmpty())
}

func TestPostgreSQLPermissionRepository_GetAcl(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	aclKey := newTestAclKey(t, db, "EntitySet")
	alice := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
	analysts := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}

	require.NoError(t, repo.Grant(ctx, aclKey, alice, authzDomain.PermissionRead))
	require.NoError(t, repo.Grant(ctx, aclKey, analysts, authzDomain.PermissionOwner))

	acl, err := repo.GetAcl(ctx, aclKey)
	require.NoError(t, err)
	require.Len(t, acl.Aces, 2)
	assert.Equal(t, aclKey, acl.AclKey)

	// An unknown key yields an empty acl, not an error.
	unknown := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
	acl, err = repo.GetAcl(ctx, unknown)
	require.NoError(t, err)
	assert.Empty(t, acl.Aces)
}

func TestPostgreSQLPermissionRepository_DeleteByPrefix(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	root := newTestAclKey(t, db, "EntitySet")
	child := root.Extend(uuid.Must(uuid.NewV7()))
	sibling := newTestAclKey(t, db, "EntitySet")

	alice := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
	require.NoError(t, repo.Grant(ctx, root, alice, authzDomain.PermissionOwner))
	require.NoError(t, repo.Grant(ctx, child, alice, authzDomain.PermissionRead))
	require.NoError(t, repo.Grant(ctx, sibling, alice, authzDomain.PermissionRead))

	err := repo.DeleteByPrefix(ctx, root)
	require.NoError(t, err)

	perms, err := repo.Get(ctx, root, alice)
	require.NoError(t, err)
	assert.True(t, perms.IsEmpty())

	perms, err = repo.Get(ctx, child, alice)
	require.NoError(t, err)
	assert.True(t, perms.IsEmpty())

	// Keys outside the prefix are untouched.
	perms, err = repo.Get(ctx, sibling, alice)
	require.NoError(t, err)
	assert.Equal(t, authzDomain.PermissionRead, perms)
}

func TestPostgreSQLPermissionRepository_ListObjectPermissions(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPermissionRepository(db)
	ctx := context.Background()

	first := newTestAclKey(t, db, "EntitySet")
	second := newTestAclKey(t, db, "EntitySet")
	other := newTestAclKey(t, db, "Organization")

	alice := authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
	analysts := authzDomain.Principal{Kind: authzDomain.RolePrincipal, ID: "analysts"}

	require.NoError(t, repo.Grant(ctx, first, alice, authzDomain.PermissionRead))
	require.NoError(t, repo.Grant(ctx, first, analysts, authzDomain.PermissionWrite))
	require.NoError(t, repo.Grant(ctx, second, analysts, authzDomain.PermissionDiscover))
	require.NoError(t, repo.Grant(ctx, other, alice, authzDomain.PermissionOwner))

	results, err := repo.ListObjectPermissions(
		ctx,
		authzDomain.ObjectTypeEntitySet,
		[]authzDomain.Principal{alice, analysts},
		0,
		50,
	)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byIndex := make(map[string]authzDomain.PermissionSet, len(results))
	for _, result := range results {
		byIndex[result.AclKey.Index()] = result.Permissions
	}

	// Permissions are unioned across the principal set per object.
	assert.Equal(t, authzDomain.PermissionRead.Union(authzDomain.PermissionWrite), byIndex[first.Index()])
	assert.Equal(t, authzDomain.PermissionDiscover, byIndex[second.Index()])

	// Objects of other types never appear.
	_, found := byIndex[other.Index()]
	assert.False(t, found)
}
