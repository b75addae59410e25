// Package usecase implements the access evaluation and acl management business
// logic: principal closure expansion, permission checks, owner-gated acl
// mutations, and grant explanations.
package usecase

import (
	"context"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
)

// PermissionRepository defines persistence operations for aces.
type PermissionRepository interface {
	Grant(ctx context.Context, aclKey authzDomain.AclKey, principal authzDomain.Principal, perms authzDomain.PermissionSet) error
	Revoke(ctx context.Context, aclKey authzDomain.AclKey, principal authzDomain.Principal, perms authzDomain.PermissionSet) error
	Replace(ctx context.Context, aclKey authzDomain.AclKey, principal authzDomain.Principal, perms authzDomain.PermissionSet) error
	Get(ctx context.Context, aclKey authzDomain.AclKey, principal authzDomain.Principal) (authzDomain.PermissionSet, error)
	GetForPrincipals(ctx context.Context, aclKey authzDomain.AclKey, principals []authzDomain.Principal) (authzDomain.PermissionSet, error)
	GetAcl(ctx context.Context, aclKey authzDomain.AclKey) (*authzDomain.Acl, error)
	DeleteByPrefix(ctx context.Context, prefix authzDomain.AclKey) error
	ListObjectPermissions(ctx context.Context, objectType authzDomain.SecurableObjectType, principals []authzDomain.Principal, offset, limit int) ([]authzDomain.ObjectPermissions, error)
}

// PrincipalHierarchy exposes the membership graph. ParentsOf feeds closure
// expansion (a principal inherits every parent's grants); ChildrenOf feeds
// grant explanations.
type PrincipalHierarchy interface {
	ParentsOf(ctx context.Context, principal authzDomain.Principal) ([]authzDomain.Principal, error)
	ChildrenOf(ctx context.Context, principal authzDomain.Principal) ([]authzDomain.Principal, error)
}

// NotificationSink receives acl change notifications after a mutation commits.
type NotificationSink interface {
	AclUpdated(ctx context.Context, data authzDomain.AclData) error
	PermissionsDestroyed(ctx context.Context, aclKey authzDomain.AclKey) error
}

// AuditRecorder persists a tamper-evident record of each acl mutation.
type AuditRecorder interface {
	RecordAclChange(ctx context.Context, actor authzDomain.Principal, eventType string, aclKey authzDomain.AclKey, metadata map[string]any) error
}

// AuthorizationUseCase evaluates effective permissions for a caller's
// principal set. The principals argument is always the caller's seed set (the
// authenticated user plus any directly asserted roles); closure expansion
// through the membership graph happens inside.
type AuthorizationUseCase interface {
	// ExpandPrincipals returns the closure of the seed set over the
	// membership graph, including the seeds themselves.
	ExpandPrincipals(ctx context.Context, seeds []authzDomain.Principal) ([]authzDomain.Principal, error)
	// CheckPermissions reports whether the closure holds every permission in
	// required on the key.
	CheckPermissions(ctx context.Context, seeds []authzDomain.Principal, aclKey authzDomain.AclKey, required authzDomain.PermissionSet) (bool, error)
	// GetObjectPermissions returns the union of permissions the closure holds
	// on the key. Unknown keys yield the empty set.
	GetObjectPermissions(ctx context.Context, seeds []authzDomain.Principal, aclKey authzDomain.AclKey) (authzDomain.PermissionSet, error)
	// AccessChecks answers a batch of checks with one closure expansion.
	AccessChecks(ctx context.Context, seeds []authzDomain.Principal, checks []authzDomain.AccessCheck) ([]authzDomain.Authorization, error)
	// ListAuthorizedObjects pages through objects of the given type on which
	// the closure holds every permission in required. Pages are computed over
	// candidate objects before filtering, so a page may come back shorter
	// than limit while more candidates remain.
	ListAuthorizedObjects(ctx context.Context, seeds []authzDomain.Principal, objectType authzDomain.SecurableObjectType, required authzDomain.PermissionSet, offset, limit int) ([]authzDomain.AclKey, error)
}

// AclUseCase manages acl mutations. Every mutation is gated on the actor
// holding OWNER on the target key.
type AclUseCase interface {
	// GetAcl returns the full acl for the key. Requires OWNER.
	GetAcl(ctx context.Context, actorSeeds []authzDomain.Principal, aclKey authzDomain.AclKey) (*authzDomain.Acl, error)
	// UpdateAcl applies one mutation atomically. Requires OWNER.
	UpdateAcl(ctx context.Context, actorSeeds []authzDomain.Principal, data authzDomain.AclData) error
	// UpdateAcls applies a batch of mutations, one transaction per key.
	// Failed keys are reported per entry and do not roll back the others.
	UpdateAcls(ctx context.Context, actorSeeds []authzDomain.Principal, batch []authzDomain.AclData) ([]authzDomain.AclUpdateResult, error)
	// DeleteAllPermissions removes every ace on the key and everything nested
	// under it. Requires OWNER on the key itself.
	DeleteAllPermissions(ctx context.Context, actorSeeds []authzDomain.Principal, aclKey authzDomain.AclKey) error
}

// ExplanationUseCase explains how each ace on a key reaches the principals
// that inherit it.
type ExplanationUseCase interface {
	// ExplainAcl returns one explanation per ace on the key, each listing the
	// membership chains the grant flows through. Requires OWNER.
	ExplainAcl(ctx context.Context, actorSeeds []authzDomain.Principal, aclKey authzDomain.AclKey) ([]authzDomain.AceExplanation, error)
}
