// Package usecase implements principal directory and membership graph
// management.
package usecase

import (
	"context"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	principalsDomain "github.com/gridworks/datahub/internal/principals/domain"
)

// PrincipalRepository defines persistence operations for the directory and
// the membership graph.
type PrincipalRepository interface {
	Create(ctx context.Context, entry *principalsDomain.Entry) error
	Get(ctx context.Context, principal authzDomain.Principal) (*principalsDomain.Entry, error)
	Delete(ctx context.Context, principal authzDomain.Principal) error
	AddEdge(ctx context.Context, membership principalsDomain.Membership) error
	RemoveEdge(ctx context.Context, membership principalsDomain.Membership) error
	ParentsOf(ctx context.Context, principal authzDomain.Principal) ([]authzDomain.Principal, error)
	ChildrenOf(ctx context.Context, principal authzDomain.Principal) ([]authzDomain.Principal, error)
}

// PrincipalUseCase manages the directory and the membership graph. It also
// serves as the hierarchy source for access evaluation: ParentsOf and
// ChildrenOf satisfy the evaluator's PrincipalHierarchy dependency.
type PrincipalUseCase interface {
	CreatePrincipal(ctx context.Context, entry *principalsDomain.Entry) error
	GetPrincipal(ctx context.Context, principal authzDomain.Principal) (*principalsDomain.Entry, error)
	// DeletePrincipal removes the principal and every membership edge
	// touching it. Grants held by the principal are left to expire through
	// acl maintenance.
	DeletePrincipal(ctx context.Context, principal authzDomain.Principal) error
	// AddMembership makes child a member of parent, so child inherits every
	// grant parent holds.
	AddMembership(ctx context.Context, membership principalsDomain.Membership) error
	RemoveMembership(ctx context.Context, membership principalsDomain.Membership) error
	ParentsOf(ctx context.Context, principal authzDomain.Principal) ([]authzDomain.Principal, error)
	ChildrenOf(ctx context.Context, principal authzDomain.Principal) ([]authzDomain.Principal, error)
}
