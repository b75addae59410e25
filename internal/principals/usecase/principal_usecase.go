package usecase

import (
	"context"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	principalsDomain "github.com/gridworks/datahub/internal/principals/domain"
)

// principalUseCase implements PrincipalUseCase.
type principalUseCase struct {
	principalRepo PrincipalRepository
}

// NewPrincipalUseCase creates a principal directory usecase.
func NewPrincipalUseCase(principalRepo PrincipalRepository) PrincipalUseCase {
	return &principalUseCase{principalRepo: principalRepo}
}

// CreatePrincipal registers a principal in the directory.
func (u *principalUseCase) CreatePrincipal(ctx context.Context, entry *principalsDomain.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return u.principalRepo.Create(ctx, entry)
}

// GetPrincipal returns a directory entry.
func (u *principalUseCase) GetPrincipal(
	ctx context.Context,
	principal authzDomain.Principal,
) (*principalsDomain.Entry, error) {
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	return u.principalRepo.Get(ctx, principal)
}

// DeletePrincipal removes a principal and its membership edges.
func (u *principalUseCase) DeletePrincipal(
	ctx context.Context,
	principal authzDomain.Principal,
) error {
	if err := principal.Validate(); err != nil {
		return err
	}
	return u.principalRepo.Delete(ctx, principal)
}

// AddMembership links child to parent after verifying both are registered.
func (u *principalUseCase) AddMembership(
	ctx context.Context,
	membership principalsDomain.Membership,
) error {
	if err := membership.Validate(); err != nil {
		return err
	}
	if _, err := u.principalRepo.Get(ctx, membership.Child); err != nil {
		return err
	}
	if _, err := u.principalRepo.Get(ctx, membership.Parent); err != nil {
		return err
	}
	return u.principalRepo.AddEdge(ctx, membership)
}

// RemoveMembership unlinks child from parent.
func (u *principalUseCase) RemoveMembership(
	ctx context.Context,
	membership principalsDomain.Membership,
) error {
	if err := membership.Validate(); err != nil {
		return err
	}
	return u.principalRepo.RemoveEdge(ctx, membership)
}

// ParentsOf returns the direct parents of a principal.
func (u *principalUseCase) ParentsOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	return u.principalRepo.ParentsOf(ctx, principal)
}

// ChildrenOf returns the direct members of a principal.
func (u *principalUseCase) ChildrenOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	return u.principalRepo.ChildrenOf(ctx, principal)
}
