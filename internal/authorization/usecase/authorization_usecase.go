package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
)

// authorizationUseCase implements AuthorizationUseCase.
type authorizationUseCase struct {
	permissionRepo PermissionRepository
	hierarchy      PrincipalHierarchy
	maxDepth       int
	fanoutLimit    int
}

// NewAuthorizationUseCase creates an access evaluator. maxDepth bounds
// membership traversal so a cyclic or pathological graph cannot hang a check;
// fanoutLimit caps concurrent parent lookups per traversal level.
func NewAuthorizationUseCase(
	permissionRepo PermissionRepository,
	hierarchy PrincipalHierarchy,
	maxDepth int,
	fanoutLimit int,
) AuthorizationUseCase {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	if fanoutLimit <= 0 {
		fanoutLimit = 8
	}
	return &authorizationUseCase{
		permissionRepo: permissionRepo,
		hierarchy:      hierarchy,
		maxDepth:       maxDepth,
		fanoutLimit:    fanoutLimit,
	}
}

// ExpandPrincipals walks the membership graph breadth-first from the seed set.
// Every visited principal is recorded exactly once, so cycles in the graph
// terminate naturally; maxDepth is a second bound for degenerate graphs.
func (u *authorizationUseCase) ExpandPrincipals(
	ctx context.Context,
	seeds []authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	visited := make(map[authzDomain.Principal]struct{}, len(seeds))
	closure := make([]authzDomain.Principal, 0, len(seeds))
	var frontier []authzDomain.Principal

	for _, seed := range seeds {
		if err := seed.Validate(); err != nil {
			return nil, err
		}
		if _, seen := visited[seed]; seen {
			continue
		}
		visited[seed] = struct{}{}
		closure = append(closure, seed)
		frontier = append(frontier, seed)
	}

	for depth := 0; depth < u.maxDepth && len(frontier) > 0; depth++ {
		parentsPer := make([][]authzDomain.Principal, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(u.fanoutLimit)
		for i, principal := range frontier {
			g.Go(func() error {
				parents, err := u.hierarchy.ParentsOf(gctx, principal)
				if err != nil {
					return err
				}
				parentsPer[i] = parents
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []authzDomain.Principal
		for _, parents := range parentsPer {
			for _, parent := range parents {
				if _, seen := visited[parent]; seen {
					continue
				}
				visited[parent] = struct{}{}
				closure = append(closure, parent)
				next = append(next, parent)
			}
		}
		frontier = next
	}

	return closure, nil
}

// CheckPermissions reports whether the seed set's closure holds every
// permission in required on the key.
func (u *authorizationUseCase) CheckPermissions(
	ctx context.Context,
	seeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
	required authzDomain.PermissionSet,
) (bool, error) {
	if err := aclKey.Validate(); err != nil {
		return false, err
	}
	if required.IsEmpty() {
		return false, authzDomain.ErrEmptyPermissions
	}
	if err := required.Validate(); err != nil {
		return false, err
	}

	granted, err := u.GetObjectPermissions(ctx, seeds, aclKey)
	if err != nil {
		return false, err
	}
	return granted.Contains(required), nil
}

// GetObjectPermissions returns the union of permissions the closure holds on
// the key.
func (u *authorizationUseCase) GetObjectPermissions(
	ctx context.Context,
	seeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (authzDomain.PermissionSet, error) {
	if err := aclKey.Validate(); err != nil {
		return 0, err
	}

	closure, err := u.ExpandPrincipals(ctx, seeds)
	if err != nil {
		return 0, err
	}

	return u.permissionRepo.GetForPrincipals(ctx, aclKey, closure)
}

// AccessChecks answers a batch of checks with one closure expansion. Results
// come back in the order of the submitted checks.
func (u *authorizationUseCase) AccessChecks(
	ctx context.Context,
	seeds []authzDomain.Principal,
	checks []authzDomain.AccessCheck,
) ([]authzDomain.Authorization, error) {
	for _, check := range checks {
		if err := check.Validate(); err != nil {
			return nil, err
		}
	}

	closure, err := u.ExpandPrincipals(ctx, seeds)
	if err != nil {
		return nil, err
	}

	results := make([]authzDomain.Authorization, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.fanoutLimit)
	for i, check := range checks {
		g.Go(func() error {
			granted, err := u.permissionRepo.GetForPrincipals(gctx, check.AclKey, closure)
			if err != nil {
				return err
			}
			results[i] = authzDomain.Authorization{
				AclKey:    check.AclKey,
				Requested: check.Permissions,
				Granted:   granted,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// ListAuthorizedObjects pages through objects of the given type on which the
// closure holds every permission in required.
func (u *authorizationUseCase) ListAuthorizedObjects(
	ctx context.Context,
	seeds []authzDomain.Principal,
	objectType authzDomain.SecurableObjectType,
	required authzDomain.PermissionSet,
	offset, limit int,
) ([]authzDomain.AclKey, error) {
	if required.IsEmpty() {
		return nil, authzDomain.ErrEmptyPermissions
	}
	if err := required.Validate(); err != nil {
		return nil, err
	}

	closure, err := u.ExpandPrincipals(ctx, seeds)
	if err != nil {
		return nil, err
	}

	candidates, err := u.permissionRepo.ListObjectPermissions(ctx, objectType, closure, offset, limit)
	if err != nil {
		return nil, err
	}

	var authorized []authzDomain.AclKey
	for _, candidate := range candidates {
		if candidate.Permissions.Contains(required) {
			authorized = append(authorized, candidate.AclKey)
		}
	}
	return authorized, nil
}
