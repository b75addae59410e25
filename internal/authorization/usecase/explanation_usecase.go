package usecase

import (
	"context"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
)

// explanationUseCase implements ExplanationUseCase by walking the membership
// graph downward from each directly granted principal.
type explanationUseCase struct {
	hierarchy  PrincipalHierarchy
	aclUseCase AclUseCase
	maxDepth   int
}

// NewExplanationUseCase creates a grant explanation usecase. maxDepth bounds
// path extension the same way closure expansion is bounded.
func NewExplanationUseCase(
	hierarchy PrincipalHierarchy,
	aclUseCase AclUseCase,
	maxDepth int,
) ExplanationUseCase {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	return &explanationUseCase{
		hierarchy:  hierarchy,
		aclUseCase: aclUseCase,
		maxDepth:   maxDepth,
	}
}

// ExplainAcl explains every ace on the key. The owner gate is delegated to
// the acl usecase's GetAcl so reading and explaining share one policy.
func (e *explanationUseCase) ExplainAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) ([]authzDomain.AceExplanation, error) {
	acl, err := e.aclUseCase.GetAcl(ctx, actorSeeds, aclKey)
	if err != nil {
		return nil, err
	}

	explanations := make([]authzDomain.AceExplanation, 0, len(acl.Aces))
	for _, ace := range acl.Aces {
		paths, err := e.expandPaths(ctx, ace.Principal)
		if err != nil {
			return nil, err
		}
		explanations = append(explanations, authzDomain.AceExplanation{
			Ace:   ace,
			Paths: paths,
		})
	}
	return explanations, nil
}

// expandPaths accumulates every membership chain rooted at the granted
// principal until a fixed point: each round extends the previous round's
// paths with the members of their last element. A principal already on a path
// is never appended to it again, so cyclic membership terminates.
func (e *explanationUseCase) expandPaths(
	ctx context.Context,
	granted authzDomain.Principal,
) ([]authzDomain.PrincipalPath, error) {
	seed := authzDomain.PrincipalPath{granted}
	all := []authzDomain.PrincipalPath{seed}
	seen := map[string]struct{}{seed.Key(): {}}
	frontier := []authzDomain.PrincipalPath{seed}

	for depth := 0; depth < e.maxDepth && len(frontier) > 0; depth++ {
		var next []authzDomain.PrincipalPath
		for _, path := range frontier {
			// Users have no members; skip the lookup.
			if path.Last().Kind == authzDomain.UserPrincipal {
				continue
			}

			children, err := e.hierarchy.ChildrenOf(ctx, path.Last())
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if pathContains(path, child) {
					continue
				}
				extended := path.Extend(child)
				if _, dup := seen[extended.Key()]; dup {
					continue
				}
				seen[extended.Key()] = struct{}{}
				all = append(all, extended)
				next = append(next, extended)
			}
		}
		frontier = next
	}

	return all, nil
}

func pathContains(path authzDomain.PrincipalPath, p authzDomain.Principal) bool {
	for _, member := range path {
		if member == p {
			return true
		}
	}
	return false
}
