package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/authorization/mocks"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

func pathKeys(paths []authzDomain.PrincipalPath) []string {
	keys := make([]string, len(paths))
	for i, path := range paths {
		keys[i] = path.Key()
	}
	return keys
}

func TestExplanationUseCase_ExplainAcl(t *testing.T) {
	ctx := context.Background()
	actor := []authzDomain.Principal{testAlice}

	t.Run("Role grant explains members transitively", func(t *testing.T) {
		aclKey := newTestKey()

		acl := &authzDomain.Acl{
			AclKey: aclKey,
			Aces: []authzDomain.Ace{
				{Principal: testOrg, Permissions: authzDomain.PermissionDiscover},
			},
		}

		aclUC := &mocks.MockAclUseCase{}
		aclUC.On("GetAcl", mock.Anything, actor, aclKey).Return(acl, nil)

		// acme org contains the analysts role, which contains alice.
		hierarchy := &mocks.MockPrincipalHierarchy{}
		hierarchy.On("ChildrenOf", mock.Anything, testOrg).Return([]authzDomain.Principal{testAnalysts}, nil)
		hierarchy.On("ChildrenOf", mock.Anything, testAnalysts).Return([]authzDomain.Principal{testAlice}, nil)

		uc := NewExplanationUseCase(hierarchy, aclUC, 32)

		explanations, err := uc.ExplainAcl(ctx, actor, aclKey)
		require.NoError(t, err)
		require.Len(t, explanations, 1)

		assert.Equal(t, acl.Aces[0], explanations[0].Ace)
		assert.Equal(t, []string{
			"ORGANIZATION|acme",
			"ORGANIZATION|acme->ROLE|analysts",
			"ORGANIZATION|acme->ROLE|analysts->USER|alice",
		}, pathKeys(explanations[0].Paths))
	})

	t.Run("User grant yields only the trivial path", func(t *testing.T) {
		aclKey := newTestKey()

		acl := &authzDomain.Acl{
			AclKey: aclKey,
			Aces: []authzDomain.Ace{
				{Principal: testAlice, Permissions: authzDomain.PermissionRead},
			},
		}

		aclUC := &mocks.MockAclUseCase{}
		aclUC.On("GetAcl", mock.Anything, actor, aclKey).Return(acl, nil)

		hierarchy := &mocks.MockPrincipalHierarchy{}

		uc := NewExplanationUseCase(hierarchy, aclUC, 32)

		explanations, err := uc.ExplainAcl(ctx, actor, aclKey)
		require.NoError(t, err)
		require.Len(t, explanations, 1)
		assert.Equal(t, []string{"USER|alice"}, pathKeys(explanations[0].Paths))
		// Users have no members, so the graph is never consulted.
		hierarchy.AssertNotCalled(t, "ChildrenOf", mock.Anything, mock.Anything)
	})

	t.Run("Cyclic membership terminates without repeating principals", func(t *testing.T) {
		aclKey := newTestKey()

		acl := &authzDomain.Acl{
			AclKey: aclKey,
			Aces: []authzDomain.Ace{
				{Principal: testAnalysts, Permissions: authzDomain.PermissionRead},
			},
		}

		aclUC := &mocks.MockAclUseCase{}
		aclUC.On("GetAcl", mock.Anything, actor, aclKey).Return(acl, nil)

		// analysts and admins contain each other.
		hierarchy := &mocks.MockPrincipalHierarchy{}
		hierarchy.On("ChildrenOf", mock.Anything, testAnalysts).Return([]authzDomain.Principal{testAdmins}, nil)
		hierarchy.On("ChildrenOf", mock.Anything, testAdmins).Return([]authzDomain.Principal{testAnalysts}, nil)

		uc := NewExplanationUseCase(hierarchy, aclUC, 32)

		explanations, err := uc.ExplainAcl(ctx, actor, aclKey)
		require.NoError(t, err)
		require.Len(t, explanations, 1)
		assert.Equal(t, []string{
			"ROLE|analysts",
			"ROLE|analysts->ROLE|admins",
		}, pathKeys(explanations[0].Paths))
	})

	t.Run("Owner gate failures pass through", func(t *testing.T) {
		aclKey := newTestKey()

		aclUC := &mocks.MockAclUseCase{}
		aclUC.On("GetAcl", mock.Anything, actor, aclKey).Return(nil, apperrors.ErrForbidden)

		uc := NewExplanationUseCase(&mocks.MockPrincipalHierarchy{}, aclUC, 32)

		_, err := uc.ExplainAcl(ctx, actor, aclKey)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}
