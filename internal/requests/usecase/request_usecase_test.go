package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	authzMocks "github.com/gridworks/datahub/internal/authorization/mocks"
	apperrors "github.com/gridworks/datahub/internal/errors"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	// Execute the function to test the logic inside
	return fn(ctx)
}

// MockRequestRepository is a mock implementation of RequestRepository.
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, request *requestsDomain.PermissionsRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) Update(ctx context.Context, request *requestsDomain.PermissionsRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*requestsDomain.PermissionsRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*requestsDomain.PermissionsRequest), args.Error(1)
}

func (m *MockRequestRepository) GetOpen(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) (*requestsDomain.PermissionsRequest, error) {
	args := m.Called(ctx, aclKey, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*requestsDomain.PermissionsRequest), args.Error(1)
}

func (m *MockRequestRepository) ListByPrincipal(
	ctx context.Context,
	principal authzDomain.Principal,
	status *requestsDomain.Status,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	args := m.Called(ctx, principal, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*requestsDomain.PermissionsRequest), args.Error(1)
}

func (m *MockRequestRepository) ListByStatus(
	ctx context.Context,
	status requestsDomain.Status,
	root authzDomain.AclKey,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	args := m.Called(ctx, status, root, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*requestsDomain.PermissionsRequest), args.Error(1)
}

var (
	requester = authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "alice"}
	approver  = authzDomain.Principal{Kind: authzDomain.UserPrincipal, ID: "owner"}
)

type requestFixture struct {
	txManager     *MockTxManager
	requestRepo   *MockRequestRepository
	permRepo      *authzMocks.MockPermissionRepository
	authorization *authzMocks.MockAuthorizationUseCase
	audit         *authzMocks.MockAuditRecorder
	uc            RequestUseCase
}

func newRequestFixture() *requestFixture {
	f := &requestFixture{
		txManager:     &MockTxManager{},
		requestRepo:   &MockRequestRepository{},
		permRepo:      &authzMocks.MockPermissionRepository{},
		authorization: &authzMocks.MockAuthorizationUseCase{},
		audit:         &authzMocks.MockAuditRecorder{},
	}
	f.uc = NewRequestUseCase(f.txManager, f.requestRepo, f.permRepo, f.authorization, f.audit)
	return f
}

func TestRequestUseCase_SubmitRequest(t *testing.T) {
	ctx := context.Background()
	aclKey := authzDomain.AclKey{uuid.Must(uuid.NewV7())}

	t.Run("New request is created", func(t *testing.T) {
		f := newRequestFixture()

		f.requestRepo.On("GetOpen", mock.Anything, aclKey, requester).
			Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "permission request not found"))
		f.txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		f.requestRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("RecordAclChange", mock.Anything, requester, EventRequestSubmitted, aclKey, mock.Anything).Return(nil)

		request := &requestsDomain.PermissionsRequest{
			AclKey:      aclKey,
			Permissions: authzDomain.PermissionRead,
			Reason:      "need access for reporting",
		}

		created, err := f.uc.SubmitRequest(ctx, []authzDomain.Principal{requester}, request)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, requestsDomain.StatusSubmitted, created.Status)
		assert.Equal(t, requester, created.Principal)
	})

	t.Run("Resubmission while open updates in place", func(t *testing.T) {
		f := newRequestFixture()

		open := &requestsDomain.PermissionsRequest{
			ID:          uuid.Must(uuid.NewV7()),
			AclKey:      aclKey,
			Principal:   requester,
			Permissions: authzDomain.PermissionRead,
			Status:      requestsDomain.StatusSubmitted,
		}
		f.requestRepo.On("GetOpen", mock.Anything, aclKey, requester).Return(open, nil)
		f.requestRepo.On("Update", mock.Anything, open).Return(nil)

		request := &requestsDomain.PermissionsRequest{
			AclKey:      aclKey,
			Permissions: authzDomain.PermissionRead | authzDomain.PermissionWrite,
		}

		updated, err := f.uc.SubmitRequest(ctx, []authzDomain.Principal{requester}, request)
		require.NoError(t, err)
		assert.Equal(t, open.ID, updated.ID)
		assert.Equal(t, authzDomain.PermissionRead|authzDomain.PermissionWrite, updated.Permissions)
		f.requestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Anonymous callers are rejected", func(t *testing.T) {
		f := newRequestFixture()

		_, err := f.uc.SubmitRequest(ctx, nil, &requestsDomain.PermissionsRequest{AclKey: aclKey})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestRequestUseCase_ResolveRequest(t *testing.T) {
	ctx := context.Background()
	aclKey := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
	actorSeeds := []authzDomain.Principal{approver}

	openRequest := func() *requestsDomain.PermissionsRequest {
		return &requestsDomain.PermissionsRequest{
			ID:          uuid.Must(uuid.NewV7()),
			AclKey:      aclKey,
			Principal:   requester,
			Permissions: authzDomain.PermissionRead,
			Status:      requestsDomain.StatusSubmitted,
		}
	}

	t.Run("Approval grants the requested permissions", func(t *testing.T) {
		f := newRequestFixture()
		request := openRequest()

		f.requestRepo.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		f.authorization.On("CheckPermissions", mock.Anything, actorSeeds, aclKey, authzDomain.PermissionOwner).
			Return(true, nil)
		f.txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		f.requestRepo.On("Update", mock.Anything, request).Return(nil)
		f.permRepo.On("Grant", mock.Anything, aclKey, requester, authzDomain.PermissionRead).Return(nil)
		f.audit.On("RecordAclChange", mock.Anything, approver, EventRequestResolved, aclKey, mock.Anything).Return(nil)

		resolved, err := f.uc.ResolveRequest(ctx, actorSeeds, request.ID, requestsDomain.StatusApproved)
		require.NoError(t, err)
		assert.Equal(t, requestsDomain.StatusApproved, resolved.Status)
		assert.Equal(t, &approver, resolved.ResolvedBy)
		f.permRepo.AssertExpectations(t)
	})

	t.Run("Decline grants nothing", func(t *testing.T) {
		f := newRequestFixture()
		request := openRequest()

		f.requestRepo.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		f.authorization.On("CheckPermissions", mock.Anything, actorSeeds, aclKey, authzDomain.PermissionOwner).
			Return(true, nil)
		f.txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
		f.requestRepo.On("Update", mock.Anything, request).Return(nil)
		f.audit.On("RecordAclChange", mock.Anything, approver, EventRequestResolved, aclKey, mock.Anything).Return(nil)

		resolved, err := f.uc.ResolveRequest(ctx, actorSeeds, request.ID, requestsDomain.StatusDeclined)
		require.NoError(t, err)
		assert.Equal(t, requestsDomain.StatusDeclined, resolved.Status)
		f.permRepo.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Non-owner cannot resolve", func(t *testing.T) {
		f := newRequestFixture()
		request := openRequest()

		f.requestRepo.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		f.authorization.On("CheckPermissions", mock.Anything, actorSeeds, aclKey, authzDomain.PermissionOwner).
			Return(false, nil)

		_, err := f.uc.ResolveRequest(ctx, actorSeeds, request.ID, requestsDomain.StatusApproved)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("Resolved request is immutable", func(t *testing.T) {
		f := newRequestFixture()
		request := openRequest()
		request.Status = requestsDomain.StatusApproved

		f.requestRepo.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		f.authorization.On("CheckPermissions", mock.Anything, actorSeeds, aclKey, authzDomain.PermissionOwner).
			Return(true, nil)

		_, err := f.uc.ResolveRequest(ctx, actorSeeds, request.ID, requestsDomain.StatusDeclined)
		assert.ErrorIs(t, err, requestsDomain.ErrRequestResolved)
	})
}

func TestRequestUseCase_ListOpenForReview(t *testing.T) {
	ctx := context.Background()
	actorSeeds := []authzDomain.Principal{approver}

	ownedKey := authzDomain.AclKey{uuid.Must(uuid.NewV7())}
	otherKey := authzDomain.AclKey{uuid.Must(uuid.NewV7())}

	t.Run("filters a page by ownership in one batch", func(t *testing.T) {
		f := newRequestFixture()

		candidates := []*requestsDomain.PermissionsRequest{
			{ID: uuid.Must(uuid.NewV7()), AclKey: ownedKey, Principal: requester, Status: requestsDomain.StatusSubmitted},
			{ID: uuid.Must(uuid.NewV7()), AclKey: otherKey, Principal: requester, Status: requestsDomain.StatusSubmitted},
		}
		checks := []authzDomain.AccessCheck{
			{AclKey: ownedKey, Permissions: authzDomain.PermissionOwner},
			{AclKey: otherKey, Permissions: authzDomain.PermissionOwner},
		}
		answers := []authzDomain.Authorization{
			{AclKey: ownedKey, Requested: authzDomain.PermissionOwner, Granted: authzDomain.PermissionOwner},
			{AclKey: otherKey, Requested: authzDomain.PermissionOwner, Granted: 0},
		}

		f.requestRepo.On("ListByStatus", mock.Anything, requestsDomain.StatusSubmitted, authzDomain.AclKey(nil), 0, 50).
			Return(candidates, nil)
		f.authorization.On("AccessChecks", mock.Anything, actorSeeds, checks).Return(answers, nil)

		reviewable, err := f.uc.ListOpenForReview(ctx, actorSeeds, nil, 0, 50)
		require.NoError(t, err)
		require.Len(t, reviewable, 1)
		assert.Equal(t, ownedKey, reviewable[0].AclKey)
		f.authorization.AssertNotCalled(t, "CheckPermissions",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("scopes the page to an owned root", func(t *testing.T) {
		f := newRequestFixture()

		childKey := ownedKey.Extend(uuid.Must(uuid.NewV7()))
		candidates := []*requestsDomain.PermissionsRequest{
			{ID: uuid.Must(uuid.NewV7()), AclKey: childKey, Principal: requester, Status: requestsDomain.StatusSubmitted},
		}
		checks := []authzDomain.AccessCheck{
			{AclKey: childKey, Permissions: authzDomain.PermissionOwner},
		}
		answers := []authzDomain.Authorization{
			{AclKey: childKey, Requested: authzDomain.PermissionOwner, Granted: authzDomain.PermissionOwner},
		}

		f.authorization.On("CheckPermissions", mock.Anything, actorSeeds, ownedKey, authzDomain.PermissionOwner).
			Return(true, nil)
		f.requestRepo.On("ListByStatus", mock.Anything, requestsDomain.StatusSubmitted, ownedKey, 0, 50).
			Return(candidates, nil)
		f.authorization.On("AccessChecks", mock.Anything, actorSeeds, checks).Return(answers, nil)

		reviewable, err := f.uc.ListOpenForReview(ctx, actorSeeds, ownedKey, 0, 50)
		require.NoError(t, err)
		require.Len(t, reviewable, 1)
		assert.Equal(t, childKey, reviewable[0].AclKey)
	})

	t.Run("rejects a root the actor does not own", func(t *testing.T) {
		f := newRequestFixture()

		f.authorization.On("CheckPermissions", mock.Anything, actorSeeds, otherKey, authzDomain.PermissionOwner).
			Return(false, nil)

		_, err := f.uc.ListOpenForReview(ctx, actorSeeds, otherKey, 0, 50)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.requestRepo.AssertNotCalled(t, "ListByStatus",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns an empty page without checking ownership", func(t *testing.T) {
		f := newRequestFixture()

		f.requestRepo.On("ListByStatus", mock.Anything, requestsDomain.StatusSubmitted, authzDomain.AclKey(nil), 0, 50).
			Return([]*requestsDomain.PermissionsRequest{}, nil)

		reviewable, err := f.uc.ListOpenForReview(ctx, actorSeeds, nil, 0, 50)
		require.NoError(t, err)
		assert.Empty(t, reviewable)
		f.authorization.AssertNotCalled(t, "AccessChecks",
			mock.Anything, mock.Anything, mock.Anything)
	})
}
