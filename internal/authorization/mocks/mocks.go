// Package mocks provides mock implementations for testing the authorization
// usecases and HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
)

// MockPermissionRepository is a mock implementation of PermissionRepository.
type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) Grant(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	args := m.Called(ctx, aclKey, principal, perms)
	return args.Error(0)
}

func (m *MockPermissionRepository) Revoke(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	args := m.Called(ctx, aclKey, principal, perms)
	return args.Error(0)
}

func (m *MockPermissionRepository) Replace(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
	perms authzDomain.PermissionSet,
) error {
	args := m.Called(ctx, aclKey, principal, perms)
	return args.Error(0)
}

func (m *MockPermissionRepository) Get(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principal authzDomain.Principal,
) (authzDomain.PermissionSet, error) {
	args := m.Called(ctx, aclKey, principal)
	return args.Get(0).(authzDomain.PermissionSet), args.Error(1)
}

func (m *MockPermissionRepository) GetForPrincipals(
	ctx context.Context,
	aclKey authzDomain.AclKey,
	principals []authzDomain.Principal,
) (authzDomain.PermissionSet, error) {
	args := m.Called(ctx, aclKey, principals)
	return args.Get(0).(authzDomain.PermissionSet), args.Error(1)
}

func (m *MockPermissionRepository) GetAcl(
	ctx context.Context,
	aclKey authzDomain.AclKey,
) (*authzDomain.Acl, error) {
	args := m.Called(ctx, aclKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.Acl), args.Error(1)
}

func (m *MockPermissionRepository) DeleteByPrefix(
	ctx context.Context,
	prefix authzDomain.AclKey,
) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

func (m *MockPermissionRepository) ListObjectPermissions(
	ctx context.Context,
	objectType authzDomain.SecurableObjectType,
	principals []authzDomain.Principal,
	offset, limit int,
) ([]authzDomain.ObjectPermissions, error) {
	args := m.Called(ctx, objectType, principals, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.ObjectPermissions), args.Error(1)
}

// MockPrincipalHierarchy is a mock implementation of PrincipalHierarchy.
type MockPrincipalHierarchy struct {
	mock.Mock
}

func (m *MockPrincipalHierarchy) ParentsOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.Principal), args.Error(1)
}

func (m *MockPrincipalHierarchy) ChildrenOf(
	ctx context.Context,
	principal authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.Principal), args.Error(1)
}

// MockNotificationSink is a mock implementation of NotificationSink.
type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) AclUpdated(ctx context.Context, data authzDomain.AclData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockNotificationSink) PermissionsDestroyed(ctx context.Context, aclKey authzDomain.AclKey) error {
	args := m.Called(ctx, aclKey)
	return args.Error(0)
}

// MockAuditRecorder is a mock implementation of AuditRecorder.
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) RecordAclChange(
	ctx context.Context,
	actor authzDomain.Principal,
	eventType string,
	aclKey authzDomain.AclKey,
	metadata map[string]any,
) error {
	args := m.Called(ctx, actor, eventType, aclKey, metadata)
	return args.Error(0)
}

// MockAuthorizationUseCase is a mock implementation of AuthorizationUseCase.
type MockAuthorizationUseCase struct {
	mock.Mock
}

func (m *MockAuthorizationUseCase) ExpandPrincipals(
	ctx context.Context,
	seeds []authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	args := m.Called(ctx, seeds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.Principal), args.Error(1)
}

func (m *MockAuthorizationUseCase) CheckPermissions(
	ctx context.Context,
	seeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
	required authzDomain.PermissionSet,
) (bool, error) {
	args := m.Called(ctx, seeds, aclKey, required)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizationUseCase) GetObjectPermissions(
	ctx context.Context,
	seeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (authzDomain.PermissionSet, error) {
	args := m.Called(ctx, seeds, aclKey)
	return args.Get(0).(authzDomain.PermissionSet), args.Error(1)
}

func (m *MockAuthorizationUseCase) AccessChecks(
	ctx context.Context,
	seeds []authzDomain.Principal,
	checks []authzDomain.AccessCheck,
) ([]authzDomain.Authorization, error) {
	args := m.Called(ctx, seeds, checks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.Authorization), args.Error(1)
}

func (m *MockAuthorizationUseCase) ListAuthorizedObjects(
	ctx context.Context,
	seeds []authzDomain.Principal,
	objectType authzDomain.SecurableObjectType,
	required authzDomain.PermissionSet,
	offset, limit int,
) ([]authzDomain.AclKey, error) {
	args := m.Called(ctx, seeds, objectType, required, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.AclKey), args.Error(1)
}

// MockAclUseCase is a mock implementation of AclUseCase.
type MockAclUseCase struct {
	mock.Mock
}

func (m *MockAclUseCase) GetAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (*authzDomain.Acl, error) {
	args := m.Called(ctx, actorSeeds, aclKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.Acl), args.Error(1)
}

func (m *MockAclUseCase) UpdateAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	data authzDomain.AclData,
) error {
	args := m.Called(ctx, actorSeeds, data)
	return args.Error(0)
}

func (m *MockAclUseCase) UpdateAcls(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	batch []authzDomain.AclData,
) ([]authzDomain.AclUpdateResult, error) {
	args := m.Called(ctx, actorSeeds, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.AclUpdateResult), args.Error(1)
}

func (m *MockAclUseCase) DeleteAllPermissions(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) error {
	args := m.Called(ctx, actorSeeds, aclKey)
	return args.Error(0)
}

// MockExplanationUseCase is a mock implementation of ExplanationUseCase.
type MockExplanationUseCase struct {
	mock.Mock
}

func (m *MockExplanationUseCase) ExplainAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) ([]authzDomain.AceExplanation, error) {
	args := m.Called(ctx, actorSeeds, aclKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]authzDomain.AceExplanation), args.Error(1)
}
