// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// MockTokenUseCase is a mock implementation of TokenUseCase for testing.
type MockTokenUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of TokenUseCase.
func (m *MockTokenUseCase) Issue(
	ctx context.Context,
	input *identityDomain.IssueTokenInput,
) (*identityDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.IssueTokenOutput), args.Error(1)
}

// Authenticate mocks the Authenticate method of TokenUseCase.
func (m *MockTokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*identityDomain.Account, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Account), args.Error(1)
}

// CleanExpired mocks the CleanExpired method of TokenUseCase.
func (m *MockTokenUseCase) CleanExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
