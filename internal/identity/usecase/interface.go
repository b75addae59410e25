// Package usecase implements authentication business logic: account
// management, token issuance with lockout, and token validation.
package usecase

import (
	"context"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// AccountRepository defines persistence operations for service accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *identityDomain.Account) error
	GetByName(ctx context.Context, name string) (*identityDomain.Account, error)
	GetByID(ctx context.Context, id string) (*identityDomain.Account, error)
	UpdateLockState(ctx context.Context, account *identityDomain.Account) error
}

// TokenRepository defines persistence operations for tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *identityDomain.Token) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*identityDomain.Token, error)
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenUseCase issues and validates bearer tokens.
type TokenUseCase interface {
	// Issue authenticates an account by name and secret and returns a fresh
	// token. Repeated failures lock the account for a configured window.
	Issue(ctx context.Context, input *identityDomain.IssueTokenInput) (*identityDomain.IssueTokenOutput, error)
	// Authenticate resolves a token hash to its account. Expired, revoked and
	// unknown tokens all fail with the same credential error.
	Authenticate(ctx context.Context, tokenHash string) (*identityDomain.Account, error)
	// CleanExpired removes tokens that expired before now.
	CleanExpired(ctx context.Context) (int64, error)
}

// AccountUseCase manages service accounts.
type AccountUseCase interface {
	// CreateAccount registers an account bound to a principal and returns the
	// generated plain secret, shown exactly once.
	CreateAccount(ctx context.Context, name string, principal authzDomain.Principal) (*identityDomain.Account, string, error)
}
