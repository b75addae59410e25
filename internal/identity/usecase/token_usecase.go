package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gridworks/datahub/internal/config"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
	identityService "github.com/gridworks/datahub/internal/identity/service"
)

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	config        *config.Config
	accountRepo   AccountRepository
	tokenRepo     TokenRepository
	secretService identityService.SecretService
	tokenService  identityService.TokenService
}

// NewTokenUseCase creates a token usecase.
func NewTokenUseCase(
	cfg *config.Config,
	accountRepo AccountRepository,
	tokenRepo TokenRepository,
	secretService identityService.SecretService,
	tokenService identityService.TokenService,
) TokenUseCase {
	return &tokenUseCase{
		config:        cfg,
		accountRepo:   accountRepo,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		tokenService:  tokenService,
	}
}

// Issue authenticates an account and generates a new token.
//
// Unknown accounts and wrong secrets fail with the same error to prevent
// account enumeration. Each failed attempt increments a counter; reaching the
// configured maximum locks the account for the lockout window. A successful
// issue resets the counter.
func (t *tokenUseCase) Issue(
	ctx context.Context,
	input *identityDomain.IssueTokenInput,
) (*identityDomain.IssueTokenOutput, error) {
	now := time.Now().UTC()

	account, err := t.accountRepo.GetByName(ctx, input.AccountName)
	if err != nil {
		if errors.Is(err, identityDomain.ErrAccountNotFound) {
			return nil, identityDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, identityDomain.ErrAccountInactive
	}

	if account.IsLocked(now) {
		return nil, identityDomain.ErrAccountLocked
	}

	if !t.secretService.CompareSecret(input.Secret, account.Secret) {
		account.FailedAttempts++
		if account.FailedAttempts >= t.config.LockoutMaxAttempts {
			lockedUntil := now.Add(t.config.LockoutDuration)
			account.LockedUntil = &lockedUntil
			account.FailedAttempts = 0
		}
		if err := t.accountRepo.UpdateLockState(ctx, account); err != nil {
			return nil, err
		}
		return nil, identityDomain.ErrInvalidCredentials
	}

	if account.FailedAttempts > 0 || account.LockedUntil != nil {
		account.FailedAttempts = 0
		account.LockedUntil = nil
		if err := t.accountRepo.UpdateLockState(ctx, account); err != nil {
			return nil, err
		}
	}

	plainToken, tokenHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(t.config.AuthTokenExpiration)
	token := &identityDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		AccountID: account.ID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &identityDomain.IssueTokenOutput{
		PlainToken: plainToken,
		ExpiresAt:  expiresAt,
	}, nil
}

// Authenticate validates a token hash and returns the owning account.
func (t *tokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*identityDomain.Account, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, identityDomain.ErrTokenNotFound) {
			return nil, identityDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if token.ExpiresAt.Before(now) {
		return nil, identityDomain.ErrInvalidCredentials
	}
	if token.RevokedAt != nil {
		return nil, identityDomain.ErrInvalidCredentials
	}

	account, err := t.accountRepo.GetByID(ctx, token.AccountID.String())
	if err != nil {
		if errors.Is(err, identityDomain.ErrAccountNotFound) {
			return nil, identityDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.IsActive {
		return nil, identityDomain.ErrAccountInactive
	}

	return account, nil
}

// CleanExpired removes tokens that expired before now.
func (t *tokenUseCase) CleanExpired(ctx context.Context) (int64, error) {
	return t.tokenRepo.DeleteExpired(ctx, time.Now().UTC())
}
