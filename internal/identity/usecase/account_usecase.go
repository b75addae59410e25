package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
	identityService "github.com/gridworks/datahub/internal/identity/service"
)

// accountUseCase implements AccountUseCase.
type accountUseCase struct {
	accountRepo   AccountRepository
	secretService identityService.SecretService
}

// NewAccountUseCase creates an account usecase.
func NewAccountUseCase(
	accountRepo AccountRepository,
	secretService identityService.SecretService,
) AccountUseCase {
	return &accountUseCase{
		accountRepo:   accountRepo,
		secretService: secretService,
	}
}

// CreateAccount registers an account bound to a principal. The generated
// plain secret is returned once and never stored.
func (a *accountUseCase) CreateAccount(
	ctx context.Context,
	name string,
	principal authzDomain.Principal,
) (*identityDomain.Account, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", apperrors.Wrap(apperrors.ErrInvalidInput, "account name must not be empty")
	}
	if err := principal.Validate(); err != nil {
		return nil, "", err
	}

	plainSecret, hashedSecret, err := a.secretService.GenerateSecret()
	if err != nil {
		return nil, "", err
	}

	account := &identityDomain.Account{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Secret:    hashedSecret,
		Principal: principal,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.accountRepo.Create(ctx, account); err != nil {
		return nil, "", err
	}

	return account, plainSecret, nil
}
