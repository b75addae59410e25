package app

import (
	"fmt"

	identityHTTP "github.com/gridworks/datahub/internal/identity/http"
	identityRepository "github.com/gridworks/datahub/internal/identity/repository"
	identityService "github.com/gridworks/datahub/internal/identity/service"
	identityUseCase "github.com/gridworks/datahub/internal/identity/usecase"
)

// SecretService returns the secret generation and verification service.
func (c *Container) SecretService() identityService.SecretService {
	c.secretServiceInit.Do(func() {
		c.secretService = identityService.NewSecretService()
	})
	return c.secretService
}

// TokenService returns the token generation and hashing service.
func (c *Container) TokenService() identityService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = identityService.NewTokenService()
	})
	return c.tokenService
}

// AccountRepository returns the service account repository based on the
// database driver.
func (c *Container) AccountRepository() (identityUseCase.AccountRepository, error) {
	var err error
	c.accountRepoInit.Do(func() {
		c.accountRepo, err = c.initAccountRepository()
		if err != nil {
			c.initErrors["accountRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountRepo"]; exists {
		return nil, storedErr
	}
	return c.accountRepo, nil
}

// TokenRepository returns the token repository based on the database driver.
func (c *Container) TokenRepository() (identityUseCase.TokenRepository, error) {
	var err error
	c.tokenRepoInit.Do(func() {
		c.tokenRepo, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepo"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// AccountUseCase returns the service account use case.
func (c *Container) AccountUseCase() (identityUseCase.AccountUseCase, error) {
	var err error
	c.accountUseCaseInit.Do(func() {
		c.accountUseCase, err = c.initAccountUseCase()
		if err != nil {
			c.initErrors["accountUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["accountUseCase"]; exists {
		return nil, storedErr
	}
	return c.accountUseCase, nil
}

// TokenUseCase returns the token issuance and validation use case.
func (c *Container) TokenUseCase() (identityUseCase.TokenUseCase, error) {
	var err error
	c.tokenUseCaseInit.Do(func() {
		c.tokenUseCase, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUseCase, nil
}

// TokenHandler returns the HTTP handler for token issuance.
func (c *Container) TokenHandler() (*identityHTTP.TokenHandler, error) {
	var err error
	c.tokenHandlerInit.Do(func() {
		c.tokenHandler, err = c.initTokenHandler()
		if err != nil {
			c.initErrors["tokenHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenHandler, nil
}

func (c *Container) initAccountRepository() (identityUseCase.AccountRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for account repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return identityRepository.NewMySQLAccountRepository(db), nil
	case "postgres":
		return identityRepository.NewPostgreSQLAccountRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initTokenRepository() (identityUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return identityRepository.NewMySQLTokenRepository(db), nil
	case "postgres":
		return identityRepository.NewPostgreSQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAccountUseCase() (identityUseCase.AccountUseCase, error) {
	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for account use case: %w", err)
	}

	return identityUseCase.NewAccountUseCase(accountRepo, c.SecretService()), nil
}

func (c *Container) initTokenUseCase() (identityUseCase.TokenUseCase, error) {
	accountRepo, err := c.AccountRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get account repository for token use case: %w", err)
	}

	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	return identityUseCase.NewTokenUseCase(
		c.config,
		accountRepo,
		tokenRepo,
		c.SecretService(),
		c.TokenService(),
	), nil
}

func (c *Container) initTokenHandler() (*identityHTTP.TokenHandler, error) {
	tokenUseCase, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for token handler: %w", err)
	}

	return identityHTTP.NewTokenHandler(tokenUseCase, c.Logger()), nil
}
