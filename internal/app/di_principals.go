package app

import (
	"fmt"

	principalsHTTP "github.com/gridworks/datahub/internal/principals/http"
	principalsRepository "github.com/gridworks/datahub/internal/principals/repository"
	principalsUseCase "github.com/gridworks/datahub/internal/principals/usecase"
)

// PrincipalRepository returns the principal directory repository based on the
// database driver. It also serves as the membership hierarchy source for
// access evaluation.
func (c *Container) PrincipalRepository() (principalsUseCase.PrincipalRepository, error) {
	var err error
	c.principalRepoInit.Do(func() {
		c.principalRepo, err = c.initPrincipalRepository()
		if err != nil {
			c.initErrors["principalRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["principalRepo"]; exists {
		return nil, storedErr
	}
	return c.principalRepo, nil
}

// PrincipalUseCase returns the principal directory use case.
func (c *Container) PrincipalUseCase() (principalsUseCase.PrincipalUseCase, error) {
	var err error
	c.principalUseCaseInit.Do(func() {
		c.principalUseCase, err = c.initPrincipalUseCase()
		if err != nil {
			c.initErrors["principalUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["principalUseCase"]; exists {
		return nil, storedErr
	}
	return c.principalUseCase, nil
}

// PrincipalHandler returns the HTTP handler for principal management.
func (c *Container) PrincipalHandler() (*principalsHTTP.PrincipalHandler, error) {
	var err error
	c.principalHandlerInit.Do(func() {
		c.principalHandler, err = c.initPrincipalHandler()
		if err != nil {
			c.initErrors["principalHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["principalHandler"]; exists {
		return nil, storedErr
	}
	return c.principalHandler, nil
}

func (c *Container) initPrincipalRepository() (principalsUseCase.PrincipalRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for principal repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return principalsRepository.NewMySQLPrincipalRepository(db), nil
	case "postgres":
		return principalsRepository.NewPostgreSQLPrincipalRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initPrincipalUseCase() (principalsUseCase.PrincipalUseCase, error) {
	principalRepo, err := c.PrincipalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal repository for principal use case: %w", err)
	}

	return principalsUseCase.NewPrincipalUseCase(principalRepo), nil
}

func (c *Container) initPrincipalHandler() (*principalsHTTP.PrincipalHandler, error) {
	principalUseCase, err := c.PrincipalUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal use case for principal handler: %w", err)
	}

	return principalsHTTP.NewPrincipalHandler(principalUseCase, c.Logger()), nil
}
