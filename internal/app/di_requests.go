package app

import (
	"fmt"

	requestsHTTP "github.com/gridworks/datahub/internal/requests/http"
	requestsRepository "github.com/gridworks/datahub/internal/requests/repository"
	requestsUseCase "github.com/gridworks/datahub/internal/requests/usecase"
)

// RequestRepository returns the permission request repository based on the
// database driver.
func (c *Container) RequestRepository() (requestsUseCase.RequestRepository, error) {
	var err error
	c.requestRepoInit.Do(func() {
		c.requestRepo, err = c.initRequestRepository()
		if err != nil {
			c.initErrors["requestRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["requestRepo"]; exists {
		return nil, storedErr
	}
	return c.requestRepo, nil
}

// RequestUseCase returns the permission request workflow use case.
func (c *Container) RequestUseCase() (requestsUseCase.RequestUseCase, error) {
	var err error
	c.requestUseCaseInit.Do(func() {
		c.requestUseCase, err = c.initRequestUseCase()
		if err != nil {
			c.initErrors["requestUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["requestUseCase"]; exists {
		return nil, storedErr
	}
	return c.requestUseCase, nil
}

// RequestHandler returns the HTTP handler for permission requests.
func (c *Container) RequestHandler() (*requestsHTTP.RequestHandler, error) {
	var err error
	c.requestHandlerInit.Do(func() {
		c.requestHandler, err = c.initRequestHandler()
		if err != nil {
			c.initErrors["requestHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["requestHandler"]; exists {
		return nil, storedErr
	}
	return c.requestHandler, nil
}

func (c *Container) initRequestRepository() (requestsUseCase.RequestRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for request repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return requestsRepository.NewMySQLRequestRepository(db), nil
	case "postgres":
		return requestsRepository.NewPostgreSQLRequestRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRequestUseCase() (requestsUseCase.RequestUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for request use case: %w", err)
	}

	requestRepo, err := c.RequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get request repository for request use case: %w", err)
	}

	permissionRepo, err := c.PermissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission repository for request use case: %w", err)
	}

	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for request use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for request use case: %w", err)
	}

	return requestsUseCase.NewRequestUseCase(
		txManager,
		requestRepo,
		permissionRepo,
		authorizationUseCase,
		auditLogUseCase,
	), nil
}

func (c *Container) initRequestHandler() (*requestsHTTP.RequestHandler, error) {
	requestUseCase, err := c.RequestUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get request use case for request handler: %w", err)
	}

	return requestsHTTP.NewRequestHandler(requestUseCase, c.Logger()), nil
}
