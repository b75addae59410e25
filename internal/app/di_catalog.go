package app

import (
	"fmt"

	catalogHTTP "github.com/gridworks/datahub/internal/catalog/http"
	catalogRepository "github.com/gridworks/datahub/internal/catalog/repository"
	catalogUseCase "github.com/gridworks/datahub/internal/catalog/usecase"
)

// ObjectRepository returns the securable object repository based on the
// database driver.
func (c *Container) ObjectRepository() (catalogUseCase.ObjectRepository, error) {
	var err error
	c.objectRepoInit.Do(func() {
		c.objectRepo, err = c.initObjectRepository()
		if err != nil {
			c.initErrors["objectRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["objectRepo"]; exists {
		return nil, storedErr
	}
	return c.objectRepo, nil
}

// CatalogUseCase returns the securable object catalog use case.
func (c *Container) CatalogUseCase() (catalogUseCase.CatalogUseCase, error) {
	var err error
	c.catalogUseCaseInit.Do(func() {
		c.catalogUseCase, err = c.initCatalogUseCase()
		if err != nil {
			c.initErrors["catalogUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["catalogUseCase"]; exists {
		return nil, storedErr
	}
	return c.catalogUseCase, nil
}

// CatalogHandler returns the HTTP handler for the object catalog.
func (c *Container) CatalogHandler() (*catalogHTTP.CatalogHandler, error) {
	var err error
	c.catalogHandlerInit.Do(func() {
		c.catalogHandler, err = c.initCatalogHandler()
		if err != nil {
			c.initErrors["catalogHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["catalogHandler"]; exists {
		return nil, storedErr
	}
	return c.catalogHandler, nil
}

func (c *Container) initObjectRepository() (catalogUseCase.ObjectRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for object repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return catalogRepository.NewMySQLObjectRepository(db), nil
	case "postgres":
		return catalogRepository.NewPostgreSQLObjectRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initCatalogUseCase() (catalogUseCase.CatalogUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for catalog use case: %w", err)
	}

	objectRepo, err := c.ObjectRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get object repository for catalog use case: %w", err)
	}

	permissionRepo, err := c.PermissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission repository for catalog use case: %w", err)
	}

	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for catalog use case: %w", err)
	}

	notificationSink, err := c.NotificationSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification sink for catalog use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for catalog use case: %w", err)
	}

	return catalogUseCase.NewCatalogUseCase(
		txManager,
		objectRepo,
		permissionRepo,
		authorizationUseCase,
		c.TypeRegistry(),
		notificationSink,
		auditLogUseCase,
	), nil
}

func (c *Container) initCatalogHandler() (*catalogHTTP.CatalogHandler, error) {
	catalogUC, err := c.CatalogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog use case for catalog handler: %w", err)
	}

	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for catalog handler: %w", err)
	}

	return catalogHTTP.NewCatalogHandler(catalogUC, authorizationUseCase, c.Logger()), nil
}
