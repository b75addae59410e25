package app

import (
	"fmt"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	authzHTTP "github.com/gridworks/datahub/internal/authorization/http"
	authzRepository "github.com/gridworks/datahub/internal/authorization/repository"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
)

// TypeRegistry returns the securable object type registry. Depth one keys are
// entity sets, depth two keys are properties within an entity set.
func (c *Container) TypeRegistry() *catalogDomain.TypeRegistry {
	c.typeRegistryInit.Do(func() {
		registry := catalogDomain.NewTypeRegistry()
		registry.Register(1, authzDomain.ObjectTypeEntitySet)
		registry.Register(2, authzDomain.ObjectTypePropertyInEntitySet)
		c.typeRegistry = registry
	})
	return c.typeRegistry
}

// PermissionRepository returns the ace repository based on the database
// driver.
func (c *Container) PermissionRepository() (authzUseCase.PermissionRepository, error) {
	var err error
	c.permissionRepoInit.Do(func() {
		c.permissionRepo, err = c.initPermissionRepository()
		if err != nil {
			c.initErrors["permissionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["permissionRepo"]; exists {
		return nil, storedErr
	}
	return c.permissionRepo, nil
}

// AuthorizationUseCase returns the access evaluator, instrumented with
// business metrics.
func (c *Container) AuthorizationUseCase() (authzUseCase.AuthorizationUseCase, error) {
	var err error
	c.authorizationUseCaseInit.Do(func() {
		c.authorizationUseCase, err = c.initAuthorizationUseCase()
		if err != nil {
			c.initErrors["authorizationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorizationUseCase"]; exists {
		return nil, storedErr
	}
	return c.authorizationUseCase, nil
}

// AclUseCase returns the acl management use case, instrumented with business
// metrics.
func (c *Container) AclUseCase() (authzUseCase.AclUseCase, error) {
	var err error
	c.aclUseCaseInit.Do(func() {
		c.aclUseCase, err = c.initAclUseCase()
		if err != nil {
			c.initErrors["aclUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["aclUseCase"]; exists {
		return nil, storedErr
	}
	return c.aclUseCase, nil
}

// ExplanationUseCase returns the grant explanation use case.
func (c *Container) ExplanationUseCase() (authzUseCase.ExplanationUseCase, error) {
	var err error
	c.explanationUseCaseInit.Do(func() {
		c.explanationUseCase, err = c.initExplanationUseCase()
		if err != nil {
			c.initErrors["explanationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["explanationUseCase"]; exists {
		return nil, storedErr
	}
	return c.explanationUseCase, nil
}

// AuthorizationHandler returns the HTTP handler for access checks.
func (c *Container) AuthorizationHandler() (*authzHTTP.AuthorizationHandler, error) {
	var err error
	c.authorizationHandlerInit.Do(func() {
		c.authorizationHandler, err = c.initAuthorizationHandler()
		if err != nil {
			c.initErrors["authorizationHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authorizationHandler"]; exists {
		return nil, storedErr
	}
	return c.authorizationHandler, nil
}

// AclHandler returns the HTTP handler for acl management.
func (c *Container) AclHandler() (*authzHTTP.AclHandler, error) {
	var err error
	c.aclHandlerInit.Do(func() {
		c.aclHandler, err = c.initAclHandler()
		if err != nil {
			c.initErrors["aclHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["aclHandler"]; exists {
		return nil, storedErr
	}
	return c.aclHandler, nil
}

func (c *Container) initPermissionRepository() (authzUseCase.PermissionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for permission repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return authzRepository.NewMySQLPermissionRepository(db), nil
	case "postgres":
		return authzRepository.NewPostgreSQLPermissionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuthorizationUseCase() (authzUseCase.AuthorizationUseCase, error) {
	permissionRepo, err := c.PermissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission repository for authorization use case: %w", err)
	}

	principalRepo, err := c.PrincipalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal repository for authorization use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for authorization use case: %w", err)
	}

	useCase := authzUseCase.NewAuthorizationUseCase(
		permissionRepo,
		principalRepo,
		c.config.ClosureMaxDepth,
		c.config.ClosureFanoutLimit,
	)

	return authzUseCase.NewAuthorizationUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initAclUseCase() (authzUseCase.AclUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for acl use case: %w", err)
	}

	permissionRepo, err := c.PermissionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get permission repository for acl use case: %w", err)
	}

	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for acl use case: %w", err)
	}

	notificationSink, err := c.NotificationSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get notification sink for acl use case: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for acl use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for acl use case: %w", err)
	}

	useCase := authzUseCase.NewAclUseCase(
		txManager,
		permissionRepo,
		authorizationUseCase,
		notificationSink,
		auditLogUseCase,
		c.Logger(),
	)

	return authzUseCase.NewAclUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initExplanationUseCase() (authzUseCase.ExplanationUseCase, error) {
	principalRepo, err := c.PrincipalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal repository for explanation use case: %w", err)
	}

	aclUseCase, err := c.AclUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get acl use case for explanation use case: %w", err)
	}

	return authzUseCase.NewExplanationUseCase(
		principalRepo,
		aclUseCase,
		c.config.ClosureMaxDepth,
	), nil
}

func (c *Container) initAuthorizationHandler() (*authzHTTP.AuthorizationHandler, error) {
	authorizationUseCase, err := c.AuthorizationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization use case for authorization handler: %w", err)
	}

	return authzHTTP.NewAuthorizationHandler(authorizationUseCase, c.Logger()), nil
}

func (c *Container) initAclHandler() (*authzHTTP.AclHandler, error) {
	aclUseCase, err := c.AclUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get acl use case for acl handler: %w", err)
	}

	explanationUseCase, err := c.ExplanationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get explanation use case for acl handler: %w", err)
	}

	return authzHTTP.NewAclHandler(aclUseCase, explanationUseCase, c.Logger()), nil
}
