package app

import (
	"fmt"

	auditHTTP "github.com/gridworks/datahub/internal/audit/http"
	auditRepository "github.com/gridworks/datahub/internal/audit/repository"
	auditService "github.com/gridworks/datahub/internal/audit/service"
	auditUseCase "github.com/gridworks/datahub/internal/audit/usecase"
)

// AuditSigner returns the audit entry signing service.
func (c *Container) AuditSigner() auditService.AuditSigner {
	c.auditSignerInit.Do(func() {
		c.auditSigner = auditService.NewAuditSigner()
	})
	return c.auditSigner
}

// AuditLogRepository returns the audit log repository based on the database
// driver.
func (c *Container) AuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	var err error
	c.auditLogRepoInit.Do(func() {
		c.auditLogRepo, err = c.initAuditLogRepository()
		if err != nil {
			c.initErrors["auditLogRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogRepo"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepo, nil
}

// AuditLogUseCase returns the audit log use case. It also serves as the
// audit recorder for acl-affecting mutations.
func (c *Container) AuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	var err error
	c.auditLogUseCaseInit.Do(func() {
		c.auditLogUseCase, err = c.initAuditLogUseCase()
		if err != nil {
			c.initErrors["auditLogUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditLogUseCase, nil
}

// AuditLogHandler returns the HTTP handler for the audit trail.
func (c *Container) AuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	var err error
	c.auditLogHandlerInit.Do(func() {
		c.auditLogHandler, err = c.initAuditLogHandler()
		if err != nil {
			c.initErrors["auditLogHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditLogHandler"]; exists {
		return nil, storedErr
	}
	return c.auditLogHandler, nil
}

func (c *Container) initAuditLogRepository() (auditUseCase.AuditLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLAuditLogRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuditLogUseCase() (auditUseCase.AuditLogUseCase, error) {
	auditLogRepo, err := c.AuditLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log repository for audit log use case: %w", err)
	}

	return auditUseCase.NewAuditLogUseCase(
		auditLogRepo,
		c.AuditSigner(),
		[]byte(c.config.AuditSigningSecret),
		c.Logger(),
	), nil
}

func (c *Container) initAuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for audit log handler: %w", err)
	}

	return auditHTTP.NewAuditLogHandler(auditLogUseCase, c.Logger()), nil
}
