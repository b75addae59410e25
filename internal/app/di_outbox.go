package app

import (
	"fmt"

	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	outboxRepository "github.com/gridworks/datahub/internal/outbox/repository"
	outboxUsecase "github.com/gridworks/datahub/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository based on the database
// driver.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// NotificationSink returns the sink turning acl change notifications into
// outbox rows.
func (c *Container) NotificationSink() (authzUseCase.NotificationSink, error) {
	var err error
	c.notificationSinkInit.Do(func() {
		var outboxRepo outboxUsecase.OutboxEventRepository
		outboxRepo, err = c.OutboxRepository()
		if err != nil {
			c.initErrors["notificationSink"] = err
			return
		}
		c.notificationSink = outboxUsecase.NewNotificationSink(outboxRepo)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["notificationSink"]; exists {
		return nil, storedErr
	}
	return c.notificationSink, nil
}

// OutboxUseCase returns the outbox worker use case.
func (c *Container) OutboxUseCase() (outboxUsecase.UseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

func (c *Container) initOutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initOutboxUseCase() (outboxUsecase.UseCase, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	useCaseConfig := outboxUsecase.Config{
		Interval:   c.config.WorkerInterval,
		BatchSize:  c.config.WorkerBatchSize,
		MaxRetries: c.config.WorkerMaxRetries,
	}

	eventProcessor := outboxUsecase.NewLoggingEventProcessor(logger)
	return outboxUsecase.NewOutboxUseCase(useCaseConfig, txManager, outboxRepo, eventProcessor, logger), nil
}
