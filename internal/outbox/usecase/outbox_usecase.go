// Package usecase implements the outbox worker loop and the notification sink
// the authorization core writes through.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	"github.com/gridworks/datahub/internal/outbox/domain"
)

// Config holds outbox worker configuration
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
}

// EventProcessor defines the interface for delivering events downstream
type EventProcessor interface {
	Process(ctx context.Context, event *domain.OutboxEvent) error
}

// UseCase defines the interface for the outbox worker
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
}

// OutboxUseCase drains pending events in batches on a fixed interval
type OutboxUseCase struct {
	config         Config
	txManager      database.TxManager
	outboxRepo     OutboxEventRepository
	eventProcessor EventProcessor
	logger         *slog.Logger
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	eventProcessor EventProcessor,
	logger *slog.Logger,
) *OutboxUseCase {
	return &OutboxUseCase{
		config:         config,
		txManager:      txManager,
		outboxRepo:     outboxRepo,
		eventProcessor: eventProcessor,
		logger:         logger,
	}
}

// Start runs the processing loop until the context is cancelled
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox event processor",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox event processor")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process events", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessEvents drains one batch of pending events in a transaction. Pending
// rows are locked with SKIP LOCKED so concurrent workers never double-deliver.
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Info("processing events", slog.Int("count", len(events)))
		}

		for _, event := range events {
			if err := uc.eventProcessor.Process(ctx, event); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process event",
						slog.String("event_id", event.ID.String()),
						slog.String("event_type", event.EventType),
						slog.Any("error", err),
					)
				}

				event.Retries++
				errorMsg := err.Error()
				event.LastError = &errorMsg
				if event.Retries >= uc.config.MaxRetries {
					event.Status = domain.OutboxEventStatusFailed
				}

				if err := uc.outboxRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			now := time.Now()
			event.Status = domain.OutboxEventStatusProcessed
			event.ProcessedAt = &now

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		return nil
	})
}

// LoggingEventProcessor delivers events to the structured log. Deployments
// that fan out to a message broker swap this for a publisher.
type LoggingEventProcessor struct {
	logger *slog.Logger
}

// NewLoggingEventProcessor creates a new LoggingEventProcessor
func NewLoggingEventProcessor(logger *slog.Logger) *LoggingEventProcessor {
	return &LoggingEventProcessor{logger: logger}
}

// Process handles one event
func (p *LoggingEventProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
		return err
	}

	switch event.EventType {
	case domain.EventTypeAclUpdated, domain.EventTypePermissionsDestroyed:
		if p.logger != nil {
			p.logger.Info("acl change event",
				slog.String("event_type", event.EventType),
				slog.Any("payload", payload),
			)
		}
	default:
		if p.logger != nil {
			p.logger.Warn("unknown event type", slog.String("event_type", event.EventType))
		}
	}

	return nil
}

// notificationSink turns acl change notifications into outbox rows. It runs
// inside the caller's transaction, so a rolled back mutation never leaves a
// stray event behind.
type notificationSink struct {
	outboxRepo OutboxEventRepository
}

// NewNotificationSink creates a sink writing to the outbox.
func NewNotificationSink(outboxRepo OutboxEventRepository) *notificationSink {
	return &notificationSink{outboxRepo: outboxRepo}
}

// aclUpdatedPayload is the wire form of an acl mutation notification.
type aclUpdatedPayload struct {
	AclKey string            `json:"aclKey"`
	Action string            `json:"action"`
	Aces   []authzDomain.Ace `json:"aces"`
}

// AclUpdated enqueues an acl mutation event.
func (s *notificationSink) AclUpdated(ctx context.Context, data authzDomain.AclData) error {
	payload, err := json.Marshal(aclUpdatedPayload{
		AclKey: data.Acl.AclKey.Index(),
		Action: string(data.Action),
		Aces:   data.Acl.Aces,
	})
	if err != nil {
		return err
	}

	event, err := domain.NewOutboxEvent(domain.EventTypeAclUpdated, string(payload))
	if err != nil {
		return err
	}
	return s.outboxRepo.Create(ctx, event)
}

// PermissionsDestroyed enqueues a cascading delete event.
func (s *notificationSink) PermissionsDestroyed(ctx context.Context, aclKey authzDomain.AclKey) error {
	payload, err := json.Marshal(map[string]string{"aclKey": aclKey.Index()})
	if err != nil {
		return err
	}

	event, err := domain.NewOutboxEvent(domain.EventTypePermissionsDestroyed, string(payload))
	if err != nil {
		return err
	}
	return s.outboxRepo.Create(ctx, event)
}
