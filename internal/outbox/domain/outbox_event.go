// Package domain defines the transactional outbox entities used to fan acl
// change notifications out to downstream consumers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventStatus represents the status of an outbox event
type OutboxEventStatus string

const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusProcessed OutboxEventStatus = "processed"
	OutboxEventStatusFailed    OutboxEventStatus = "failed"
)

// Notification event types emitted by the authorization core.
const (
	EventTypeAclUpdated           = "acl.updated"
	EventTypePermissionsDestroyed = "permissions.destroyed"
)

// OutboxEvent is one pending notification, written in the same transaction
// as the acl mutation it describes.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      OutboxEventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEvent builds a pending event with a fresh time-ordered id.
func NewOutboxEvent(eventType, payload string) (*OutboxEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:        id,
		EventType: eventType,
		Payload:   payload,
		Status:    OutboxEventStatusPending,
	}, nil
}
