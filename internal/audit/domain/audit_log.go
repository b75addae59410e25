// Package domain defines the audit trail entities for acl and catalog
// mutations.
package domain

import (
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// ErrSignatureInvalid indicates an audit log signature does not match its
// content, meaning the row was tampered with or signed under another secret.
var ErrSignatureInvalid = apperrors.New("audit log signature invalid")

// AuditLog records one acl-affecting mutation: who did it, what object it
// touched, and the event-specific metadata. Signed entries carry an HMAC over
// the canonical content.
type AuditLog struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	Actor     authzDomain.Principal
	EventType string
	AclKey    string
	Metadata  map[string]any
	Signature []byte
	IsSigned  bool
	CreatedAt time.Time
}
