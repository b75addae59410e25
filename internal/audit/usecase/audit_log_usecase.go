// Package usecase implements the audit trail: signed recording of acl
// mutations and verification of stored entries.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/gridworks/datahub/internal/audit/domain"
	"github.com/gridworks/datahub/internal/audit/service"
	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
	"github.com/gridworks/datahub/internal/httputil"
)

// AuditLogRepository defines audit log persistence operations.
type AuditLogRepository interface {
	Create(ctx context.Context, log *auditDomain.AuditLog) error
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.AuditLog, error)
}

// VerificationResult summarizes a signature verification sweep.
type VerificationResult struct {
	Verified int
	Unsigned int
	Invalid  []uuid.UUID
}

// AuditLogUseCase records and inspects the audit trail. It satisfies the
// authorization layer's AuditRecorder.
type AuditLogUseCase interface {
	RecordAclChange(ctx context.Context, actor authzDomain.Principal, eventType string, aclKey authzDomain.AclKey, metadata map[string]any) error
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.AuditLog, error)
	VerifySignatures(ctx context.Context, offset, limit int) (*VerificationResult, error)
}

type auditLogUseCase struct {
	auditLogRepo  AuditLogRepository
	signer        service.AuditSigner
	signingSecret []byte
	logger        *slog.Logger
}

// NewAuditLogUseCase creates an audit log usecase. An empty signing secret
// disables signing; entries are still recorded but marked unsigned.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	signer service.AuditSigner,
	signingSecret []byte,
	logger *slog.Logger,
) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo:  auditLogRepo,
		signer:        signer,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// RecordAclChange persists one audit entry for an acl-affecting mutation.
// Callers run it inside the mutation's transaction, so the entry commits or
// rolls back with the change it describes.
func (a *auditLogUseCase) RecordAclChange(
	ctx context.Context,
	actor authzDomain.Principal,
	eventType string,
	aclKey authzDomain.AclKey,
	metadata map[string]any,
) error {
	requestID, ok := httputil.RequestIDFromContext(ctx)
	if !ok {
		// Mutations from CLI commands and workers have no request scope.
		requestID = uuid.Must(uuid.NewV7())
	}

	log := &auditDomain.AuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		RequestID: requestID,
		Actor:     actor,
		EventType: eventType,
		AclKey:    aclKey.Index(),
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if len(a.signingSecret) > 0 {
		signature, err := a.signer.Sign(a.signingSecret, log)
		if err != nil {
			return apperrors.Wrap(err, "failed to sign audit log")
		}
		log.Signature = signature
		log.IsSigned = true
	}

	if err := a.auditLogRepo.Create(ctx, log); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// List retrieves audit logs newest first with pagination and optional
// inclusive time bounds. Both bounds are expected in UTC; nil means no bound.
func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	logs, err := a.auditLogRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return logs, nil
}

// VerifySignatures re-checks the HMAC of a page of stored entries and
// reports tampered ids. Unsigned entries are counted but not flagged.
func (a *auditLogUseCase) VerifySignatures(
	ctx context.Context,
	offset, limit int,
) (*VerificationResult, error) {
	if len(a.signingSecret) == 0 {
		return nil, apperrors.New("audit signing secret is not configured")
	}

	logs, err := a.auditLogRepo.List(ctx, offset, limit, nil, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	result := &VerificationResult{}
	for _, log := range logs {
		if !log.IsSigned {
			result.Unsigned++
			continue
		}
		if err := a.signer.Verify(a.signingSecret, log); err != nil {
			if apperrors.Is(err, auditDomain.ErrSignatureInvalid) {
				if a.logger != nil {
					a.logger.Warn("audit log signature mismatch",
						slog.String("audit_log_id", log.ID.String()),
					)
				}
				result.Invalid = append(result.Invalid, log.ID)
				continue
			}
			return nil, err
		}
		result.Verified++
	}

	return result, nil
}
