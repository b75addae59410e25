package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
)

// Audit event types for the request workflow.
const (
	EventRequestSubmitted = "request.submitted"
	EventRequestResolved  = "request.resolved"
)

// requestUseCase implements RequestUseCase.
type requestUseCase struct {
	txManager      database.TxManager
	requestRepo    RequestRepository
	permissionRepo authzUseCase.PermissionRepository
	authorization  authzUseCase.AuthorizationUseCase
	audit          authzUseCase.AuditRecorder
}

// NewRequestUseCase creates a permission request workflow usecase.
func NewRequestUseCase(
	txManager database.TxManager,
	requestRepo RequestRepository,
	permissionRepo authzUseCase.PermissionRepository,
	authorization authzUseCase.AuthorizationUseCase,
	audit authzUseCase.AuditRecorder,
) RequestUseCase {
	return &requestUseCase{
		txManager:      txManager,
		requestRepo:    requestRepo,
		permissionRepo: permissionRepo,
		authorization:  authorization,
		audit:          audit,
	}
}

// actingUser returns the authenticated user principal, always the first seed.
func actingUser(seeds []authzDomain.Principal) (authzDomain.Principal, error) {
	if len(seeds) == 0 || seeds[0].Kind != authzDomain.UserPrincipal {
		return authzDomain.Principal{}, apperrors.ErrUnauthorized
	}
	return seeds[0], nil
}

// SubmitRequest opens a request, or refreshes the open one in place.
func (u *requestUseCase) SubmitRequest(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	request *requestsDomain.PermissionsRequest,
) (*requestsDomain.PermissionsRequest, error) {
	actor, err := actingUser(actorSeeds)
	if err != nil {
		return nil, err
	}

	request.Principal = actor
	request.Status = requestsDomain.StatusSubmitted
	if err := request.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	existing, err := u.requestRepo.GetOpen(ctx, request.AclKey, actor)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		// Idempotent while open: resubmission refreshes the ask.
		existing.Permissions = request.Permissions
		existing.Reason = request.Reason
		existing.UpdatedAt = now
		if err := u.requestRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	request.ID = uuid.Must(uuid.NewV7())
	request.CreatedAt = now
	request.UpdatedAt = now

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.requestRepo.Create(txCtx, request); err != nil {
			return err
		}
		return u.audit.RecordAclChange(txCtx, actor, EventRequestSubmitted, request.AclKey, map[string]any{
			"request_id":  request.ID.String(),
			"permissions": request.Permissions.Names(),
		})
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

// ResolveRequest approves or declines an open request.
func (u *requestUseCase) ResolveRequest(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	id uuid.UUID,
	status requestsDomain.Status,
) (*requestsDomain.PermissionsRequest, error) {
	actor, err := actingUser(actorSeeds)
	if err != nil {
		return nil, err
	}
	if !status.IsTerminal() {
		return nil, requestsDomain.ErrUnknownStatus
	}

	request, err := u.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := u.authorization.CheckPermissions(ctx, actorSeeds, request.AclKey, authzDomain.PermissionOwner)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrForbidden
	}

	if err := request.Resolve(status, actor, time.Now().UTC()); err != nil {
		return nil, err
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.requestRepo.Update(txCtx, request); err != nil {
			return err
		}
		if status == requestsDomain.StatusApproved {
			if err := u.permissionRepo.Grant(txCtx, request.AclKey, request.Principal, request.Permissions); err != nil {
				return err
			}
		}
		return u.audit.RecordAclChange(txCtx, actor, EventRequestResolved, request.AclKey, map[string]any{
			"request_id": request.ID.String(),
			"status":     string(status),
			"requester":  request.Principal.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return request, nil
}

// ListMyRequests pages through the acting user's own requests.
func (u *requestUseCase) ListMyRequests(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	status *requestsDomain.Status,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	actor, err := actingUser(actorSeeds)
	if err != nil {
		return nil, err
	}
	return u.requestRepo.ListByPrincipal(ctx, actor, status, offset, limit)
}

// ListOpenForReview pages through open requests the actor can decide on. A
// non-nil root scopes the page to requests under that key and gates the call
// on OWNER on the root itself.
func (u *requestUseCase) ListOpenForReview(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	root authzDomain.AclKey,
	offset, limit int,
) ([]*requestsDomain.PermissionsRequest, error) {
	if _, err := actingUser(actorSeeds); err != nil {
		return nil, err
	}

	if len(root) > 0 {
		if err := root.Validate(); err != nil {
			return nil, err
		}
		allowed, err := u.authorization.CheckPermissions(ctx, actorSeeds, root, authzDomain.PermissionOwner)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperrors.ErrForbidden
		}
	}

	candidates, err := u.requestRepo.ListByStatus(ctx, requestsDomain.StatusSubmitted, root, offset, limit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []*requestsDomain.PermissionsRequest{}, nil
	}

	// Ownership of the candidates is resolved in one batch so the principal
	// closure expands once per page instead of once per request.
	checks := make([]authzDomain.AccessCheck, len(candidates))
	for i, candidate := range candidates {
		checks[i] = authzDomain.AccessCheck{
			AclKey:      candidate.AclKey,
			Permissions: authzDomain.PermissionOwner,
		}
	}
	authorizations, err := u.authorization.AccessChecks(ctx, actorSeeds, checks)
	if err != nil {
		return nil, err
	}

	reviewable := make([]*requestsDomain.PermissionsRequest, 0, len(candidates))
	for i, authorization := range authorizations {
		if authorization.IsFullyGranted() {
			reviewable = append(reviewable, candidates[i])
		}
	}
	return reviewable, nil
}
