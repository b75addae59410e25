// Package usecase implements the permission request workflow: submission,
// owner review, and the grant that follows an approval.
package usecase

import (
	"context"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
)

// RequestRepository defines persistence operations for permission requests.
type RequestRepository interface {
	Create(ctx context.Context, request *requestsDomain.PermissionsRequest) error
	Update(ctx context.Context, request *requestsDomain.PermissionsRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*requestsDomain.PermissionsRequest, error)
	GetOpen(ctx context.Context, aclKey authzDomain.AclKey, principal authzDomain.Principal) (*requestsDomain.PermissionsRequest, error)
	ListByPrincipal(ctx context.Context, principal authzDomain.Principal, status *requestsDomain.Status, offset, limit int) ([]*requestsDomain.PermissionsRequest, error)
	ListByStatus(ctx context.Context, status requestsDomain.Status, root authzDomain.AclKey, offset, limit int) ([]*requestsDomain.PermissionsRequest, error)
}

// RequestUseCase manages the permission request workflow.
type RequestUseCase interface {
	// SubmitRequest opens a request, or updates the open request for the
	// same (acl key, principal) in place. Requesters can only submit for
	// themselves.
	SubmitRequest(ctx context.Context, actorSeeds []authzDomain.Principal, request *requestsDomain.PermissionsRequest) (*requestsDomain.PermissionsRequest, error)
	// ResolveRequest approves or declines an open request. The actor must
	// hold OWNER on the request's key. Approval grants the requested
	// permissions in the same transaction that resolves the request.
	ResolveRequest(ctx context.Context, actorSeeds []authzDomain.Principal, id uuid.UUID, status requestsDomain.Status) (*requestsDomain.PermissionsRequest, error)
	// ListMyRequests pages through the acting user's own requests.
	ListMyRequests(ctx context.Context, actorSeeds []authzDomain.Principal, status *requestsDomain.Status, offset, limit int) ([]*requestsDomain.PermissionsRequest, error)
	// ListOpenForReview pages through open requests on keys the actor holds
	// OWNER on. A non-nil root scopes the listing to requests on that key
	// and its descendants, and requires OWNER on the root itself. Pages are
	// computed before the ownership filter, so a page may come back shorter
	// than limit while more candidates remain.
	ListOpenForReview(ctx context.Context, actorSeeds []authzDomain.Principal, root authzDomain.AclKey, offset, limit int) ([]*requestsDomain.PermissionsRequest, error)
}
