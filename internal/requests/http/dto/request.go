// Package dto provides data transfer objects for the permission request
// workflow endpoints.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	requestsDomain "github.com/gridworks/datahub/internal/requests/domain"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// validUUID validates a single uuid string.
var validUUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// SubmitRequestRequest asks for permissions on a securable object. The
// requesting principal is always the authenticated caller.
type SubmitRequestRequest struct {
	AclKey      []string `json:"aclKey"`
	Permissions []string `json:"permissions"`
	Reason      string   `json:"reason"`
}

// Validate checks the key segments and permission names.
func (r *SubmitRequestRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AclKey,
			validation.Required,
			validation.Each(validUUID),
		),
		validation.Field(&r.Permissions,
			validation.Required,
			validation.Each(customValidation.PermissionName),
		),
		validation.Field(&r.Reason,
			validation.Length(0, 1000),
		),
	)
}

// ToPermissionsRequest converts to a domain request for the given requester.
func (r *SubmitRequestRequest) ToPermissionsRequest(
	requester authzDomain.Principal,
) (*requestsDomain.PermissionsRequest, error) {
	segments := make(authzDomain.AclKey, 0, len(r.AclKey))
	for _, segment := range r.AclKey {
		id, err := uuid.Parse(segment)
		if err != nil {
			return nil, authzDomain.ErrInvalidAclKey
		}
		segments = append(segments, id)
	}

	perms, err := authzDomain.ParsePermissions(r.Permissions)
	if err != nil {
		return nil, err
	}

	return &requestsDomain.PermissionsRequest{
		AclKey:      segments,
		Principal:   requester,
		Permissions: perms,
		Reason:      r.Reason,
	}, nil
}

// ResolveRequestRequest approves or declines an open request.
type ResolveRequestRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Validate checks the id and the terminal status.
func (r *ResolveRequestRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID,
			validation.Required,
			validUUID,
		),
		validation.Field(&r.Status,
			validation.Required,
			validation.In("APPROVED", "DECLINED"),
		),
	)
}

// RequestResponse is the wire form of a permission request.
type RequestResponse struct {
	ID          uuid.UUID                 `json:"id"`
	AclKey      authzDomain.AclKey        `json:"aclKey"`
	Principal   authzDomain.Principal     `json:"principal"`
	Permissions authzDomain.PermissionSet `json:"permissions"`
	Reason      string                    `json:"reason,omitempty"`
	Status      requestsDomain.Status     `json:"status"`
	ResolvedBy  *authzDomain.Principal    `json:"resolvedBy,omitempty"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
	ResolvedAt  *time.Time                `json:"resolvedAt,omitempty"`
}

// NewRequestResponse converts a domain request to its wire form.
func NewRequestResponse(request *requestsDomain.PermissionsRequest) RequestResponse {
	return RequestResponse{
		ID:          request.ID,
		AclKey:      request.AclKey,
		Principal:   request.Principal,
		Permissions: request.Permissions,
		Reason:      request.Reason,
		Status:      request.Status,
		ResolvedBy:  request.ResolvedBy,
		CreatedAt:   request.CreatedAt,
		UpdatedAt:   request.UpdatedAt,
		ResolvedAt:  request.ResolvedAt,
	}
}

// NewRequestListResponse converts a page of domain requests.
func NewRequestListResponse(requests []*requestsDomain.PermissionsRequest) []RequestResponse {
	responses := make([]RequestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, NewRequestResponse(request))
	}
	return responses
}
