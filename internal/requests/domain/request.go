// Package domain defines the permission request workflow model: a principal
// asks for permissions on a securable object and an owner approves or
// declines.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// Workflow validation errors.
var (
	// ErrUnknownStatus is returned for a status outside the enumeration.
	ErrUnknownStatus = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown request status")

	// ErrRequestResolved rejects a status change on an already resolved
	// request. Resolved requests are immutable; the requester submits a new
	// one instead.
	ErrRequestResolved = apperrors.Wrap(apperrors.ErrConflict, "request is already resolved")

	// ErrNotRequester rejects a submission on behalf of another user.
	ErrNotRequester = apperrors.Wrap(apperrors.ErrInvalidInput, "requests can only be submitted by a user principal for itself")
)

// Status is the workflow state of a permission request.
type Status string

const (
	// StatusSubmitted is the open state; the only state transitions leave from.
	StatusSubmitted Status = "SUBMITTED"

	// StatusApproved is terminal; the requested permissions were granted.
	StatusApproved Status = "APPROVED"

	// StatusDeclined is terminal; nothing was granted.
	StatusDeclined Status = "DECLINED"
)

// ParseStatus maps a string to a Status.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusSubmitted:
		return StatusSubmitted, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusDeclined:
		return StatusDeclined, nil
	}
	return "", ErrUnknownStatus
}

// IsTerminal reports whether the status ends the workflow.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusDeclined
}

// PermissionsRequest is one principal's standing ask for permissions on a
// securable object. At most one open request exists per (acl key, principal);
// resubmitting while open updates the open request in place.
type PermissionsRequest struct {
	ID          uuid.UUID
	AclKey      authzDomain.AclKey
	Principal   authzDomain.Principal
	Permissions authzDomain.PermissionSet
	Reason      string
	Status      Status
	ResolvedBy  *authzDomain.Principal
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}

// Validate checks the request shape for submission.
func (r *PermissionsRequest) Validate() error {
	if err := r.AclKey.Validate(); err != nil {
		return err
	}
	if err := r.Principal.Validate(); err != nil {
		return err
	}
	if r.Principal.Kind != authzDomain.UserPrincipal {
		return ErrNotRequester
	}
	if r.Permissions.IsEmpty() {
		return authzDomain.ErrEmptyPermissions
	}
	return r.Permissions.Validate()
}

// Resolve transitions an open request to a terminal status.
func (r *PermissionsRequest) Resolve(status Status, resolver authzDomain.Principal, at time.Time) error {
	if !status.IsTerminal() {
		return ErrUnknownStatus
	}
	if r.Status.IsTerminal() {
		return ErrRequestResolved
	}
	r.Status = status
	r.ResolvedBy = &resolver
	r.ResolvedAt = &at
	r.UpdatedAt = at
	return nil
}
