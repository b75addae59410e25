package domain

import (
	"github.com/gridworks/datahub/internal/errors"
)

// Authorization model validation errors. All wrap ErrInvalidInput so handlers
// map them to 400-range responses without knowing the specific cause.
var (
	// ErrEmptyAclKey indicates an acl key with no path segments.
	ErrEmptyAclKey = errors.Wrap(errors.ErrInvalidInput, "acl key must not be empty")

	// ErrInvalidAclKey indicates an acl key that could not be parsed.
	ErrInvalidAclKey = errors.Wrap(errors.ErrInvalidInput, "acl key is malformed")

	// ErrEmptyPermissions indicates an ace constructed with no permissions.
	// Callers must remove an ace instead of writing an empty one.
	ErrEmptyPermissions = errors.Wrap(errors.ErrInvalidInput, "permission set must not be empty")

	// ErrUnknownPermission indicates a permission name outside the enumeration.
	ErrUnknownPermission = errors.Wrap(errors.ErrInvalidInput, "unknown permission")

	// ErrUnknownPrincipalKind indicates a principal kind outside the enumeration.
	ErrUnknownPrincipalKind = errors.Wrap(errors.ErrInvalidInput, "unknown principal kind")

	// ErrEmptyPrincipalID indicates a principal with a blank id.
	ErrEmptyPrincipalID = errors.Wrap(errors.ErrInvalidInput, "principal id must not be empty")

	// ErrUnknownAction indicates an acl mutation action outside ADD/SET/REMOVE.
	ErrUnknownAction = errors.Wrap(errors.ErrInvalidInput, "unknown acl action")

	// ErrLastOwner indicates a mutation that would strip the final OWNER ace
	// from a securable object, which would orphan it permanently.
	ErrLastOwner = errors.Wrap(errors.ErrInvalidInput, "cannot remove the last owner of a securable object")
)
