// Package dto provides data transfer objects for authorization endpoints.
package dto

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
)

// ParseAclKey converts a list of uuid strings into an acl key.
func ParseAclKey(segments []string) (authzDomain.AclKey, error) {
	key := make(authzDomain.AclKey, 0, len(segments))
	for _, segment := range segments {
		id, err := uuid.Parse(segment)
		if err != nil {
			return nil, authzDomain.ErrInvalidAclKey
		}
		key = append(key, id)
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return key, nil
}

// validUUID validates a single uuid string.
var validUUID = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := uuid.Parse(s)
		return err == nil
	},
	validation.NewError("validation_uuid", "must be a valid UUID"),
)

// validPermissionName validates a single permission name.
var validPermissionName = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := authzDomain.ParsePermission(s)
		return err == nil
	},
	validation.NewError("validation_permission", "must be a known permission name"),
)

// CheckItem is one entry of a batched authorization probe.
type CheckItem struct {
	AclKey      []string `json:"aclKey"`
	Permissions []string `json:"permissions"`
}

// Validate checks the key segments and permission names.
func (i CheckItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.AclKey,
			validation.Required,
			validation.Each(validUUID),
		),
		validation.Field(&i.Permissions,
			validation.Required,
			validation.Each(validPermissionName),
		),
	)
}

// CheckAuthorizationsRequest contains a batch of access checks.
type CheckAuthorizationsRequest struct {
	Checks []CheckItem `json:"checks"`
}

// Validate checks the batch shape and every item.
func (r *CheckAuthorizationsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Checks,
			validation.Required,
			validation.Length(1, 100),
		),
	)
}

// ToAccessChecks converts the request into domain access checks.
func (r *CheckAuthorizationsRequest) ToAccessChecks() ([]authzDomain.AccessCheck, error) {
	checks := make([]authzDomain.AccessCheck, 0, len(r.Checks))
	for _, item := range r.Checks {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		key, err := ParseAclKey(item.AclKey)
		if err != nil {
			return nil, err
		}
		perms, err := authzDomain.ParsePermissions(item.Permissions)
		if err != nil {
			return nil, err
		}
		checks = append(checks, authzDomain.AccessCheck{
			AclKey:      key,
			Permissions: perms,
		})
	}
	return checks, nil
}

// CheckAuthorizationsResponse contains the answers to a batch of checks.
type CheckAuthorizationsResponse struct {
	Authorizations []authzDomain.Authorization `json:"authorizations"`
}

// AuthorizedObjectsResponse lists the acl keys a caller can act on.
type AuthorizedObjectsResponse struct {
	AclKeys []authzDomain.AclKey `json:"aclKeys"`
	Offset  int                  `json:"offset"`
	Limit   int                  `json:"limit"`
}
