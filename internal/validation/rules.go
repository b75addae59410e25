// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"

	validation "github.com/jellydator/validation"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// AclKeyIndex validates the canonical "uuid/uuid/..." acl key form.
var AclKeyIndex = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := authzDomain.ParseAclKey(s)
		return err == nil
	},
	validation.NewError("validation_acl_key", "must be a slash-separated list of UUIDs"),
)

// PermissionName validates a single permission name against the enumeration.
var PermissionName = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := authzDomain.ParsePermission(s)
		return err == nil
	},
	validation.NewError("validation_permission", "must be one of DISCOVER, READ, WRITE, LINK, OWNER"),
)

// PrincipalKind validates a principal kind name.
var PrincipalKind = validation.NewStringRuleWithError(
	func(s string) bool {
		return authzDomain.IsValidPrincipalKind(authzDomain.PrincipalKind(strings.ToUpper(s)))
	},
	validation.NewError("validation_principal_kind", "must be one of USER, ROLE, ORGANIZATION"),
)

// AclAction validates an acl mutation action name.
var AclAction = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := authzDomain.ParseAction(s)
		return err == nil
	},
	validation.NewError("validation_acl_action", "must be one of ADD, SET, REMOVE"),
)
