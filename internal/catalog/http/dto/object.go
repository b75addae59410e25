// Package dto provides data transfer objects for catalog endpoints.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
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

// RegisterObjectRequest registers a securable object in the catalog. An empty
// type is resolved from the key shape by the registry.
type RegisterObjectRequest struct {
	AclKey      []string `json:"aclKey"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// Validate checks the key segments and name.
func (r *RegisterObjectRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AclKey,
			validation.Required,
			validation.Each(validUUID),
		),
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Description,
			validation.Length(0, 1000),
		),
	)
}

// ToSecurableObject converts to a domain catalog entry.
func (r *RegisterObjectRequest) ToSecurableObject() (*catalogDomain.SecurableObject, error) {
	key := make(authzDomain.AclKey, 0, len(r.AclKey))
	for _, segment := range r.AclKey {
		id, err := uuid.Parse(segment)
		if err != nil {
			return nil, authzDomain.ErrInvalidAclKey
		}
		key = append(key, id)
	}

	return &catalogDomain.SecurableObject{
		AclKey:      key,
		Type:        authzDomain.SecurableObjectType(r.Type),
		Name:        r.Name,
		Description: r.Description,
	}, nil
}

// ObjectResponse is the wire form of a catalog entry.
type ObjectResponse struct {
	AclKey      authzDomain.AclKey              `json:"aclKey"`
	Type        authzDomain.SecurableObjectType `json:"type"`
	Name        string                          `json:"name"`
	Description string                          `json:"description,omitempty"`
	CreatedAt   time.Time                       `json:"createdAt"`
}

// NewObjectResponse converts a domain catalog entry to its wire form.
func NewObjectResponse(object *catalogDomain.SecurableObject) ObjectResponse {
	return ObjectResponse{
		AclKey:      object.AclKey,
		Type:        object.Type,
		Name:        object.Name,
		Description: object.Description,
		CreatedAt:   object.CreatedAt,
	}
}
