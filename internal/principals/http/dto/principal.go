// Package dto provides data transfer objects for principal directory
// endpoints.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	principalsDomain "github.com/gridworks/datahub/internal/principals/domain"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// PrincipalItem identifies a principal in a request body.
type PrincipalItem struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Validate checks the principal kind and id.
func (p PrincipalItem) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Kind,
			validation.Required,
			validation.In("USER", "ROLE", "ORGANIZATION"),
		),
		validation.Field(&p.ID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
	)
}

// ToPrincipal converts to a domain principal.
func (p PrincipalItem) ToPrincipal() authzDomain.Principal {
	return authzDomain.Principal{
		Kind: authzDomain.PrincipalKind(p.Kind),
		ID:   p.ID,
	}
}

// CreatePrincipalRequest registers a principal in the directory.
type CreatePrincipalRequest struct {
	Principal PrincipalItem `json:"principal"`
	Title     string        `json:"title"`
}

// Validate checks the principal and title.
func (r *CreatePrincipalRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Principal),
		validation.Field(&r.Title,
			validation.Length(0, 255),
		),
	)
}

// ToEntry converts to a domain directory entry.
func (r *CreatePrincipalRequest) ToEntry() *principalsDomain.Entry {
	return &principalsDomain.Entry{
		Principal: r.Principal.ToPrincipal(),
		Title:     r.Title,
	}
}

// MembershipRequest adds or removes one membership edge.
type MembershipRequest struct {
	Child  PrincipalItem `json:"child"`
	Parent PrincipalItem `json:"parent"`
}

// Validate checks both endpoints.
func (r *MembershipRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Child),
		validation.Field(&r.Parent),
	)
}

// ToMembership converts to a domain membership edge.
func (r *MembershipRequest) ToMembership() principalsDomain.Membership {
	return principalsDomain.Membership{
		Child:  r.Child.ToPrincipal(),
		Parent: r.Parent.ToPrincipal(),
	}
}

// EntryResponse is the wire form of a directory entry.
type EntryResponse struct {
	Principal authzDomain.Principal `json:"principal"`
	Title     string                `json:"title,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// NewEntryResponse converts a domain entry to its wire form.
func NewEntryResponse(entry *principalsDomain.Entry) EntryResponse {
	return EntryResponse{
		Principal: entry.Principal,
		Title:     entry.Title,
		CreatedAt: entry.CreatedAt,
	}
}
