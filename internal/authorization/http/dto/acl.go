package dto

import (
	validation "github.com/jellydator/validation"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	customValidation "github.com/gridworks/datahub/internal/validation"
)

// AceItem is one principal's permission set inside an acl mutation.
type AceItem struct {
	Principal   PrincipalItem `json:"principal"`
	Permissions []string      `json:"permissions"`
}

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

// Validate checks the ace shape.
func (a AceItem) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Principal),
		validation.Field(&a.Permissions,
			validation.Required,
			validation.Each(validPermissionName),
		),
	)
}

// AclUpdateItem is one key's mutation inside a batched acl update.
type AclUpdateItem struct {
	Action string    `json:"action"`
	AclKey []string  `json:"aclKey"`
	Aces   []AceItem `json:"aces"`
}

// Validate checks the action, the key segments, and every ace.
func (i AclUpdateItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Action,
			validation.Required,
			validation.In("ADD", "SET", "REMOVE"),
		),
		validation.Field(&i.AclKey,
			validation.Required,
			validation.Each(validUUID),
		),
		validation.Field(&i.Aces,
			validation.Required,
			validation.Length(1, 100),
		),
	)
}

// ToAclData converts to a domain mutation.
func (i AclUpdateItem) ToAclData() (authzDomain.AclData, error) {
	key, err := ParseAclKey(i.AclKey)
	if err != nil {
		return authzDomain.AclData{}, err
	}

	aces := make([]authzDomain.Ace, 0, len(i.Aces))
	for _, item := range i.Aces {
		perms, err := authzDomain.ParsePermissions(item.Permissions)
		if err != nil {
			return authzDomain.AclData{}, err
		}
		ace, err := authzDomain.NewAce(item.Principal.ToPrincipal(), perms)
		if err != nil {
			return authzDomain.AclData{}, err
		}
		aces = append(aces, ace)
	}

	action, err := authzDomain.ParseAction(i.Action)
	if err != nil {
		return authzDomain.AclData{}, err
	}

	return authzDomain.AclData{
		Action: action,
		Acl: authzDomain.Acl{
			AclKey: key,
			Aces:   aces,
		},
	}, nil
}

// UpdateAclsRequest contains a batch of acl mutations, one entry per key.
type UpdateAclsRequest struct {
	Updates []AclUpdateItem `json:"updates"`
}

// Validate checks the batch shape and every item.
func (r *UpdateAclsRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Updates,
			validation.Required,
			validation.Length(1, 100),
		),
	); err != nil {
		return err
	}
	for _, item := range r.Updates {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToAclData converts every update item to a domain mutation.
func (r *UpdateAclsRequest) ToAclData() ([]authzDomain.AclData, error) {
	batch := make([]authzDomain.AclData, 0, len(r.Updates))
	for _, item := range r.Updates {
		data, err := item.ToAclData()
		if err != nil {
			return nil, err
		}
		batch = append(batch, data)
	}
	return batch, nil
}

// AclUpdateResultItem reports the outcome of one key's mutation.
type AclUpdateResultItem struct {
	AclKey authzDomain.AclKey `json:"aclKey"`
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
}

// UpdateAclsResponse contains per-key results for a batched mutation.
type UpdateAclsResponse struct {
	Results []AclUpdateResultItem `json:"results"`
}

// NewUpdateAclsResponse converts domain results into the response shape.
func NewUpdateAclsResponse(results []authzDomain.AclUpdateResult) UpdateAclsResponse {
	items := make([]AclUpdateResultItem, 0, len(results))
	for _, result := range results {
		item := AclUpdateResultItem{
			AclKey: result.AclKey,
			Status: "ok",
		}
		if !result.Succeeded() {
			item.Status = "failed"
			item.Error = result.Err.Error()
		}
		items = append(items, item)
	}
	return UpdateAclsResponse{Results: items}
}

// ExplainAclResponse contains one explanation per ace on a key.
type ExplainAclResponse struct {
	AclKey       authzDomain.AclKey           `json:"aclKey"`
	Explanations []authzDomain.AceExplanation `json:"explanations"`
}
