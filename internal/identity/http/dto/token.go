// Package dto provides data transfer objects for authentication endpoints.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/gridworks/datahub/internal/validation"
)

// IssueTokenRequest contains the parameters for issuing an authentication token.
type IssueTokenRequest struct {
	AccountName string `json:"account_name"`
	Secret      string `json:"secret"`
}

// Validate checks if the issue token request is valid.
func (r *IssueTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AccountName,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Secret,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

// IssueTokenResponse contains the issued token and its expiration.
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
