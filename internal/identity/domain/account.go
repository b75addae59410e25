// Package domain defines the service account and token entities used to
// authenticate API callers and bind them to a principal.
package domain

import (
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// Authentication errors. Credential failures are deliberately
// indistinguishable from unknown accounts to prevent enumeration.
var (
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid credentials")
	ErrAccountInactive    = apperrors.Wrap(apperrors.ErrForbidden, "account is not active")
	ErrAccountNotFound    = apperrors.Wrap(apperrors.ErrNotFound, "account not found")
	ErrAccountLocked      = apperrors.Wrap(apperrors.ErrLocked, "account is temporarily locked")
	ErrTokenNotFound      = apperrors.Wrap(apperrors.ErrNotFound, "token not found")
)

// Account is an API credential bound to a principal. Every authenticated
// request acts as the bound principal; the membership graph supplies the rest
// of the caller's principal set.
type Account struct {
	ID             uuid.UUID
	Name           string
	Secret         string
	Principal      authzDomain.Principal
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
}

// IsLocked reports whether the account is inside a lockout window.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// Seeds returns the principal set an authenticated request starts from.
func (a *Account) Seeds() []authzDomain.Principal {
	return []authzDomain.Principal{a.Principal}
}

// Token is a hashed bearer credential issued to an account.
type Token struct {
	ID        uuid.UUID
	TokenHash string
	AccountID uuid.UUID
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IssueTokenInput carries the credentials presented to the token endpoint.
type IssueTokenInput struct {
	AccountName string
	Secret      string
}

// IssueTokenOutput carries the plain token back to the caller. It is shown
// exactly once; only the hash is stored.
type IssueTokenOutput struct {
	PlainToken string
	ExpiresAt  time.Time
}
