// Package http provides HTTP middleware and handlers for authentication.
package http

import (
	"context"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	identityDomain "github.com/gridworks/datahub/internal/identity/domain"
)

// accountKey is a context key type for storing authenticated accounts.
type accountKey struct{}

// WithAccount stores an authenticated account in the context. Called by the
// authentication middleware after successful token validation.
func WithAccount(ctx context.Context, account *identityDomain.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// GetAccount retrieves an authenticated account from the context.
// Returns (nil, false) if no account was set.
func GetAccount(ctx context.Context) (*identityDomain.Account, bool) {
	account, ok := ctx.Value(accountKey{}).(*identityDomain.Account)
	return account, ok
}

// SeedsFromContext returns the seed principals of the authenticated account,
// or nil if no account is present. Evaluation treats nil seeds as an
// anonymous caller.
func SeedsFromContext(ctx context.Context) []authzDomain.Principal {
	account, ok := GetAccount(ctx)
	if !ok || account == nil {
		return nil
	}
	return account.Seeds()
}
