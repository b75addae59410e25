// Package domain defines the principal directory model: registered principals
// and the membership edges between them.
package domain

import (
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// Directory validation errors.
var (
	// ErrSelfMembership rejects an edge from a principal to itself.
	ErrSelfMembership = apperrors.Wrap(apperrors.ErrInvalidInput, "a principal cannot be a member of itself")

	// ErrUserMembershipTarget rejects an edge whose parent is a user. Users
	// never have members.
	ErrUserMembershipTarget = apperrors.Wrap(apperrors.ErrInvalidInput, "a user cannot have members")
)

// Entry is a registered principal with its display metadata. The directory is
// the source of truth for which principals exist; the authorization store only
// references them.
type Entry struct {
	Principal authzDomain.Principal
	Title     string
	CreatedAt time.Time
}

// Validate checks the underlying principal.
func (e Entry) Validate() error {
	return e.Principal.Validate()
}

// Membership is one edge of the hierarchy: the child inherits every grant the
// parent holds.
type Membership struct {
	Child     authzDomain.Principal
	Parent    authzDomain.Principal
	CreatedAt time.Time
}

// Validate checks both endpoints and the edge shape.
func (m Membership) Validate() error {
	if err := m.Child.Validate(); err != nil {
		return err
	}
	if err := m.Parent.Validate(); err != nil {
		return err
	}
	if m.Child == m.Parent {
		return ErrSelfMembership
	}
	if m.Parent.Kind == authzDomain.UserPrincipal {
		return ErrUserMembershipTarget
	}
	return nil
}
