// Package domain defines the authorization domain model: principals, acl keys,
// permission sets, and access control entries.
//
// The model is pure data plus validation. The hierarchy between principals and
// the evaluation of effective permissions live in the usecase layer; securable
// object semantics (what an acl key of a given shape means) are owned by the
// catalog module.
package domain

import (
	"fmt"
	"strings"
)

// PrincipalKind identifies the category of a principal. The hierarchy usecase
// allows membership edges from any kind into roles and organizations; only
// users authenticate.
type PrincipalKind string

const (
	// UserPrincipal is an individual identity resolved by the identity boundary.
	UserPrincipal PrincipalKind = "USER"

	// RolePrincipal is a grantable collection of members; roles may nest.
	RolePrincipal PrincipalKind = "ROLE"

	// OrganizationPrincipal is a tenant-level principal that roles and users
	// can be members of.
	OrganizationPrincipal PrincipalKind = "ORGANIZATION"
)

// IsValidPrincipalKind reports whether the given kind is part of the closed
// enumeration.
func IsValidPrincipalKind(kind PrincipalKind) bool {
	switch kind {
	case UserPrincipal, RolePrincipal, OrganizationPrincipal:
		return true
	}
	return false
}

// Principal is an immutable identity reference. Two principals are equal when
// both kind and id match; the struct is comparable and safe to use as a map key.
type Principal struct {
	Kind PrincipalKind `json:"kind"`
	ID   string        `json:"id"`
}

// NewPrincipal validates and builds a principal.
func NewPrincipal(kind PrincipalKind, id string) (Principal, error) {
	p := Principal{Kind: kind, ID: id}
	if err := p.Validate(); err != nil {
		return Principal{}, err
	}
	return p, nil
}

// Validate checks the principal kind and id.
func (p Principal) Validate() error {
	if !IsValidPrincipalKind(p.Kind) {
		return ErrUnknownPrincipalKind
	}
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyPrincipalID
	}
	return nil
}

// String renders the principal as "KIND|id", the canonical form used in logs
// and explanation responses.
func (p Principal) String() string {
	return fmt.Sprintf("%s|%s", p.Kind, p.ID)
}

// PrincipalPath is an ordered membership chain. The first element is always a
// directly granted principal; each following element is a member of the one
// before it, so the last element is a principal that inherits the grant.
type PrincipalPath []Principal

// Key returns a canonical string form of the path, used for deduplication.
func (pp PrincipalPath) Key() string {
	parts := make([]string, len(pp))
	for i, p := range pp {
		parts[i] = p.String()
	}
	return strings.Join(parts, "->")
}

// Last returns the final principal of the path. Callers must not invoke it on
// an empty path.
func (pp PrincipalPath) Last() Principal {
	return pp[len(pp)-1]
}

// Extend returns a new path with the given principal appended. The receiver is
// not modified.
func (pp PrincipalPath) Extend(p Principal) PrincipalPath {
	next := make(PrincipalPath, len(pp), len(pp)+1)
	copy(next, pp)
	return append(next, p)
}
