package domain

import (
	"encoding/json"
	"strings"
)

// PermissionSet is a bit-set over the closed permission enumeration. Set
// algebra is O(1); the wire and storage boundary always serializes the set as
// an explicit list of permission names so new bits can be added without
// breaking stored rows.
type PermissionSet uint8

const (
	// PermissionDiscover allows seeing that an object exists in listings.
	PermissionDiscover PermissionSet = 1 << iota

	// PermissionRead allows reading object data.
	PermissionRead

	// PermissionWrite allows creating or updating object data.
	PermissionWrite

	// PermissionLink allows using the object in entity-linking operations.
	PermissionLink

	// PermissionOwner allows administering the object: granting permissions,
	// reading its full acl, and resolving permission requests.
	PermissionOwner
)

// permissionNames is ordered by bit position.
var permissionNames = []struct {
	bit  PermissionSet
	name string
}{
	{PermissionDiscover, "DISCOVER"},
	{PermissionRead, "READ"},
	{PermissionWrite, "WRITE"},
	{PermissionLink, "LINK"},
	{PermissionOwner, "OWNER"},
}

// allPermissions is the union of every defined bit.
const allPermissions = PermissionDiscover | PermissionRead | PermissionWrite | PermissionLink | PermissionOwner

// AllPermissions returns the full set, granted to the creator of a fresh
// securable object.
func AllPermissions() PermissionSet {
	return allPermissions
}

// ParsePermission maps a single permission name to its bit.
func ParsePermission(name string) (PermissionSet, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, entry := range permissionNames {
		if entry.name == upper {
			return entry.bit, nil
		}
	}
	return 0, ErrUnknownPermission
}

// ParsePermissions builds a set from a list of names. An empty list yields the
// empty set without error; callers that forbid empty sets check IsEmpty.
func ParsePermissions(names []string) (PermissionSet, error) {
	var set PermissionSet
	for _, name := range names {
		bit, err := ParsePermission(name)
		if err != nil {
			return 0, err
		}
		set |= bit
	}
	return set, nil
}

// Names returns the member names in declaration order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(permissionNames))
	for _, entry := range permissionNames {
		if s&entry.bit != 0 {
			names = append(names, entry.name)
		}
	}
	return names
}

// Contains reports whether every permission in required is present (AND
// semantics across required permissions).
func (s PermissionSet) Contains(required PermissionSet) bool {
	return s&required == required
}

// Union returns the combined set.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	return s | other
}

// Difference returns the permissions in s that are not in other.
func (s PermissionSet) Difference(other PermissionSet) PermissionSet {
	return s &^ other
}

// IsEmpty reports whether no permission bit is set.
func (s PermissionSet) IsEmpty() bool {
	return s == 0
}

// Validate rejects bits outside the enumeration.
func (s PermissionSet) Validate() error {
	if s&^allPermissions != 0 {
		return ErrUnknownPermission
	}
	return nil
}

// Each reports the individual member bits in declaration order.
func (s PermissionSet) Each() []PermissionSet {
	members := make([]PermissionSet, 0, len(permissionNames))
	for _, entry := range permissionNames {
		if s&entry.bit != 0 {
			members = append(members, entry.bit)
		}
	}
	return members
}

// String renders the set as a comma-joined name list, mainly for logs.
func (s PermissionSet) String() string {
	return strings.Join(s.Names(), ",")
}

// MarshalJSON serializes the set as a JSON array of names.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON parses a JSON array of names into the set.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	set, err := ParsePermissions(names)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
