package domain

import (
	"strings"

	"github.com/google/uuid"
)

// AclKey is a non-empty ordered path of identifiers naming a securable object
// or a nested sub-object (e.g., [entitySetID] or [entitySetID, propertyTypeID]).
// The meaning of each position is owned by the catalog registry; the
// authorization core treats the key as an opaque tuple with a prefix relation.
type AclKey []uuid.UUID

// AclKeySeparator joins segments in the canonical index form.
const AclKeySeparator = "/"

// NewAclKey validates and builds an acl key from its segments.
func NewAclKey(segments ...uuid.UUID) (AclKey, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyAclKey
	}
	key := make(AclKey, len(segments))
	copy(key, segments)
	return key, nil
}

// ParseAclKey parses the canonical index form "uuid/uuid/...".
func ParseAclKey(index string) (AclKey, error) {
	if index == "" {
		return nil, ErrEmptyAclKey
	}
	parts := strings.Split(index, AclKeySeparator)
	key := make(AclKey, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, ErrInvalidAclKey
		}
		key = append(key, id)
	}
	return key, nil
}

// Validate checks that the key is non-empty and contains no nil segments.
func (k AclKey) Validate() error {
	if len(k) == 0 {
		return ErrEmptyAclKey
	}
	for _, segment := range k {
		if segment == uuid.Nil {
			return ErrInvalidAclKey
		}
	}
	return nil
}

// Index returns the canonical string form used as the persistence key and in
// URLs. Segments are joined with "/" in order.
func (k AclKey) Index() string {
	parts := make([]string, len(k))
	for i, segment := range k {
		parts[i] = segment.String()
	}
	return strings.Join(parts, AclKeySeparator)
}

// Extend returns a new key with the given segment appended. The receiver is
// not modified.
func (k AclKey) Extend(segment uuid.UUID) AclKey {
	extended := make(AclKey, len(k)+1)
	copy(extended, k)
	extended[len(k)] = segment
	return extended
}

// Root returns the first segment of the key. Permission requests are always
// keyed by a root-level object.
func (k AclKey) Root() AclKey {
	return k[:1]
}

// Equal reports segment-wise equality.
func (k AclKey) Equal(other AclKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether k is a strict prefix of other. A key is never
// an ancestor of itself.
func (k AclKey) IsAncestorOf(other AclKey) bool {
	if len(k) >= len(other) {
		return false
	}
	return k.Equal(other[:len(k)])
}

// Covers reports whether other equals k or is nested below it. This is the
// scope relation used by cascading deletes.
func (k AclKey) Covers(other AclKey) bool {
	return k.Equal(other) || k.IsAncestorOf(other)
}
