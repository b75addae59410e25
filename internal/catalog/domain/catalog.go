// Package domain defines the securable object catalog model: registered
// objects and the registry that maps acl key shapes to object types.
package domain

import (
	"sync"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// Catalog validation errors.
var (
	// ErrEmptyObjectName rejects an object registration without a name.
	ErrEmptyObjectName = apperrors.Wrap(apperrors.ErrInvalidInput, "securable object name must not be empty")

	// ErrUnknownObjectType rejects a registration whose key shape has no
	// registry entry and no explicit type.
	ErrUnknownObjectType = apperrors.Wrap(apperrors.ErrInvalidInput, "securable object type cannot be resolved")
)

// SecurableObject is a catalog entry for one acl key: the thing permissions
// are held on.
type SecurableObject struct {
	AclKey      authzDomain.AclKey
	Type        authzDomain.SecurableObjectType
	Name        string
	Description string
	CreatedAt   time.Time
}

// Validate checks the key and name. The type may still be empty at this
// point; registration resolves it through the registry.
func (o *SecurableObject) Validate() error {
	if err := o.AclKey.Validate(); err != nil {
		return err
	}
	if o.Name == "" {
		return ErrEmptyObjectName
	}
	return nil
}

// TypeRegistry maps acl key shapes to securable object types. The shape of a
// key is its segment count: a root key names a different kind of object than
// a nested one. Registrations happen at wiring time; lookups are concurrent.
type TypeRegistry struct {
	mu      sync.RWMutex
	byDepth map[int]authzDomain.SecurableObjectType
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byDepth: make(map[int]authzDomain.SecurableObjectType)}
}

// Register maps keys of the given depth to an object type. Re-registering a
// depth replaces the previous mapping.
func (r *TypeRegistry) Register(depth int, objectType authzDomain.SecurableObjectType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDepth[depth] = objectType
}

// TypeOf resolves the object type for a key shape. Unregistered shapes
// resolve to ObjectTypeUnknown rather than an error; callers decide whether
// that is acceptable.
func (r *TypeRegistry) TypeOf(aclKey authzDomain.AclKey) authzDomain.SecurableObjectType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if objectType, ok := r.byDepth[len(aclKey)]; ok {
		return objectType
	}
	return authzDomain.ObjectTypeUnknown
}
