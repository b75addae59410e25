// Package usecase implements securable object lifecycle management:
// registration with creator ownership, permission-aware lookup, and cascading
// destruction.
package usecase

import (
	"context"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
)

// ObjectRepository defines persistence operations for catalog entries.
type ObjectRepository interface {
	Create(ctx context.Context, object *catalogDomain.SecurableObject) error
	Get(ctx context.Context, aclKey authzDomain.AclKey) (*catalogDomain.SecurableObject, error)
	DeleteByPrefix(ctx context.Context, aclKey authzDomain.AclKey) (int64, error)
	ListByType(ctx context.Context, objectType authzDomain.SecurableObjectType, limit, offset int) ([]*catalogDomain.SecurableObject, error)
}

// CatalogUseCase manages the securable object catalog.
type CatalogUseCase interface {
	// RegisterObject creates a catalog entry and grants the registering actor
	// the full permission set on it. Registering a nested key requires OWNER
	// on the parent key. An empty object type is resolved through the shape
	// registry.
	RegisterObject(ctx context.Context, actorSeeds []authzDomain.Principal, object *catalogDomain.SecurableObject) error
	// GetObject returns the catalog entry for a key. Callers whose closure
	// holds no permission on the key get a not-found error, so the catalog
	// never reveals that a hidden object exists.
	GetObject(ctx context.Context, actorSeeds []authzDomain.Principal, aclKey authzDomain.AclKey) (*catalogDomain.SecurableObject, error)
	// DestroyObject removes the object, every nested object, and every ace
	// under the key in one transaction. Requires OWNER on the key.
	DestroyObject(ctx context.Context, actorSeeds []authzDomain.Principal, aclKey authzDomain.AclKey) error
}
