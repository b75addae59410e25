package usecase

import (
	"context"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	authzUseCase "github.com/gridworks/datahub/internal/authorization/usecase"
	catalogDomain "github.com/gridworks/datahub/internal/catalog/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// Audit event types for catalog mutations.
const (
	EventObjectRegistered = "object.registered"
	EventObjectDestroyed  = "object.destroyed"
)

// catalogUseCase implements CatalogUseCase.
type catalogUseCase struct {
	txManager      database.TxManager
	objectRepo     ObjectRepository
	permissionRepo authzUseCase.PermissionRepository
	authorization  authzUseCase.AuthorizationUseCase
	registry       *catalogDomain.TypeRegistry
	notifications  authzUseCase.NotificationSink
	audit          authzUseCase.AuditRecorder
}

// NewCatalogUseCase creates a catalog usecase.
func NewCatalogUseCase(
	txManager database.TxManager,
	objectRepo ObjectRepository,
	permissionRepo authzUseCase.PermissionRepository,
	authorization authzUseCase.AuthorizationUseCase,
	registry *catalogDomain.TypeRegistry,
	notifications authzUseCase.NotificationSink,
	audit authzUseCase.AuditRecorder,
) CatalogUseCase {
	return &catalogUseCase{
		txManager:      txManager,
		objectRepo:     objectRepo,
		permissionRepo: permissionRepo,
		authorization:  authorization,
		registry:       registry,
		notifications:  notifications,
		audit:          audit,
	}
}

// primaryActor returns the principal recorded as the author of a catalog
// mutation: the first seed, which the identity boundary always sets to the
// authenticated user.
func primaryActor(seeds []authzDomain.Principal) authzDomain.Principal {
	if len(seeds) == 0 {
		return authzDomain.Principal{}
	}
	return seeds[0]
}

// RegisterObject creates a catalog entry and makes the registering actor its
// owner.
func (u *catalogUseCase) RegisterObject(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	object *catalogDomain.SecurableObject,
) error {
	if err := object.Validate(); err != nil {
		return err
	}
	if len(actorSeeds) == 0 {
		return apperrors.ErrUnauthorized
	}

	if object.Type == "" || object.Type == authzDomain.ObjectTypeUnknown {
		object.Type = u.registry.TypeOf(object.AclKey)
		if object.Type == authzDomain.ObjectTypeUnknown {
			return catalogDomain.ErrUnknownObjectType
		}
	}

	// Nesting an object under an existing one is itself an administrative
	// act on the parent.
	if len(object.AclKey) > 1 {
		parent := object.AclKey[:len(object.AclKey)-1]
		allowed, err := u.authorization.CheckPermissions(ctx, actorSeeds, parent, authzDomain.PermissionOwner)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.ErrForbidden
		}
	}

	creator := primaryActor(actorSeeds)
	object.CreatedAt = time.Now().UTC()

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.objectRepo.Create(txCtx, object); err != nil {
			return err
		}
		if err := u.permissionRepo.Grant(txCtx, object.AclKey, creator, authzDomain.AllPermissions()); err != nil {
			return err
		}
		return u.audit.RecordAclChange(txCtx, creator, EventObjectRegistered, object.AclKey, map[string]any{
			"object_type": string(object.Type),
			"name":        object.Name,
		})
	})
}

// GetObject returns the catalog entry, hidden behind a permission check.
func (u *catalogUseCase) GetObject(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (*catalogDomain.SecurableObject, error) {
	if err := aclKey.Validate(); err != nil {
		return nil, err
	}

	held, err := u.authorization.GetObjectPermissions(ctx, actorSeeds, aclKey)
	if err != nil {
		return nil, err
	}
	if held.IsEmpty() {
		// Indistinguishable from a key that was never registered.
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "securable object not found")
	}

	return u.objectRepo.Get(ctx, aclKey)
}

// DestroyObject removes the object subtree and its permissions atomically.
func (u *catalogUseCase) DestroyObject(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) error {
	if err := aclKey.Validate(); err != nil {
		return err
	}

	allowed, err := u.authorization.CheckPermissions(ctx, actorSeeds, aclKey, authzDomain.PermissionOwner)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}

	actor := primaryActor(actorSeeds)

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		removed, err := u.objectRepo.DeleteByPrefix(txCtx, aclKey)
		if err != nil {
			return err
		}
		if removed == 0 {
			return apperrors.Wrap(apperrors.ErrNotFound, "securable object not found")
		}
		if err := u.permissionRepo.DeleteByPrefix(txCtx, aclKey); err != nil {
			return err
		}
		if err := u.notifications.PermissionsDestroyed(txCtx, aclKey); err != nil {
			return err
		}
		return u.audit.RecordAclChange(txCtx, actor, EventObjectDestroyed, aclKey, map[string]any{
			"objects_removed": removed,
		})
	})
}
