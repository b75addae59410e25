package usecase

import (
	"context"
	"log/slog"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/database"
	apperrors "github.com/gridworks/datahub/internal/errors"
)

// Audit event types for acl mutations.
const (
	EventAclUpdated   = "acl.updated"
	EventAclDestroyed = "acl.destroyed"
)

// aclUseCase implements AclUseCase. Every mutation runs in its own
// transaction; batches get one transaction per key so a failing key never
// rolls back its siblings.
type aclUseCase struct {
	txManager      database.TxManager
	permissionRepo PermissionRepository
	authorization  AuthorizationUseCase
	notifications  NotificationSink
	audit          AuditRecorder
	logger         *slog.Logger
}

// NewAclUseCase creates an acl management usecase.
func NewAclUseCase(
	txManager database.TxManager,
	permissionRepo PermissionRepository,
	authorization AuthorizationUseCase,
	notifications NotificationSink,
	audit AuditRecorder,
	logger *slog.Logger,
) AclUseCase {
	return &aclUseCase{
		txManager:      txManager,
		permissionRepo: permissionRepo,
		authorization:  authorization,
		notifications:  notifications,
		audit:          audit,
		logger:         logger,
	}
}

// primaryActor returns the principal recorded as the author of a mutation:
// the first seed, which the identity boundary always sets to the
// authenticated user.
func primaryActor(seeds []authzDomain.Principal) authzDomain.Principal {
	if len(seeds) == 0 {
		return authzDomain.Principal{}
	}
	return seeds[0]
}

// requireOwner gates a mutation on the actor holding OWNER on the key.
func (u *aclUseCase) requireOwner(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) error {
	allowed, err := u.authorization.CheckPermissions(ctx, actorSeeds, aclKey, authzDomain.PermissionOwner)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrForbidden
	}
	return nil
}

// GetAcl returns the full acl for the key.
func (u *aclUseCase) GetAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (*authzDomain.Acl, error) {
	if err := aclKey.Validate(); err != nil {
		return nil, err
	}
	if err := u.requireOwner(ctx, actorSeeds, aclKey); err != nil {
		return nil, err
	}
	return u.permissionRepo.GetAcl(ctx, aclKey)
}

// guardLastOwner rejects a mutation that would leave a key with owners today
// and none afterwards. Simulates the mutation against the current acl.
func (u *aclUseCase) guardLastOwner(ctx context.Context, data authzDomain.AclData) error {
	current, err := u.permissionRepo.GetAcl(ctx, data.Acl.AclKey)
	if err != nil {
		return err
	}

	effective := make(map[authzDomain.Principal]authzDomain.PermissionSet, len(current.Aces))
	hadOwner := false
	for _, ace := range current.Aces {
		effective[ace.Principal] = ace.Permissions
		if ace.Permissions.Contains(authzDomain.PermissionOwner) {
			hadOwner = true
		}
	}
	if !hadOwner {
		// Keys with no owner yet (fresh objects mid-registration) are exempt.
		return nil
	}

	for _, ace := range data.Acl.Aces {
		switch data.Action {
		case authzDomain.ActionAdd:
			effective[ace.Principal] = effective[ace.Principal].Union(ace.Permissions)
		case authzDomain.ActionSet:
			effective[ace.Principal] = ace.Permissions
		case authzDomain.ActionRemove:
			effective[ace.Principal] = effective[ace.Principal].Difference(ace.Permissions)
		}
	}

	for _, perms := range effective {
		if perms.Contains(authzDomain.PermissionOwner) {
			return nil
		}
	}
	return authzDomain.ErrLastOwner
}

// applyAclData executes one key's mutation inside the ambient transaction.
func (u *aclUseCase) applyAclData(ctx context.Context, data authzDomain.AclData) error {
	for _, ace := range data.Acl.Aces {
		var err error
		switch data.Action {
		case authzDomain.ActionAdd:
			err = u.permissionRepo.Grant(ctx, data.Acl.AclKey, ace.Principal, ace.Permissions)
		case authzDomain.ActionSet:
			err = u.permissionRepo.Replace(ctx, data.Acl.AclKey, ace.Principal, ace.Permissions)
		case authzDomain.ActionRemove:
			err = u.permissionRepo.Revoke(ctx, data.Acl.AclKey, ace.Principal, ace.Permissions)
		default:
			err = authzDomain.ErrUnknownAction
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// updateOne gates, guards, and applies one key's mutation in a transaction,
// recording the audit entry and queueing the change notification inside the
// same transaction.
func (u *aclUseCase) updateOne(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	data authzDomain.AclData,
) error {
	if err := data.Validate(); err != nil {
		return err
	}
	if err := u.requireOwner(ctx, actorSeeds, data.Acl.AclKey); err != nil {
		return err
	}

	actor := primaryActor(actorSeeds)
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.guardLastOwner(txCtx, data); err != nil {
			return err
		}
		if err := u.applyAclData(txCtx, data); err != nil {
			return err
		}
		if err := u.notifications.AclUpdated(txCtx, data); err != nil {
			return err
		}
		return u.audit.RecordAclChange(txCtx, actor, EventAclUpdated, data.Acl.AclKey, map[string]any{
			"action":     string(data.Action),
			"ace_count":  len(data.Acl.Aces),
			"principals": acePrincipalStrings(data.Acl.Aces),
		})
	})
}

func acePrincipalStrings(aces []authzDomain.Ace) []string {
	out := make([]string, len(aces))
	for i, ace := range aces {
		out[i] = ace.Principal.String()
	}
	return out
}

// UpdateAcl applies one mutation atomically.
func (u *aclUseCase) UpdateAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	data authzDomain.AclData,
) error {
	return u.updateOne(ctx, actorSeeds, data)
}

// UpdateAcls applies a batch of mutations best-effort, one transaction per
// key. The result slice matches the batch order.
func (u *aclUseCase) UpdateAcls(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	batch []authzDomain.AclData,
) ([]authzDomain.AclUpdateResult, error) {
	results := make([]authzDomain.AclUpdateResult, len(batch))
	for i, data := range batch {
		err := u.updateOne(ctx, actorSeeds, data)
		if err != nil {
			u.logger.Warn("acl batch entry failed",
				"acl_key", data.Acl.AclKey.Index(),
				"action", string(data.Action),
				"error", err,
			)
		}
		results[i] = authzDomain.AclUpdateResult{AclKey: data.Acl.AclKey, Err: err}
	}
	return results, nil
}

// DeleteAllPermissions removes every ace on the key and everything nested
// under it.
func (u *aclUseCase) DeleteAllPermissions(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) error {
	if err := aclKey.Validate(); err != nil {
		return err
	}
	if err := u.requireOwner(ctx, actorSeeds, aclKey); err != nil {
		return err
	}

	actor := primaryActor(actorSeeds)
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.permissionRepo.DeleteByPrefix(txCtx, aclKey); err != nil {
			return err
		}
		if err := u.notifications.PermissionsDestroyed(txCtx, aclKey); err != nil {
			return err
		}
		return u.audit.RecordAclChange(txCtx, actor, EventAclDestroyed, aclKey, nil)
	})
}
