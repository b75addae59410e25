package usecase

import (
	"context"
	"time"

	authzDomain "github.com/gridworks/datahub/internal/authorization/domain"
	"github.com/gridworks/datahub/internal/metrics"
)

// authorizationUseCaseWithMetrics decorates AuthorizationUseCase with metrics
// instrumentation.
type authorizationUseCaseWithMetrics struct {
	next    AuthorizationUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthorizationUseCaseWithMetrics wraps an AuthorizationUseCase with
// metrics recording.
func NewAuthorizationUseCaseWithMetrics(useCase AuthorizationUseCase, m metrics.BusinessMetrics) AuthorizationUseCase {
	return &authorizationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ExpandPrincipals records the closure size alongside the operation metrics.
func (a *authorizationUseCaseWithMetrics) ExpandPrincipals(
	ctx context.Context,
	seeds []authzDomain.Principal,
) ([]authzDomain.Principal, error) {
	start := time.Now()
	closure, err := a.next.ExpandPrincipals(ctx, seeds)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "expand_principals", status)
	a.metrics.RecordDuration(ctx, "authorization", "expand_principals", time.Since(start), status)
	if err == nil {
		a.metrics.RecordClosureSize(ctx, len(closure))
	}

	return closure, err
}

// CheckPermissions records the allow/deny outcome of each evaluation.
func (a *authorizationUseCaseWithMetrics) CheckPermissions(
	ctx context.Context,
	seeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
	required authzDomain.PermissionSet,
) (bool, error) {
	start := time.Now()
	allowed, err := a.next.CheckPermissions(ctx, seeds, aclKey, required)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "check_permissions", status)
	a.metrics.RecordDuration(ctx, "authorization", "check_permissions", time.Since(start), status)
	if err == nil {
		outcome := "deny"
		if allowed {
			outcome = "allow"
		}
		a.metrics.RecordDecision(ctx, outcome)
	}

	return allowed, err
}

func (a *authorizationUseCaseWithMetrics) GetObjectPermissions(
	ctx context.Context,
	seeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (authzDomain.PermissionSet, error) {
	start := time.Now()
	perms, err := a.next.GetObjectPermissions(ctx, seeds, aclKey)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "get_object_permissions", status)
	a.metrics.RecordDuration(ctx, "authorization", "get_object_permissions", time.Since(start), status)

	return perms, err
}

func (a *authorizationUseCaseWithMetrics) AccessChecks(
	ctx context.Context,
	seeds []authzDomain.Principal,
	checks []authzDomain.AccessCheck,
) ([]authzDomain.Authorization, error) {
	start := time.Now()
	results, err := a.next.AccessChecks(ctx, seeds, checks)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "access_checks", status)
	a.metrics.RecordDuration(ctx, "authorization", "access_checks", time.Since(start), status)
	for _, result := range results {
		outcome := "deny"
		if result.IsFullyGranted() {
			outcome = "allow"
		}
		a.metrics.RecordDecision(ctx, outcome)
	}

	return results, err
}

func (a *authorizationUseCaseWithMetrics) ListAuthorizedObjects(
	ctx context.Context,
	seeds []authzDomain.Principal,
	objectType authzDomain.SecurableObjectType,
	required authzDomain.PermissionSet,
	offset, limit int,
) ([]authzDomain.AclKey, error) {
	start := time.Now()
	keys, err := a.next.ListAuthorizedObjects(ctx, seeds, objectType, required, offset, limit)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "list_authorized_objects", status)
	a.metrics.RecordDuration(ctx, "authorization", "list_authorized_objects", time.Since(start), status)

	return keys, err
}

// aclUseCaseWithMetrics decorates AclUseCase with metrics instrumentation.
type aclUseCaseWithMetrics struct {
	next    AclUseCase
	metrics metrics.BusinessMetrics
}

// NewAclUseCaseWithMetrics wraps an AclUseCase with metrics recording.
func NewAclUseCaseWithMetrics(useCase AclUseCase, m metrics.BusinessMetrics) AclUseCase {
	return &aclUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *aclUseCaseWithMetrics) GetAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) (*authzDomain.Acl, error) {
	start := time.Now()
	acl, err := a.next.GetAcl(ctx, actorSeeds, aclKey)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "acl_get", status)
	a.metrics.RecordDuration(ctx, "authorization", "acl_get", time.Since(start), status)

	return acl, err
}

func (a *aclUseCaseWithMetrics) UpdateAcl(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	data authzDomain.AclData,
) error {
	start := time.Now()
	err := a.next.UpdateAcl(ctx, actorSeeds, data)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "acl_update", status)
	a.metrics.RecordDuration(ctx, "authorization", "acl_update", time.Since(start), status)

	return err
}

func (a *aclUseCaseWithMetrics) UpdateAcls(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	batch []authzDomain.AclData,
) ([]authzDomain.AclUpdateResult, error) {
	start := time.Now()
	results, err := a.next.UpdateAcls(ctx, actorSeeds, batch)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "acl_update_batch", status)
	a.metrics.RecordDuration(ctx, "authorization", "acl_update_batch", time.Since(start), status)

	return results, err
}

func (a *aclUseCaseWithMetrics) DeleteAllPermissions(
	ctx context.Context,
	actorSeeds []authzDomain.Principal,
	aclKey authzDomain.AclKey,
) error {
	start := time.Now()
	err := a.next.DeleteAllPermissions(ctx, actorSeeds, aclKey)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, "authorization", "acl_destroy", status)
	a.metrics.RecordDuration(ctx, "authorization", "acl_destroy", time.Since(start), status)

	return err
}
