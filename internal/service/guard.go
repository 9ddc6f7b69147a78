package service

import (
	"context"

	"go.uber.org/zap"

	"tenant-console-api/internal/domain"
)

// Guard decides tenant-isolation and privilege questions. Both checks read
// the relational store, never the identity provider: a record that exists
// only on the identity side cannot bootstrap privilege.
type Guard struct {
	users domain.UserRepository
	log   *zap.Logger
}

func NewGuard(users domain.UserRepository, log *zap.Logger) *Guard {
	return &Guard{users: users, log: log}
}

// RequireTenantAdmin resolves the caller's own row and requires it to be an
// active tenant administrator. Runs before any identity-provider-visible
// mutation.
func (g *Guard) RequireTenantAdmin(ctx context.Context, rc domain.RequestContext) (*domain.User, error) {
	caller, err := g.users.FindActiveByIdentity(ctx, rc.TenantID, rc.UserID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		g.audit("caller not found", rc, "")
		return nil, domain.CallerNotFound(rc.TenantID)
	}
	if !caller.IsTenantAdmin {
		g.audit("insufficient privilege", rc, caller.UserID)
		return nil, domain.InsufficientPrivilege()
	}
	return caller, nil
}

// RequireSameTenant loads the target row inside the caller's tenant scope.
// A target in another tenant and a target that does not exist are
// indistinguishable to the caller.
func (g *Guard) RequireSameTenant(ctx context.Context, rc domain.RequestContext, targetUserID string) (*domain.User, error) {
	target, err := g.users.FindByID(ctx, rc.TenantID, targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		g.audit("cross tenant access", rc, targetUserID)
		return nil, domain.CrossTenantAccess(targetUserID)
	}
	return target, nil
}

// Authorization denials always land in the audit trail with tenant and user
// context.
func (g *Guard) audit(reason string, rc domain.RequestContext, target string) {
	g.log.Warn("authorization denied",
		zap.String("reason", reason),
		zap.String("tenant_id", rc.TenantID),
		zap.String("caller_identity", rc.UserID),
		zap.String("target_user", target),
	)
}
