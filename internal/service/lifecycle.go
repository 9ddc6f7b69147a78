package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tenant-console-api/internal/domain"
	"tenant-console-api/internal/identity"
)

// Lifecycle coordinates one logical user across the identity provider and the
// relational store. There is no distributed transaction between the two, so
// every mutating path follows the same discipline: external system first,
// relational store second, explicit compensation when the second step fails.
type Lifecycle struct {
	idp      identity.Provider
	users    domain.UserRepository
	guard    *Guard
	validate *Validator
	log      *zap.Logger
}

func NewLifecycle(idp identity.Provider, users domain.UserRepository, guard *Guard, log *zap.Logger) *Lifecycle {
	return &Lifecycle{
		idp:      idp,
		users:    users,
		guard:    guard,
		validate: NewValidator(),
		log:      log,
	}
}

// Create provisions a user on behalf of a tenant admin.
//
// Order matters: validation and authorization are decided before anything is
// mutated; the identity record is created before the relational row; and a
// failed insert compensates by deleting the identity record so the two
// systems never diverge into "identity exists, row does not".
func (s *Lifecycle) Create(ctx context.Context, rc domain.RequestContext, cmd *CreateUserCommand) (*domain.User, error) {
	if err := s.validate.ValidateCreateUser(cmd); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireTenantAdmin(ctx, rc); err != nil {
		return nil, err
	}
	return s.createInTenant(ctx, rc.TenantID, cmd)
}

// Bootstrap creates the first tenant admin of a fresh tenant. Operator
// tooling only; there is no caller row to check yet.
func (s *Lifecycle) Bootstrap(ctx context.Context, tenantID string, cmd *CreateUserCommand) (*domain.User, error) {
	if err := s.validate.ValidateCreateUser(cmd); err != nil {
		return nil, err
	}
	cmd.IsTenantAdmin = true
	return s.createInTenant(ctx, tenantID, cmd)
}

func (s *Lifecycle) createInTenant(ctx context.Context, tenantID string, cmd *CreateUserCommand) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	existing, err := s.users.FindActiveByEmail(ctx, tenantID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.DuplicateEmail(email)
	}

	identityID, err := s.idp.CreateUser(ctx, email, identity.Attributes{
		TenantID: tenantID,
		Role:     cmd.Role,
	}, cmd.Password)
	if err != nil {
		return nil, mapIdentityErr(err)
	}

	u := &domain.User{
		TenantID:      tenantID,
		Email:         email,
		IdentityID:    identityID,
		Role:          cmd.Role,
		Region:        cmd.Region,
		StoreID:       cmd.StoreID,
		IsTenantAdmin: cmd.IsTenantAdmin,
		Status:        domain.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, s.compensateCreate(ctx, identityID, err)
	}

	s.log.Info("user created",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", u.UserID),
		zap.String("role", u.Role),
	)
	return u, nil
}

// compensateCreate undoes the identity-side create after the relational
// insert failed. A failed compensation is the divergence terminal state and
// is never swallowed.
func (s *Lifecycle) compensateCreate(ctx context.Context, identityID string, insertErr error) error {
	if delErr := s.idp.DeleteUser(ctx, identityID); delErr != nil {
		s.log.Error("ORPHANED IDENTITY: compensating delete failed, operator reconciliation required",
			zap.String("identity_id", identityID),
			zap.NamedError("insert_error", insertErr),
			zap.NamedError("delete_error", delErr),
		)
		return domain.OrphanedIdentity(identityID, insertErr)
	}
	s.log.Warn("relational insert failed, identity record compensated",
		zap.String("identity_id", identityID),
		zap.Error(insertErr),
	)
	return insertErr
}

// UpdateRole changes the target's role in both systems. The identity
// attribute goes first, mirroring create, so compensation is always
// "undo the external side" and a failed provider call leaves the relational
// row untouched.
func (s *Lifecycle) UpdateRole(ctx context.Context, rc domain.RequestContext, targetUserID, role string) error {
	if err := s.validate.ValidateRole(role); err != nil {
		return err
	}
	if _, err := s.guard.RequireTenantAdmin(ctx, rc); err != nil {
		return err
	}
	target, err := s.guard.RequireSameTenant(ctx, rc, targetUserID)
	if err != nil {
		return err
	}
	if target.Status != domain.StatusActive {
		return domain.NotFound("user " + targetUserID)
	}

	if err := s.idp.UpdateUserAttribute(ctx, target.IdentityID, identity.AttrRole, role); err != nil {
		return mapIdentityErr(err)
	}
	// the update re-scopes by tenant and status inside its own transaction,
	// so a concurrent delete loses cleanly instead of resurrecting the row
	if err := s.users.UpdateRole(ctx, rc.TenantID, targetUserID, role); err != nil {
		return err
	}

	s.log.Info("user role updated",
		zap.String("tenant_id", rc.TenantID),
		zap.String("user_id", targetUserID),
		zap.String("role", role),
	)
	return nil
}

// Delete removes the identity record and soft-deletes the relational row.
// The identity provider goes first; if the soft-delete then fails the systems
// have diverged the other way (identity gone, row active) and that is flagged
// exactly like an orphaned create.
func (s *Lifecycle) Delete(ctx context.Context, rc domain.RequestContext, targetUserID string) error {
	if _, err := s.guard.RequireTenantAdmin(ctx, rc); err != nil {
		return err
	}
	target, err := s.guard.RequireSameTenant(ctx, rc, targetUserID)
	if err != nil {
		return err
	}
	if target.Status == domain.StatusDeleted {
		return domain.NotFound("user " + targetUserID)
	}
	if target.IdentityID == rc.UserID {
		return domain.SelfDeletionForbidden()
	}

	if err := s.idp.DeleteUser(ctx, target.IdentityID); err != nil && !errors.Is(err, identity.ErrNotFound) {
		// an already-missing identity record is stale divergence being
		// healed, not a failure
		return mapIdentityErr(err)
	}
	if err := s.users.SoftDelete(ctx, rc.TenantID, targetUserID); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			// lost a race with a concurrent delete; both systems agree
			return err
		}
		s.log.Error("ORPHANED IDENTITY: identity deleted but relational soft-delete failed, operator reconciliation required",
			zap.String("tenant_id", rc.TenantID),
			zap.String("user_id", targetUserID),
			zap.String("identity_id", target.IdentityID),
			zap.Error(err),
		)
		return domain.OrphanedIdentity(target.IdentityID, err)
	}

	s.log.Info("user deleted",
		zap.String("tenant_id", rc.TenantID),
		zap.String("user_id", targetUserID),
	)
	return nil
}

// Get returns one same-tenant user.
func (s *Lifecycle) Get(ctx context.Context, rc domain.RequestContext, targetUserID string) (*domain.User, error) {
	target, err := s.guard.RequireSameTenant(ctx, rc, targetUserID)
	if err != nil {
		return nil, err
	}
	if target.Status == domain.StatusDeleted {
		return nil, domain.NotFound("user " + targetUserID)
	}
	return target, nil
}

// List returns all non-deleted users of the caller's tenant.
func (s *Lifecycle) List(ctx context.Context, rc domain.RequestContext) ([]domain.User, error) {
	return s.users.ListNotDeleted(ctx, rc.TenantID)
}

// CallerProfile resolves the caller's own row from its identity subject.
func (s *Lifecycle) CallerProfile(ctx context.Context, rc domain.RequestContext) (*domain.User, error) {
	caller, err := s.users.FindActiveByIdentity(ctx, rc.TenantID, rc.UserID)
	if err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, domain.CallerNotFound(rc.TenantID)
	}
	return caller, nil
}

func mapIdentityErr(err error) error {
	switch {
	case errors.Is(err, identity.ErrAlreadyExists):
		return domain.DuplicateEmail("")
	case errors.Is(err, identity.ErrThrottled):
		return domain.Throttled(err)
	case errors.Is(err, identity.ErrNotFound):
		return domain.NotFound("identity record")
	default:
		return domain.Transient("identity provider call failed", err)
	}
}
