package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"tenant-console-api/internal/core/database"
	"tenant-console-api/internal/domain"
)

// UserRepo is the gorm-backed UserRepository. Every query is scoped by
// tenant_id; nothing in this file accepts an unscoped lookup.
type UserRepo struct{ m *database.Manager }

func NewUserRepo(m *database.Manager) *UserRepo { return &UserRepo{m: m} }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) FindActiveByIdentity(ctx context.Context, tenantID, identityID string) (*domain.User, error) {
	return r.findOne(ctx, "tenant_id = ? AND identity_id = ? AND status = ?", tenantID, identityID, domain.StatusActive)
}

func (r *UserRepo) FindByID(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	return r.findOne(ctx, "tenant_id = ? AND user_id = ?", tenantID, userID)
}

func (r *UserRepo) FindActiveByEmail(ctx context.Context, tenantID, email string) (*domain.User, error) {
	return r.findOne(ctx, "tenant_id = ? AND email = ? AND status = ?", tenantID, strings.ToLower(email), domain.StatusActive)
}

func (r *UserRepo) findOne(ctx context.Context, cond string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.m.Do(ctx, func(db *gorm.DB) error {
		return db.First(&u, append([]any{cond}, args...)...).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListNotDeleted(ctx context.Context, tenantID string) ([]domain.User, error) {
	var users []domain.User
	err := r.m.Do(ctx, func(db *gorm.DB) error {
		return db.
			Where("tenant_id = ? AND status <> ?", tenantID, domain.StatusDeleted).
			Order("user_id").
			Find(&users).Error
	})
	return users, err
}

// Create allocates the next tenant-scoped user id and inserts the row in one
// transaction. The read-then-insert is not serialized, so a concurrent create
// can win the same candidate id; the (tenant_id, user_id) primary key turns
// that into a duplicate-key failure and allocation is retried exactly once.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(u.Email)
	attempt := func() error {
		return r.m.Transaction(ctx, func(tx *gorm.DB) error {
			var ids []string
			if err := tx.Model(&domain.User{}).
				Where("tenant_id = ?", u.TenantID).
				Pluck("user_id", &ids).Error; err != nil {
				return err
			}
			u.UserID = NextUserID(ids)
			return tx.Create(u).Error
		})
	}

	err := attempt()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = attempt()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.AllocationConflict(u.TenantID)
		}
	}
	return err
}

func (r *UserRepo) UpdateRole(ctx context.Context, tenantID, userID, role string) error {
	return r.m.Transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("tenant_id = ? AND user_id = ? AND status = ?", tenantID, userID, domain.StatusActive).
			Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("user " + userID)
		}
		return nil
	})
}

// SoftDelete matches any non-deleted row, Inactive included, so the row
// always follows the identity record out. A NotFound here can only mean a
// concurrent delete already won.
func (r *UserRepo) SoftDelete(ctx context.Context, tenantID, userID string) error {
	return r.m.Transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).
			Where("tenant_id = ? AND user_id = ? AND status <> ?", tenantID, userID, domain.StatusDeleted).
			Update("status", domain.StatusDeleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("user " + userID)
		}
		return nil
	})
}

// NextUserID computes 'U' + (max numeric suffix + 1), zero-padded to the
// tenant's current id width. An empty tenant starts at U001.
func NextUserID(existing []string) string {
	maxSuffix := 0
	width := 3
	for _, id := range existing {
		if len(id) < 2 || id[0] != 'U' {
			continue
		}
		n, err := strconv.Atoi(id[1:])
		if err != nil {
			continue
		}
		if n > maxSuffix {
			maxSuffix = n
			width = len(id) - 1
		}
	}
	return fmt.Sprintf("U%0*d", width, maxSuffix+1)
}
