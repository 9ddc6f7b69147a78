package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tenant-console-api/internal/core/database"
	"tenant-console-api/internal/domain"
)

type TenantRepo struct{ m *database.Manager }

func NewTenantRepo(m *database.Manager) *TenantRepo { return &TenantRepo{m: m} }

var _ domain.TenantRepository = (*TenantRepo)(nil)

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	return r.m.Do(ctx, func(db *gorm.DB) error {
		return db.Create(t).Error
	})
}

func (r *TenantRepo) FindByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	var t domain.Tenant
	err := r.m.Do(ctx, func(db *gorm.DB) error {
		return db.First(&t, "tenant_id = ?", tenantID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepo) List(ctx context.Context) ([]domain.Tenant, error) {
	var tenants []domain.Tenant
	err := r.m.Do(ctx, func(db *gorm.DB) error {
		return db.Order("tenant_id").Find(&tenants).Error
	})
	return tenants, err
}

func (r *TenantRepo) Deactivate(ctx context.Context, tenantID string) error {
	return r.m.Do(ctx, func(db *gorm.DB) error {
		res := db.Model(&domain.Tenant{}).
			Where("tenant_id = ? AND is_active = ?", tenantID, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("tenant " + tenantID)
		}
		return nil
	})
}
