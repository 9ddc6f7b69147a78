package repo

import (
	"context"

	"gorm.io/gorm"

	"tenant-console-api/internal/core/database"
	"tenant-console-api/internal/domain"
)

// GovernanceRepo reads governance rules. Rules are owned and mutated by
// tooling outside this service; this side is read-only.
type GovernanceRepo struct{ m *database.Manager }

func NewGovernanceRepo(m *database.Manager) *GovernanceRepo { return &GovernanceRepo{m: m} }

var _ domain.GovernanceRepository = (*GovernanceRepo)(nil)

func (r *GovernanceRepo) ListForUser(ctx context.Context, tenantID, userID string) ([]domain.GovernanceRule, error) {
	var rules []domain.GovernanceRule
	err := r.m.Do(ctx, func(db *gorm.DB) error {
		return db.
			Where("tenant_id = ? AND user_id = ?", tenantID, userID).
			Order("dimension").
			Find(&rules).Error
	})
	return rules, err
}
