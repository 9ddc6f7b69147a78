package domain

import (
	"context"
	"time"
)

// Roles a user row may carry. The claim role defaults to Finance when absent.
const (
	RoleAdmin      = "Admin"
	RoleFinance    = "Finance"
	RoleOperations = "Operations"
	RoleMarketing  = "Marketing"
)

// User statuses. Deletion is a soft delete on the relational side paired with
// a hard delete in the identity provider.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusDeleted  = "Deleted"
)

type Tenant struct {
	TenantID  string    `gorm:"primaryKey;size:32" json:"tenantId"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Tenant) TableName() string { return "tenants" }

// User is the relational half of a logical user; IdentityID points at the
// identity-provider half. TenantID and IdentityID are immutable once set.
type User struct {
	TenantID      string    `gorm:"primaryKey;size:32" json:"tenantId"`
	UserID        string    `gorm:"primaryKey;size:16" json:"userId"`
	Email         string    `gorm:"size:255;not null;index:idx_users_tenant_email" json:"email"`
	IdentityID    string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Role          string    `gorm:"size:16;not null" json:"role"`
	Region        string    `gorm:"size:64" json:"region,omitempty"`
	StoreID       string    `gorm:"size:64" json:"storeId,omitempty"`
	IsTenantAdmin bool      `gorm:"not null;default:false" json:"isTenantAdmin"`
	Status        string    `gorm:"size:16;not null;default:Active" json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// GovernanceRule further narrows a user's visible analytics data. Owned and
// mutated outside this core; read-only input to the RLS builder.
type GovernanceRule struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	TenantID  string `gorm:"size:32;not null;index:idx_gov_tenant_user" json:"tenantId"`
	UserID    string `gorm:"size:16;not null;index:idx_gov_tenant_user" json:"userId"`
	Dimension string `gorm:"size:32;not null" json:"dimension"`
	Values    string `gorm:"size:1024;not null" json:"values"` // comma-separated
}

func (GovernanceRule) TableName() string { return "governance_rules" }

// RequestContext is the typed, request-scoped identity derived from verified
// claims. It is the sole trusted source of tenant identity; request bodies,
// paths and query strings never supply it.
type RequestContext struct {
	TenantID string
	UserID   string // identity provider subject
	Role     string
	Email    string
}

// SessionTag is one key/value constraint handed to the analytics embedding
// service. Order matters: tenant_id always comes first.
type SessionTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type UserRepository interface {
	// FindActiveByIdentity resolves a caller row from its identity subject.
	FindActiveByIdentity(ctx context.Context, tenantID, identityID string) (*User, error)
	// FindByID returns the row regardless of status, nil when absent.
	FindByID(ctx context.Context, tenantID, userID string) (*User, error)
	FindActiveByEmail(ctx context.Context, tenantID, email string) (*User, error)
	ListNotDeleted(ctx context.Context, tenantID string) ([]User, error)
	// Create allocates the tenant-scoped user id and inserts the row in one
	// transaction, retrying allocation exactly once on a key conflict.
	Create(ctx context.Context, u *User) error
	// UpdateRole mutates the role of an active same-tenant row; reports
	// NotFound when no such row exists.
	UpdateRole(ctx context.Context, tenantID, userID, role string) error
	// SoftDelete flips a non-deleted row to Deleted; NotFound when none
	// matched, which can only mean a concurrent delete already won.
	SoftDelete(ctx context.Context, tenantID, userID string) error
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	FindByID(ctx context.Context, tenantID string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Deactivate(ctx context.Context, tenantID string) error
}

type GovernanceRepository interface {
	ListForUser(ctx context.Context, tenantID, userID string) ([]GovernanceRule, error)
}
