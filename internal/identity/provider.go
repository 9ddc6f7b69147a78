// Package identity wraps the external identity provider's admin surface. The
// provider is the system of record for login credentials; this service only
// creates, retags and deletes records through it.
package identity

import (
	"context"
	"errors"
)

// Attribute names carried on identity records.
const (
	AttrTenantID = "tenant_id"
	AttrRole     = "role"
)

var (
	ErrAlreadyExists = errors.New("identity: user already exists")
	ErrNotFound      = errors.New("identity: user not found")
	ErrThrottled     = errors.New("identity: request throttled")
	// ErrImmutableAttribute guards the hard invariant that the tenant
	// attribute is write-once. Nothing may move a record between tenants.
	ErrImmutableAttribute = errors.New("identity: attribute is immutable")
)

// Attributes are set at creation time. TenantID is never writable afterwards.
type Attributes struct {
	TenantID string
	Role     string
}

type Provider interface {
	// CreateUser provisions the record and returns its globally-unique id.
	CreateUser(ctx context.Context, email string, attrs Attributes, tempPassword string) (string, error)
	// UpdateUserAttribute rewrites a single mutable attribute.
	UpdateUserAttribute(ctx context.Context, identityID, name, value string) error
	// DeleteUser removes the record permanently.
	DeleteUser(ctx context.Context, identityID string) error
}
