package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tenant-console-api/pkg/utils"
)

// Local is the in-memory provider used in development and tests. It enforces
// the same contract as the real provider, including the write-once tenant
// attribute.
type Local struct {
	mu    sync.Mutex
	users map[string]*localUser // identityID -> record
}

type localUser struct {
	email        string
	passwordHash string
	attrs        map[string]string
}

func NewLocal() *Local {
	return &Local{users: make(map[string]*localUser)}
}

func (l *Local) CreateUser(_ context.Context, email string, attrs Attributes, tempPassword string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lower := strings.ToLower(email)
	for _, u := range l.users {
		if u.email == lower && u.attrs[AttrTenantID] == attrs.TenantID {
			return "", ErrAlreadyExists
		}
	}
	id := uuid.NewString()
	l.users[id] = &localUser{
		email:        lower,
		passwordHash: utils.HashPassword(tempPassword),
		attrs: map[string]string{
			AttrTenantID: attrs.TenantID,
			AttrRole:     attrs.Role,
		},
	}
	return id, nil
}

func (l *Local) UpdateUserAttribute(_ context.Context, identityID, name, value string) error {
	if name == AttrTenantID {
		return ErrImmutableAttribute
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[identityID]
	if !ok {
		return ErrNotFound
	}
	u.attrs[name] = value
	return nil
}

func (l *Local) DeleteUser(_ context.Context, identityID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.users[identityID]; !ok {
		return ErrNotFound
	}
	delete(l.users, identityID)
	return nil
}

// VerifyPassword is only used by local development login helpers.
func (l *Local) VerifyPassword(identityID, password string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[identityID]
	return ok && utils.CheckPassword(password, u.passwordHash)
}
