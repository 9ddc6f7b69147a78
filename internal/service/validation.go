package service

import (
	"regexp"
	"strings"
	"unicode"

	"tenant-console-api/internal/domain"
)

// CreateUserCommand is the typed form of a POST /users body. Handlers convert
// the wire payload into this before any business logic runs; the tenant comes
// from the request context, never from the body.
type CreateUserCommand struct {
	Email         string
	Password      string
	Role          string
	Region        string
	StoreID       string
	IsTenantAdmin bool
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var validRoles = map[string]struct{}{
	domain.RoleAdmin:      {},
	domain.RoleFinance:    {},
	domain.RoleOperations: {},
	domain.RoleMarketing:  {},
}

// Validator holds the payload validation rules for lifecycle operations.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) ValidateCreateUser(cmd *CreateUserCommand) error {
	if err := v.ValidateEmail(cmd.Email); err != nil {
		return err
	}
	if err := v.ValidatePassword(cmd.Password); err != nil {
		return err
	}
	return v.ValidateRole(cmd.Role)
}

func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ValidationErr("email", "email is required")
	}
	if !emailRe.MatchString(email) {
		return domain.ValidationErr("email", "email is not a valid address")
	}
	return nil
}

// ValidatePassword enforces the temporary-password policy: at least 8
// characters with an upper, a lower and a digit.
func (v *Validator) ValidatePassword(pw string) error {
	if len(pw) < 8 {
		return domain.ValidationErr("password", "password must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return domain.ValidationErr("password", "password needs an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

func (v *Validator) ValidateRole(role string) error {
	if strings.TrimSpace(role) == "" {
		return domain.ValidationErr("role", "role is required")
	}
	if _, ok := validRoles[role]; !ok {
		return domain.ValidationErr("role", "unknown role "+role)
	}
	return nil
}
