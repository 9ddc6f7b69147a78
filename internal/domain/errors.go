package domain

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure classes the core can surface. Callers
// switch on Kind, never on message text.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindMissingTenantClaim    Kind = "missing_tenant_claim"
	KindMissingSubjectClaim   Kind = "missing_subject_claim"
	KindCallerNotFound        Kind = "caller_not_found"
	KindInsufficientPrivilege Kind = "insufficient_privilege"
	KindCrossTenantAccess     Kind = "cross_tenant_access"
	KindSelfDeletionForbidden Kind = "self_deletion_forbidden"
	KindDuplicateEmail        Kind = "duplicate_email"
	KindAllocationConflict    Kind = "allocation_conflict"
	KindNotFound              Kind = "not_found"
	KindOrphanedIdentity      Kind = "orphaned_identity_record"
	KindThrottled             Kind = "throttled"
	KindTransient             Kind = "transient"
)

// Error is the tagged error the whole core speaks. Retryable means the caller
// may resubmit the identical request and expect it could succeed.
type Error struct {
	Kind      Kind
	Msg       string
	Field     string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindTransient for anything untagged
// (untagged errors reaching the boundary are infrastructure failures).
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

func ValidationErr(field, msg string) error {
	return &Error{Kind: KindValidation, Msg: msg, Field: field}
}

func MissingTenantClaim() error {
	return &Error{Kind: KindMissingTenantClaim, Msg: "token carries no tenant_id claim"}
}

func MissingSubjectClaim() error {
	return &Error{Kind: KindMissingSubjectClaim, Msg: "token carries no subject claim"}
}

func CallerNotFound(tenantID string) error {
	return &Error{Kind: KindCallerNotFound, Msg: "caller has no active record in tenant " + tenantID}
}

func InsufficientPrivilege() error {
	return &Error{Kind: KindInsufficientPrivilege, Msg: "caller is not a tenant administrator"}
}

func CrossTenantAccess(targetUserID string) error {
	return &Error{Kind: KindCrossTenantAccess, Msg: "user " + targetUserID + " not found in caller tenant"}
}

func SelfDeletionForbidden() error {
	return &Error{Kind: KindSelfDeletionForbidden, Msg: "users cannot delete their own account"}
}

func DuplicateEmail(email string) error {
	msg := "email already in use within tenant"
	if email != "" {
		msg = "email " + email + " already in use within tenant"
	}
	return &Error{Kind: KindDuplicateEmail, Msg: msg, Field: "email"}
}

func AllocationConflict(tenantID string) error {
	return &Error{Kind: KindAllocationConflict, Msg: "user id allocation conflicted twice in tenant " + tenantID}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

// OrphanedIdentity marks the divergence terminal state: one of the two
// systems mutated and the other could not follow, compensation included.
// Never retryable by the caller; an operator has to reconcile.
func OrphanedIdentity(identityID string, cause error) error {
	return &Error{
		Kind: KindOrphanedIdentity,
		Msg:  "identity record " + identityID + " diverged from relational store",
		Err:  cause,
	}
}

func Throttled(cause error) error {
	return &Error{Kind: KindThrottled, Msg: "identity provider throttled the request", Retryable: true, Err: cause}
}

func Transient(msg string, cause error) error {
	return &Error{Kind: KindTransient, Msg: msg, Retryable: true, Err: cause}
}
