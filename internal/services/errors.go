package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures the identity service reports.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindDuplicateAccount
	KindInvalidCredentials
	KindAccountNotActive
	KindMissingToken
	KindInvalidOrExpiredToken
	KindInvalidToken
	KindAccountNotFound
	KindUnauthenticated
	KindInsufficientPermissions
	KindNotFound
	KindLastAdmin
	KindStoreUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindDuplicateAccount:
		return "DuplicateAccount"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindAccountNotActive:
		return "AccountNotActive"
	case KindMissingToken:
		return "MissingToken"
	case KindInvalidOrExpiredToken:
		return "InvalidOrExpiredToken"
	case KindInvalidToken:
		return "InvalidToken"
	case KindAccountNotFound:
		return "AccountNotFound"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindInsufficientPermissions:
		return "InsufficientPermissions"
	case KindNotFound:
		return "NotFound"
	case KindLastAdmin:
		return "LastAdmin"
	case KindStoreUnavailable:
		return "StoreUnavailable"
	default:
		return "Internal"
	}
}

// AuthError carries a kind and a client-safe message. Err holds the cause for logs only.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches on kind so sentinels compare equal to wrapped instances.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrDuplicateAccount        = &AuthError{Kind: KindDuplicateAccount, Message: "User already exists with this email"}
	ErrInvalidCredentials      = &AuthError{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
	ErrAccountNotActive        = &AuthError{Kind: KindAccountNotActive, Message: "Account is not active"}
	ErrMissingToken            = &AuthError{Kind: KindMissingToken, Message: "Access token required"}
	ErrInvalidOrExpiredToken   = &AuthError{Kind: KindInvalidOrExpiredToken, Message: "Invalid or expired token"}
	ErrInvalidToken            = &AuthError{Kind: KindInvalidToken, Message: "Invalid token"}
	ErrAccountNotFound         = &AuthError{Kind: KindAccountNotFound, Message: "User not found"}
	ErrUnauthenticated         = &AuthError{Kind: KindUnauthenticated, Message: "Authentication required"}
	ErrInsufficientPermissions = &AuthError{Kind: KindInsufficientPermissions, Message: "Insufficient permissions"}
	ErrNotFound                = &AuthError{Kind: KindNotFound, Message: "User not found"}
	ErrLastAdmin               = &AuthError{Kind: KindLastAdmin, Message: "Cannot remove the last active admin"}
	ErrStoreUnavailable        = &AuthError{Kind: KindStoreUnavailable, Message: "Service temporarily unavailable"}
)

func newError(base *AuthError, cause error) *AuthError {
	return &AuthError{Kind: base.Kind, Message: base.Message, Err: cause}
}

func NewValidationError(cause error) *AuthError {
	return &AuthError{Kind: KindValidation, Message: "Validation failed", Err: cause}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
