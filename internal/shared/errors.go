package shared

import "errors"

var (
	// ErrUnauthenticated indicates the request carries no valid identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInactiveAccount indicates the authenticated account is disabled.
	ErrInactiveAccount = errors.New("account inactive")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the policy denies the action on a visible record.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the record is absent or not visible to the
	// requester. Cross-tenant rows and unreadable rows surface as ErrNotFound,
	// never ErrForbidden, so record existence is not leaked.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input or a missing referenced entity.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate unique key.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock indicates a stock decrement would drive the cached
	// quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
