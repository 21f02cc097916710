// Package domain provides shared domain-level sentinel errors.
//
// Every failure the authorization core reports wraps exactly one of these
// sentinels, and the HTTP adapter maps each sentinel to one status code and
// one stable machine-readable code.
package domain

import "errors"

// ErrInput indicates a malformed request the caller can fix.
var ErrInput = errors.New("invalid input")

// ErrValidation is kept as an alias so request validators read naturally.
var ErrValidation = ErrInput

// ErrAuth indicates a missing, invalid, expired or revoked credential.
// The caller must re-authenticate.
var ErrAuth = errors.New("authentication required")

// ErrForbidden indicates an authenticated caller that is not permitted.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound indicates the requested entity does not exist or is outside
// the caller's tenant scope.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness violation such as a taken subdomain.
var ErrConflict = errors.New("conflict")

// ErrQuotaExceeded indicates a tenant resource ceiling was reached.
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrUnscoped is returned by the persistence layer when a tenant-owned
// query is issued without a tenant scope. It is a programming error and
// surfaces as an internal failure.
var ErrUnscoped = errors.New("query issued without tenant scope")

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrAuth):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrQuotaExceeded):
		return "QUOTA_EXCEEDED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// IsPolicy reports whether err is one of the policy failures above, as
// opposed to an unexpected internal failure.
func IsPolicy(err error) bool {
	return Code(err) != "INTERNAL"
}
