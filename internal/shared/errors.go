package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthenticationRequired indicates the request carries no signed-in session.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrPermissionDenied indicates the decision engine rejected the action.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUpstreamUnavailable indicates an access-relevant read failed or timed
	// out. Callers treat it as a denial, never as a grant.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
