package auth

import "errors"

var (
	// ErrUnauthenticated covers every token that cannot be accepted: missing,
	// malformed, bad signature, expired or revoked. The distinction is never
	// surfaced to callers.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden marks an authenticated principal that lacks entitlement.
	ErrForbidden = errors.New("auth: forbidden")

	ErrUserNotFound       = errors.New("auth: user not found")
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrUsernameTaken      = errors.New("auth: username is already in use")
	ErrInvalidInput       = errors.New("auth: invalid input")

	// Codec-level failures; the lifecycle manager collapses both into
	// ErrUnauthenticated before they reach a caller.
	ErrMalformedToken   = errors.New("auth: malformed token")
	ErrSignatureInvalid = errors.New("auth: token signature invalid")
)
