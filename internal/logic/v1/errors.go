// Package v1 provides authentication and chat business logic for API
// version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common failures.
// These errors should be wrapped with context using fmt.Errorf("%w") when
// returned from business logic methods, and checked in handlers with
// errors.Is to pick the client-facing status code.
package v1

import "errors"

// Sentinel errors for authentication and chat operations.
// These errors should be wrapped with context using fmt.Errorf("%w") when returned.
var (
	// ErrInvalidCredentials indicates the provided email/password pair is
	// incorrect. It deliberately covers both "no such user" and "wrong
	// password" so callers cannot enumerate accounts.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists indicates the username or email already exists.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidToken indicates a token failed signature, expiry, type, or
	// subject validation.
	// HTTP Status: 401 Unauthorized
	ErrInvalidToken = errors.New("invalid token")

	// ErrUserNotFound indicates the subject of a valid token no longer
	// exists.
	// HTTP Status: 401 Unauthorized
	ErrUserNotFound = errors.New("user not found")

	// ErrSessionNotFound indicates the requested chat session does not exist.
	// HTTP Status: 404 Not Found
	ErrSessionNotFound = errors.New("session not found")
)
