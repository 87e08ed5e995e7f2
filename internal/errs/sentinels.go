// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist (or is not visible to the caller).
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller is authenticated but may not act on the entity.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyCompleted indicates the spell was already completed in the current period.
	ErrAlreadyCompleted = errors.New("already completed this period")

	// ErrInvalidArgument indicates rejected input; nothing was applied.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidConfiguration indicates a malformed static configuration (fatal at startup).
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
