// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication. Both token failures wrap it.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenNotFound indicates no token row matches the presented value.
	ErrTokenNotFound = fmt.Errorf("token not found: %w", ErrUnauthorized)

	// ErrTokenExpired indicates the token exists but is outside its freshness window.
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrUnauthorized)

	// ErrRateLimited indicates temporary lock due to too many failed token lookups.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidArgument indicates a request that fails service-level validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorageUnavailable indicates the backing store failed the operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
