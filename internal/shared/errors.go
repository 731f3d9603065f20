package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrAuthFailed       = fmt.Errorf("%w: authentication failed", ErrUnauthorized)
	ErrNotAuthenticated = fmt.Errorf("%w: not authenticated", ErrUnauthorized)
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// Lookup errors. Ownership failures use these too so callers cannot tell them apart.
	ErrNotFound         = fmt.Errorf("not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist %w", ErrNotFound)
	ErrSongNotFound     = fmt.Errorf("song %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	// API and service errors
	ErrUpstream           = fmt.Errorf("upstream failure")
	ErrAPIRequest         = fmt.Errorf("%w: API request failed", ErrUpstream)
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrServiceUnavailable = fmt.Errorf("%w: service unavailable", ErrUpstream)

	// Input validation errors
	ErrValidation      = fmt.Errorf("validation failed")
	ErrInvalidInput    = fmt.Errorf("%w: invalid input", ErrValidation)
	ErrMissingArgument = fmt.Errorf("%w: missing required argument", ErrValidation)
	ErrInvalidArgument = fmt.Errorf("%w: invalid argument", ErrValidation)
)
