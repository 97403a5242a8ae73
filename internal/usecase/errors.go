package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrRateLimited           = errors.New("rate limited")
	ErrMalformedResponse     = errors.New("malformed provider response")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
