package synthesis

import "errors"

var (
	// ErrContentBlocked indicates the provider refused the request on
	// content-policy grounds.
	ErrContentBlocked = errors.New("content blocked by provider policy")
	// ErrNoImage indicates the provider responded without an image payload.
	ErrNoImage = errors.New("no image in provider response")
	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrUnknownProvider indicates the configured provider name is not registered.
	ErrUnknownProvider = errors.New("unknown synthesis provider")
)
