package auth

import "errors"

var (
	// ErrInvalidToken indicates the token could not be parsed or verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidTokenClaims indicates the token parsed but carried unexpected claims.
	ErrInvalidTokenClaims = errors.New("invalid token claims")
)
