package auth

import "errors"

// ErrGenAccessToken is returned when we cannot create a JWT.
var ErrGenAccessToken = errors.New("failed to generate access token")

// ErrInvalidToken covers bad signatures, expired tokens and unexpected algorithms.
var ErrInvalidToken = errors.New("invalid token")

// ErrMissingEmail is returned for a valid token without an email claim.
var ErrMissingEmail = errors.New("invalid token: missing email")
