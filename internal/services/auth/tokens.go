// Package auth adapts bearer tokens issued by the identity provider into note
// principals. Tokens are HS256 JWTs whose "email" claim names the principal.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimEmail is the JWT claim carrying the principal's email.
const ClaimEmail = "email"

// IssueToken signs a token for email valid for ttl. Used by dev tooling and tests.
func IssueToken(secret, email string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		ClaimEmail: NormalizeEmail(email),
		"sub":      NormalizeEmail(email),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenAccessToken, err)
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of raw and returns its principal.
func VerifyToken(secret, raw string) (*notes.Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return PrincipalFromToken(token)
}

// PrincipalFromToken extracts the principal from an already verified token.
// Tokens without an exp claim are rejected.
func PrincipalFromToken(token *jwt.Token) (*notes.Principal, error) {
	if token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	// every token must expire, whichever path verified its signature
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	email, _ := claims[ClaimEmail].(string)
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	return &notes.Principal{Email: email}, nil
}

// NormalizeEmail lowercases and trims so one user maps to one creator value.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
