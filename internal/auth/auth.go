// Package auth verifies the JWT access tokens clients present when opening a
// voice streaming connection. Tokens are HMAC-signed (HS256) and carry the
// owning user's ID in the "userId" claim.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors.
var (
	// ErrInvalidToken marks a token that failed signature or claim
	// validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingUserID marks a valid token without a userId claim.
	ErrMissingUserID = errors.New("token has no userId claim")
)

// claims is the expected JWT payload.
type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. secret must be non-empty.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: secret must not be empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates tokenString and returns the user ID it was
// issued to. Expired tokens, wrong signatures, and non-HS256 algorithms all
// fail with ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if c.UserID == "" {
		return "", ErrMissingUserID
	}
	return c.UserID, nil
}
