// Package auth issues and checks the blog's session tokens, hashes passwords,
// and talks to GitHub for "Sign in with GitHub".
//
// SIGN-IN FLOW:
//  1. The user posts email + password to /api/authenticate (or comes back
//     from GitHub at /auth/github/callback).
//  2. The server issues a JWT and stores it in the HttpOnly "awesession"
//     cookie.
//  3. On later requests RequireAuth / OptionalAuth read the cookie, validate
//     the token, and put the caller's Identity in the request context.
//
// WHY PUT "admin" IN THE TOKEN?
// Editing or deleting someone else's blog is allowed for admins. Carrying the
// flag in the signed token lets the service decide without loading the user
// row on every write. The flag is refreshed whenever a new token is issued.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "awesome-blog"

	// SessionTTL is how long a session token (and its cookie) lives.
	SessionTTL = 24 * time.Hour
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is who a validated token belongs to.
type Identity struct {
	UserID string
	Admin  bool
}

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. Generate JWT_SECRET with
// `openssl rand -hex 32`.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: SessionTTL}, nil
}

type claims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a token for id valid for SessionTTL.
func (s *TokenService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. A negative
// duration produces an already expired token, which is handy in tests.
func (s *TokenService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("auth: cannot issue a token without a user id")
	}
	now := time.Now()
	c := claims{
		Admin: id.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, issuer and expiry and returns the identity the
// token was issued for.
func (s *TokenService) Validate(tokenStr string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return Identity{UserID: c.Subject, Admin: c.Admin}, nil
}
