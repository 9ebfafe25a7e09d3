// Package auth provides the credential and token machinery: JWT sessions,
// bcrypt password hashing, and the single-use tokens behind the email
// verification and password reset flows.
//
// SESSION FLOW:
//  1. Sign-in verifies the password and calls TokenService.IssueSession
//  2. The handler stores the signed token in an HttpOnly accessToken cookie
//  3. On later requests the middleware validates the cookie, re-resolves
//     the user against the database, and puts an Identity in the context
//
// The token is signed with HMAC-SHA256; the server verifies it with the
// same secret and needs no session store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long an issued session stays valid. The cookie's
// Max-Age is set to the same value so the browser and the token agree.
const SessionTTL = 24 * time.Hour

const issuer = "sociable"

// Identity is the user identity carried inside a session token and made
// available to handlers via the request context.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenService signs and verifies session tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// sessionClaims embeds the standard registered claims and adds the user
// identity under a "user" claim, matching the shape clients already parse.
type sessionClaims struct {
	User Identity `json:"user"`
	jwt.RegisteredClaims
}

// IssueSession creates and signs a session token for the given identity,
// valid for SessionTTL from now.
func (s *TokenService) IssueSession(id Identity) (string, error) {
	return s.issueSession(id, SessionTTL)
}

// issueSession is the duration-parameterised form used by tests to mint
// already-expired tokens.
func (s *TokenService) issueSession(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := sessionClaims{
		User: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, nil
}

// ValidateSession parses and verifies a session token string and returns
// the Identity it carries. The signature, expiry, issuer, and algorithm
// are all checked; jwt.WithValidMethods guards against algorithm
// confusion.
//
// The caller is still responsible for checking that the user exists — a
// token outlives account deletion.
func (s *TokenService) ValidateSession(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: session expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid session token: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid session claims")
	}
	if claims.User.UserID == "" || claims.User.Username == "" {
		return Identity{}, fmt.Errorf("auth: session token has no identity")
	}

	return claims.User, nil
}
