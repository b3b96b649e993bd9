package core

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenMalformed is returned when a token's structure cannot be parsed
// at all. Callers must treat it as "no identity", never as a server error.
var ErrTokenMalformed = errors.New("malformed token")

// TokenService issues and verifies stateless HS256 bearer tokens binding
// a subject (username) to an issued-at and expiry claim. Tokens are never
// persisted; validity is entirely a function of signature and clock.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a TokenService with a process-wide secret and TTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for subject with expiry = now + TTL.
func (s *TokenService) Issue(subject string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("empty token subject")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry. It returns false for malformed,
// tampered, or expired tokens and never panics.
func (s *TokenService) Verify(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && token.Valid
}

// Subject extracts the subject claim without requiring a valid signature
// or expiry: an expired token still yields its subject, so callers can
// look up the candidate identity before the final Verify. Only a token
// whose structure cannot be parsed fails, with ErrTokenMalformed.
func (s *TokenService) Subject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return "", ErrTokenMalformed
	}
	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}
