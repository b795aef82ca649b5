package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const tokenIssuer = "fruit-amruth-storefront"

var (
	// ErrInvalidToken covers malformed, tampered or foreign cookies.
	ErrInvalidToken = errors.New("session: invalid token")
	// ErrExpiredToken is returned once the token's expiry has passed.
	ErrExpiredToken = errors.New("session: token expired")
)

// TokenCodec signs session ids into HS256 JWTs.
type TokenCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenCodec validates key and ttl.
func NewTokenCodec(key string, ttl time.Duration, clock func() time.Time) (*TokenCodec, error) {
	if len(strings.TrimSpace(key)) < 32 {
		return nil, errors.New("session: signing key must be at least 32 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("session: ttl must be positive")
	}
	if clock == nil {
		clock = time.Now
	}
	return &TokenCodec{key: []byte(key), ttl: ttl, now: clock}, nil
}

// NewID returns a random session id.
func NewID() string {
	return uuid.NewString()
}

// Issue signs id and returns the token with its expiry.
func (c *TokenCodec) Issue(id string) (string, time.Time, error) {
	now := c.now().UTC()
	expires := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the token and returns the session id it carries.
func (c *TokenCodec) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Issuer != tokenIssuer {
		return "", ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(c.now(), true) {
		return "", ErrExpiredToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
