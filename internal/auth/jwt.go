package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleOverlay is the only role allowed on the overlay feed
const RoleOverlay = "overlay"

// DefaultTokenTTL is how long an overlay token stays valid
const DefaultTokenTTL = 24 * time.Hour

var ErrMissingSecret = errors.New("jwt secret is not configured")

// JWTClaims represents the claims in an overlay token
type JWTClaims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates overlay tokens with a shared secret
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer. An empty secret disables token issuing.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a secret was configured
func (i *TokenIssuer) Enabled() bool {
	return len(i.secret) > 0
}

// CheckSecret compares a presented secret with the signing secret in
// constant time
func (i *TokenIssuer) CheckSecret(secret string) bool {
	if !i.Enabled() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), i.secret) == 1
}

// GenerateOverlayToken issues a token for an overlay client. An empty
// clientID gets a random one.
func (i *TokenIssuer) GenerateOverlayToken(clientID string) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, ErrMissingSecret
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}

	now := time.Now()
	expiresAt := now.Add(i.ttl)
	claims := &JWTClaims{
		ClientID: clientID,
		Role:     RoleOverlay,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its claims
func (i *TokenIssuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	if !i.Enabled() {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
