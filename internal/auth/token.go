package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/yukikurage/multitenant-task-api/internal/constants"
)

// ErrInvalidToken covers malformed, expired and badly signed bearer tokens
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the user and the server-side token record behind a bearer
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject claim
func (c *Claims) UserID() string { return c.Subject }

// TokenID returns the jti claim, which is the access token record id
func (c *Claims) TokenID() string { return c.ID }

// IssuedToken is a freshly signed bearer together with its record identity
type IssuedToken struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenCodec signs and parses HS256 bearer tokens
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec creates a TokenCodec. A non-positive ttl uses
// constants.DefaultTokenTTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a new bearer for userID with a fresh token id
func (c *TokenCodec) Issue(userID string) (*IssuedToken, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	tokenID := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, TokenID: tokenID, ExpiresAt: expiresAt}, nil
}

// Parse validates the signature and expiry of a bearer token
func (c *TokenCodec) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
