package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Fixed development identity embedded in every mock token.
const (
	MockSubject = "1234567890"
	MockName    = "John Doe"
)

var (
	// ErrInvalidToken covers every rejection other than expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload carried by issued tokens.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 JWTs. Issuance and validation share
// the same secret, issuer, and audience.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// Option customises a TokenManager.
type Option func(*TokenManager)

// WithClock replaces time.Now for both issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(t *TokenManager) { t.now = now }
}

// NewTokenManager creates a manager with the provided secret, issuer, audience, and lifetime.
func NewTokenManager(secret, issuer, audience string, ttl time.Duration, opts ...Option) *TokenManager {
	t := &TokenManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Generate issues a signed JWT for the fixed development identity.
func (t *TokenManager) Generate() (string, error) {
	now := t.now()
	claims := Claims{
		Name: MockName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   MockSubject,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, issuer, audience, and expiry and returns the claims.
func (t *TokenManager) Validate(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
