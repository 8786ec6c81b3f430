package bridge

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuerName = "open-webui-desktop"
	defaultTokenTTL = 24 * time.Hour
)

// surfaceClaims identifies a shell-owned UI surface such as the renderer
// window or the gateway status page.
type surfaceClaims struct {
	jwt.RegisteredClaims
	Surface string `json:"surface,omitempty"`
}

// TokenIssuer mints and verifies short-lived bearer tokens for surfaces the
// shell itself spawns. The signing secret is generated per process, so tokens
// never outlive the shell and nothing is persisted to disk.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer with a fresh random secret.
func NewTokenIssuer(ttl time.Duration) (*TokenIssuer, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue mints a signed token for the named surface.
func (t *TokenIssuer) Issue(surface string) (string, error) {
	now := t.now()
	claims := surfaceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   surface,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Surface: surface,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign surface token: %w", err)
	}
	return signed, nil
}

// Verify checks a presented token and returns the surface it was minted for.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &surfaceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid surface token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid surface token")
	}
	return claims.Surface, nil
}
