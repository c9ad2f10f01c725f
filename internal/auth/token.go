package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token roles. A viewer may read status and subscribe to events; a
// controller may also change radio, audio and power state.
const (
	RoleViewer     = "viewer"
	RoleController = "controller"
)

const minSecretLen = 32

// TokenClaims are the claims periphd accepts in a bearer token.
type TokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens minted by an external issuer
// that shares the secret.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier requires a secret of at least 32 bytes.
func NewTokenVerifier(secret []byte) (*TokenVerifier, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("auth: token secret must be at least %d bytes", minSecretLen)
	}
	return &TokenVerifier{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

// LoadTokenVerifier reads the secret from path; surrounding whitespace is
// ignored.
func LoadTokenVerifier(path string) (*TokenVerifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read token secret: %w", err)
	}
	return NewTokenVerifier(bytes.TrimSpace(data))
}

// Verify parses token and maps it to a client. The subject becomes the
// client name; only the controller role grants writes.
func (v *TokenVerifier) Verify(token string) (Client, error) {
	var claims TokenClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Client{}, fmt.Errorf("auth: invalid token: %w", err)
	}
	if claims.Subject == "" {
		return Client{}, errors.New("auth: token has no subject")
	}
	for _, r := range claims.Roles {
		if r != RoleViewer && r != RoleController {
			return Client{}, fmt.Errorf("auth: unknown role %q", r)
		}
	}
	if len(claims.Roles) == 0 {
		return Client{}, errors.New("auth: token has no roles")
	}
	return Client{
		Name:     claims.Subject,
		ReadOnly: !slices.Contains(claims.Roles, RoleController),
	}, nil
}

// Sign mints a token for subject with the given roles. It exists for
// tooling and tests; production tokens usually come from the issuer.
func (v *TokenVerifier) Sign(subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
