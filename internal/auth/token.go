package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "opsdesk"

// ErrInvalidToken is the only token failure callers should branch on. The
// finer-grained kinds below are joined into it so logs can tell a tampered
// token from an expired one while the HTTP surface stays uniform.
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenBadSignature = errors.New("token signature mismatch")
	ErrTokenExpired      = errors.New("token expired")
)

// Claims carries the identity snapshot embedded in a signed token. The role
// is fixed at issuance; changing an account's role does not revoke tokens
// already in flight. Compromise is mitigated by the TTL only.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256-signed identity tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// TokensOption configures a Tokens service.
type TokensOption func(*Tokens)

// WithTokenClock overrides the time source. Useful for tests.
func WithTokenClock(fn func() time.Time) TokensOption {
	return func(t *Tokens) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokens constructs the token service. The signing secret is required and
// read-only for the life of the process.
func NewTokens(secret []byte, opts ...TokensOption) (*Tokens, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	t := &Tokens{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token that carries the identity and expires after ttl.
func (t *Tokens) Issue(id Identity, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(id.ID) == "" {
		return "", time.Time{}, fmt.Errorf("%w: identity id is required", ErrInvalidInput)
	}
	if !id.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, id.Role)
	}

	now := t.now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry and reconstructs the identity. All
// failures satisfy errors.Is(err, ErrInvalidToken); the joined kind says why.
func (t *Tokens) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenMalformed)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now().UTC() }),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, tokenErrorKind(err))
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenMalformed)
	}

	role, ok := ParseRole(claims.Role)
	if !ok || strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenMalformed)
	}
	return Identity{ID: claims.Subject, Email: claims.Email, Role: role}, nil
}

func tokenErrorKind(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrTokenBadSignature
	default:
		return ErrTokenMalformed
	}
}
