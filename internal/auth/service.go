package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	defaultTokenTTL   = 8 * time.Hour
	minPasswordLength = 6
)

// Service provides account registration and credential-based login.
type Service struct {
	accounts AccountStore
	tokens   *Tokens

	now         func() time.Time
	tokenTTL    time.Duration
	defaultRole Role
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL configures the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithDefaultRole overrides the role granted to self-registered accounts.
func WithDefaultRole(role Role) ServiceOption {
	return func(s *Service) {
		if role.Valid() {
			s.defaultRole = role
		}
	}
}

// WithClock overrides the time source. Useful for tests.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the account service. Self-registered accounts get
// the External role; promotion is an administrative record-store change.
func NewService(accounts AccountStore, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("%w: account store is required", ErrInvalidInput)
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token service is required", ErrInvalidInput)
	}
	svc := &Service{
		accounts:    accounts,
		tokens:      tokens,
		now:         time.Now,
		tokenTTL:    defaultTokenTTL,
		defaultRole: RoleExternal,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates an active account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Account, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         s.defaultRole,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login verifies credentials and issues a token carrying a snapshot of the
// account's role. Every failure surfaces as ErrUnauthorized so responses do
// not reveal whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", time.Time{}, Identity{}, ErrUnauthorized
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, Identity{}, ErrUnauthorized
	}
	if !account.Active {
		return "", time.Time{}, Identity{}, ErrUnauthorized
	}
	if !VerifyPassword(account.PasswordHash, password) {
		return "", time.Time{}, Identity{}, ErrUnauthorized
	}

	identity := account.Identity()
	token, expiresAt, err := s.tokens.Issue(identity, s.tokenTTL)
	if err != nil {
		return "", time.Time{}, Identity{}, fmt.Errorf("issue token: %w", err)
	}
	return token, expiresAt, identity, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
