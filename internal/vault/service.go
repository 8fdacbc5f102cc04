package vault

import (
	"context"
	"fmt"
	"strings"
	"time"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
)

// Service encrypts credentials at rest and gates every reveal behind an
// audit write.
type Service struct {
	store    Store
	box      *SecretBox
	recorder audit.Recorder
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source. Useful for tests.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the vault service.
func NewService(store Store, box *SecretBox, recorder audit.Recorder, opts ...ServiceOption) (*Service, error) {
	if store == nil || box == nil || recorder == nil {
		return nil, fmt.Errorf("%w: store, secret box and recorder are required", ErrInvalidInput)
	}
	svc := &Service{store: store, box: box, recorder: recorder, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateInput is the plaintext form of a credential. Secret is consumed
// during Create and never stored.
type CreateInput struct {
	SystemID    string
	Login       string
	Secret      string
	Environment Environment
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.SystemID) == "" {
		return fmt.Errorf("%w: system_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Login) == "" {
		return fmt.Errorf("%w: login is required", ErrInvalidInput)
	}
	if in.Secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}
	if _, ok := ParseEnvironment(string(in.Environment)); !ok {
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidInput, in.Environment)
	}
	return nil
}

// Create encrypts the secret and stores the credential.
func (s *Service) Create(ctx context.Context, in CreateInput, actor auth.Identity) (*Credential, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ciphertext, nonce, err := s.box.Seal([]byte(in.Secret))
	if err != nil {
		return nil, err
	}
	cred := &Credential{
		SystemID:    strings.TrimSpace(in.SystemID),
		Login:       strings.TrimSpace(in.Login),
		Ciphertext:  ciphertext,
		Nonce:       nonce,
		Algorithm:   AlgorithmAES256GCM,
		Environment: in.Environment,
		OwnerID:     actor.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Create(ctx, cred); err != nil {
		return nil, err
	}
	_ = s.recorder.Record(ctx, &audit.Entry{
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		Action:       audit.ActionCredentialCreated,
		ResourceType: audit.ResourceCredential,
		ResourceID:   cred.ID,
		Detail:       map[string]string{"system_id": cred.SystemID, "environment": string(cred.Environment)},
	})
	return cred, nil
}

// Reveal decrypts a credential's secret for the requesting identity. The
// audit append happens strictly before the plaintext is handed back: if the
// append fails, the reveal fails. The append runs on a context shielded from
// client cancellation so a dropped connection cannot leave a reveal
// unaudited.
func (s *Service) Reveal(ctx context.Context, id string, actor auth.Identity) (*Credential, string, error) {
	cred, err := s.find(ctx, id)
	if err != nil {
		return nil, "", err
	}
	plaintext, err := s.box.Open(cred.Ciphertext, cred.Nonce)
	if err != nil {
		return nil, "", err
	}
	entry := &audit.Entry{
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		Action:       audit.ActionCredentialSecretViewed,
		ResourceType: audit.ResourceCredential,
		ResourceID:   cred.ID,
		Detail:       map[string]string{"system_id": cred.SystemID, "environment": string(cred.Environment)},
	}
	if err := s.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		return nil, "", fmt.Errorf("record reveal audit: %w", err)
	}
	return cred, string(plaintext), nil
}

// List returns credential metadata, never secrets.
func (s *Service) List(ctx context.Context) ([]*Credential, error) {
	return s.store.List(ctx)
}

// Delete soft-deletes a credential.
func (s *Service) Delete(ctx context.Context, id string, actor auth.Identity) error {
	cred, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, cred.ID); err != nil {
		return err
	}
	_ = s.recorder.Record(ctx, &audit.Entry{
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		Action:       audit.ActionCredentialDeleted,
		ResourceType: audit.ResourceCredential,
		ResourceID:   cred.ID,
	})
	return nil
}

func (s *Service) find(ctx context.Context, id string) (*Credential, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: credential id is required", ErrInvalidInput)
	}
	cred, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if cred.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return cred, nil
}
