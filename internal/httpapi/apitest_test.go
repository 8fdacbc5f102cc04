package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/vault"
)

// In-memory fakes backing the API under test.

type fakeAccountStore struct {
	byEmail map[string]*auth.Account
	byID    map[string]*auth.Account
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{byEmail: map[string]*auth.Account{}, byID: map[string]*auth.Account{}}
}

func (f *fakeAccountStore) Create(_ context.Context, account *auth.Account) error {
	if _, ok := f.byEmail[account.Email]; ok {
		return auth.ErrAlreadyExists
	}
	if account.ID == "" {
		account.ID = fmt.Sprintf("acct-%d", len(f.byID)+1)
	}
	f.byEmail[account.Email] = account
	f.byID[account.ID] = account
	return nil
}

func (f *fakeAccountStore) Find(_ context.Context, id string) (*auth.Account, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, auth.ErrNotFound
}

func (f *fakeAccountStore) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	if a, ok := f.byEmail[email]; ok {
		return a, nil
	}
	return nil, auth.ErrNotFound
}

type fakeVaultStore struct {
	creds map[string]*vault.Credential
}

func newFakeVaultStore() *fakeVaultStore {
	return &fakeVaultStore{creds: map[string]*vault.Credential{}}
}

func (f *fakeVaultStore) Create(_ context.Context, cred *vault.Credential) error {
	if cred.ID == "" {
		cred.ID = fmt.Sprintf("cred-%d", len(f.creds)+1)
	}
	f.creds[cred.ID] = cred
	return nil
}

func (f *fakeVaultStore) Find(_ context.Context, id string) (*vault.Credential, error) {
	if c, ok := f.creds[id]; ok {
		return c, nil
	}
	return nil, vault.ErrNotFound
}

func (f *fakeVaultStore) List(_ context.Context) ([]*vault.Credential, error) {
	var out []*vault.Credential
	for _, c := range f.creds {
		if c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeVaultStore) SoftDelete(_ context.Context, id string) error {
	c, ok := f.creds[id]
	if !ok || c.DeletedAt != nil {
		return vault.ErrNotFound
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	return nil
}

type fakeRecorder struct {
	entries []audit.Entry
	failErr error
}

func (f *fakeRecorder) Record(_ context.Context, entry *audit.Entry) error {
	if f.failErr != nil {
		return f.failErr
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRecorder) Search(_ context.Context, q audit.Query) ([]audit.Entry, int, error) {
	var out []audit.Entry
	for _, e := range f.entries {
		if q.ActorID != "" && e.ActorID != q.ActorID {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.ResourceType != "" && e.ResourceType != q.ResourceType {
			continue
		}
		if q.ResourceID != "" && e.ResourceID != q.ResourceID {
			continue
		}
		out = append(out, e)
	}
	total := len(out)
	if limit := q.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

type testEnv struct {
	api      *API
	tokens   *auth.Tokens
	accounts *fakeAccountStore
	recorder *fakeRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokens([]byte("api-test-secret"))
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	accountStore := newFakeAccountStore()
	accounts, err := auth.NewService(accountStore, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	box, err := vault.NewSecretBox(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}
	recorder := &fakeRecorder{}
	vaultSvc, err := vault.NewService(newFakeVaultStore(), box, recorder)
	if err != nil {
		t.Fatalf("vault.NewService: %v", err)
	}

	api := New(Deps{
		Accounts: accounts,
		Tokens:   tokens,
		Vault:    vaultSvc,
		Recorder: recorder,
		Version:  "test",
		// generous so tests never trip the limiter
		LoginBurst:     1000,
		LoginPerSecond: 1000,
	})
	return &testEnv{api: api, tokens: tokens, accounts: accountStore, recorder: recorder}
}

// tokenFor mints a token for a synthetic account with the given role.
func (e *testEnv) tokenFor(t *testing.T, role auth.Role) string {
	t.Helper()
	id := fmt.Sprintf("acct-%s", role)
	token, _, err := e.tokens.Issue(auth.Identity{ID: id, Email: string(role) + "@opsdesk.test", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
