package vault

import "context"

// Store describes credential persistence. Delete is soft, in line with the
// platform's record store; revealed history stays resolvable for the audit
// trail.
type Store interface {
	Create(ctx context.Context, cred *Credential) error
	Find(ctx context.Context, id string) (*Credential, error)
	List(ctx context.Context) ([]*Credential, error)
	SoftDelete(ctx context.Context, id string) error
}
