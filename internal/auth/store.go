package auth

import "context"

// AccountStore describes the persistence operations the auth subsystem
// needs. The record store behind it owns concurrency and isolation.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}
