package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"opsdesk.org/internal/ids"
)

var _ AccountStore = (*PGAccountStore)(nil)

// PGAccountStore implements AccountStore on PostgreSQL.
type PGAccountStore struct {
	db *sql.DB
}

func NewPGAccountStore(db *sql.DB) *PGAccountStore {
	return &PGAccountStore{db: db}
}

const accountColumns = `id, name, email, password_hash, role, sector, active, created_at, updated_at`

func (s *PGAccountStore) Create(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into accounts(id, name, email, password_hash, role, sector, active) values($1,$2,$3,$4,$5,$6,$7)`,
		account.ID, account.Name, account.Email, account.PasswordHash, string(account.Role), account.Sector, account.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGAccountStore) Find(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *PGAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from accounts where email=$1`, email)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*Account, error) {
	var (
		a    Account
		role string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &a.Sector, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Role = Role(role)
	return &a, nil
}
