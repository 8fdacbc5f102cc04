package vault

import (
	"context"
	"database/sql"
	"errors"

	"opsdesk.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const credentialColumns = `id, system_id, login, ciphertext, nonce, algorithm, environment, owner_id, created_at, deleted_at`

func (s *PGStore) Create(ctx context.Context, cred *Credential) error {
	if cred.ID == "" {
		cred.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into credentials(id, system_id, login, ciphertext, nonce, algorithm, environment, owner_id) values($1,$2,$3,$4,$5,$6,$7,$8)`,
		cred.ID, cred.SystemID, cred.Login, cred.Ciphertext, cred.Nonce, cred.Algorithm, string(cred.Environment), cred.OwnerID,
	)
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+credentialColumns+` from credentials where id=$1`, id)
	var (
		c   Credential
		env string
	)
	err := row.Scan(&c.ID, &c.SystemID, &c.Login, &c.Ciphertext, &c.Nonce, &c.Algorithm, &env, &c.OwnerID, &c.CreatedAt, &c.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Environment = Environment(env)
	return &c, nil
}

func (s *PGStore) List(ctx context.Context) ([]*Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+credentialColumns+` from credentials where deleted_at is null order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*Credential
	for rows.Next() {
		var (
			c   Credential
			env string
		)
		if err := rows.Scan(&c.ID, &c.SystemID, &c.Login, &c.Ciphertext, &c.Nonce, &c.Algorithm, &env, &c.OwnerID, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, err
		}
		c.Environment = Environment(env)
		creds = append(creds, &c)
	}
	return creds, rows.Err()
}

func (s *PGStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update credentials set deleted_at = now() where id=$1 and deleted_at is null`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
