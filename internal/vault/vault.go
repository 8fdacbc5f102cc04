package vault

import (
	"errors"
	"strings"
	"time"
)

// Environment says which deployment of the third-party system a credential
// belongs to.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// ParseEnvironment normalizes raw input into a known environment.
func ParseEnvironment(raw string) (Environment, bool) {
	switch Environment(strings.TrimSpace(strings.ToLower(raw))) {
	case EnvProduction:
		return EnvProduction, true
	case EnvStaging:
		return EnvStaging, true
	case EnvDevelopment:
		return EnvDevelopment, true
	}
	return "", false
}

// Credential is a third-party system login with its secret encrypted at
// rest. The plaintext exists only transiently in memory during create and
// reveal; the store only ever sees ciphertext, nonce and algorithm id.
type Credential struct {
	ID          string      `json:"id"`
	SystemID    string      `json:"system_id"`
	Login       string      `json:"login"`
	Ciphertext  []byte      `json:"-"`
	Nonce       []byte      `json:"-"`
	Algorithm   string      `json:"-"`
	Environment Environment `json:"environment"`
	OwnerID     string      `json:"owner_id"`
	CreatedAt   time.Time   `json:"created_at"`
	DeletedAt   *time.Time  `json:"-"`
}

var (
	ErrNotFound     = errors.New("vault: not found")
	ErrInvalidInput = errors.New("vault: invalid input")
)
