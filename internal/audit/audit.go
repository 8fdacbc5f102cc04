package audit

import (
	"context"
	"errors"
	"time"
)

// Action identifies a sensitive operation. The set is closed: recording an
// unknown action is a programming error, not runtime input.
type Action string

const (
	ActionAccountRegistered      Action = "account.registered"
	ActionTokenIssued            Action = "auth.token.issued"
	ActionCredentialCreated      Action = "credential.created"
	ActionCredentialSecretViewed Action = "credential.secret.viewed"
	ActionCredentialDeleted      Action = "credential.deleted"
)

// Valid reports whether the action belongs to the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionAccountRegistered, ActionTokenIssued, ActionCredentialCreated,
		ActionCredentialSecretViewed, ActionCredentialDeleted:
		return true
	}
	return false
}

// ResourceType names the kind of resource an entry refers to.
type ResourceType string

const (
	ResourceAccount    ResourceType = "account"
	ResourceCredential ResourceType = "credential"
)

// Valid reports whether the resource type belongs to the closed set.
func (r ResourceType) Valid() bool {
	return r == ResourceAccount || r == ResourceCredential
}

// Entry is one immutable record of a sensitive action. Once appended it is
// never updated or deleted; no such operation exists on the store.
type Entry struct {
	ID           string            `json:"id"`
	ActorID      string            `json:"actor_id"`
	ActorEmail   string            `json:"actor_email"`
	Action       Action            `json:"action"`
	ResourceType ResourceType      `json:"resource_type"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Detail       map[string]string `json:"detail,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// Query filters entries. Every field is independently optional; the date
// range is inclusive on both ends.
type Query struct {
	ActorID      string
	Action       Action
	ResourceType ResourceType
	ResourceID   string
	From         time.Time
	To           time.Time
	Limit        int
}

const (
	// DefaultQueryLimit bounds unfiltered scans.
	DefaultQueryLimit = 100
	// MaxQueryLimit is the hard cap a caller may request.
	MaxQueryLimit = 1000
)

// EffectiveLimit clamps the requested limit into [1, MaxQueryLimit].
func (q Query) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		return MaxQueryLimit
	}
	return q.Limit
}

var (
	ErrInvalidEntry = errors.New("audit: invalid entry")
)

// Recorder appends and searches the append-only trail. Record propagates
// storage faults to the caller; they are never swallowed, because secret
// reveals must not proceed past a failed append.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	Search(ctx context.Context, q Query) ([]Entry, int, error)
}

// Validate checks the closed-set fields before an append.
func (e *Entry) Validate() error {
	if !e.Action.Valid() {
		return ErrInvalidEntry
	}
	if !e.ResourceType.Valid() {
		return ErrInvalidEntry
	}
	if e.ActorID == "" {
		return ErrInvalidEntry
	}
	return nil
}
