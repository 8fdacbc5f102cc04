package auth

import (
	"strings"
	"time"
)

// Role determines which operations an account may perform.
type Role string

const (
	RoleLeader   Role = "leader"
	RoleAnalyst  Role = "analyst"
	RoleExternal Role = "external"
)

// ParseRole normalizes raw input into a known role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleLeader:
		return RoleLeader, true
	case RoleAnalyst:
		return RoleAnalyst, true
	case RoleExternal:
		return RoleExternal, true
	}
	return "", false
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Internal reports whether the role belongs to platform staff.
func (r Role) Internal() bool {
	return r == RoleLeader || r == RoleAnalyst
}

// Identity is the authenticated subject of a request. It is embedded in a
// signed token and reconstructed per request; it is never stored as session
// state.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Account represents a platform user. The password hash never crosses the
// trust boundary: it is excluded from every serialized response.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Sector       string    `json:"sector,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity derives the token subject for this account.
func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Email: a.Email, Role: a.Role}
}
