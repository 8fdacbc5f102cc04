package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/obs"
	"opsdesk.org/internal/vault"
)

// ReadyProbe checks backing-store readiness for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Role sets routes declare at registration time. The middleware chain is the
// single enforcement point; no handler re-checks roles.
var (
	internalOnly = []auth.Role{auth.RoleLeader, auth.RoleAnalyst}
	leaderOnly   = []auth.Role{auth.RoleLeader}
)

// API is the HTTP layer over the trust core.
type API struct {
	mux        *http.ServeMux
	accounts   *auth.Service
	tokens     *auth.Tokens
	vault      *vault.Service
	recorder   audit.Recorder
	readyProbe ReadyProbe
	version    string

	loginBurst     int
	loginPerSecond int
}

// Deps wires the API's collaborators.
type Deps struct {
	Accounts   *auth.Service
	Tokens     *auth.Tokens
	Vault      *vault.Service
	Recorder   audit.Recorder
	ReadyProbe ReadyProbe
	Version    string

	// Rate limit applied to the credential-guessing surface
	// (register/login). Zero values fall back to defaults.
	LoginBurst     int
	LoginPerSecond int
}

func New(deps Deps) *API {
	a := &API{
		mux:            http.NewServeMux(),
		accounts:       deps.Accounts,
		tokens:         deps.Tokens,
		vault:          deps.Vault,
		recorder:       deps.Recorder,
		readyProbe:     deps.ReadyProbe,
		version:        deps.Version,
		loginBurst:     deps.LoginBurst,
		loginPerSecond: deps.LoginPerSecond,
	}
	if a.loginBurst <= 0 {
		a.loginBurst = 10
	}
	if a.loginPerSecond <= 0 {
		a.loginPerSecond = 5
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// public auth surface, rate limited against brute force
	a.mux.Handle("/v1/auth/register", RateLimit(http.HandlerFunc(a.handleRegister), a.loginBurst, a.loginPerSecond))
	a.mux.Handle("/v1/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), a.loginBurst, a.loginPerSecond))

	// protected routes declare their allowed role set here, once
	a.mux.Handle("/v1/credentials", a.protected(internalOnly, a.handleCredentials))
	a.mux.Handle("/v1/credentials/", a.protected(internalOnly, a.handleCredentialScoped))
	a.mux.Handle("/v1/audit", a.protected(internalOnly, a.handleAuditSearch))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// protected chains authentication and role authorization in front of a
// handler. DELETE /v1/credentials/{id} tightens to leader-only inside the
// scoped handler via RequireRole, still ahead of any handler logic.
func (a *API) protected(roles []auth.Role, h http.HandlerFunc) http.Handler {
	return a.withAuth(RequireRole(roles...)(h))
}

// Handler returns the fully wrapped root handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
