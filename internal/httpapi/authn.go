package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"opsdesk.org/internal/auth"
	"opsdesk.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	bearerScheme = "Bearer"
)

// withAuth authenticates the request: Bearer token out of the header,
// through token verification, identity into the context. Any failure
// short-circuits with a generic 401; the internal reason only goes to the
// log so the response does not distinguish tampered from expired tokens.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, reason := extractBearerToken(r.Header.Get(authHeader))
		if reason != "" {
			unauthorized(w, r, reason)
			return
		}

		identity, err := a.tokens.Verify(token)
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken returns the token, or a non-empty internal reason when
// the header is unusable.
func extractBearerToken(header string) (token, reason string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "no token"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", "malformed authorization header"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", "malformed authorization header"
	}
	return token, ""
}

// unauthorized writes the uniform 401. The caller-facing message never
// carries the internal reason.
func unauthorized(w http.ResponseWriter, r *http.Request, internalReason string) {
	obs.LogEntry(map[string]any{
		"level":      "warn",
		"msg":        "authentication_failed",
		"reason":     internalReason,
		"path":       r.URL.Path,
		"request_id": RequestIDFromContext(r.Context()),
	})
	w.Header().Set("WWW-Authenticate", bearerScheme)
	writeError(w, r, http.StatusUnauthorized, "unauthorized")
}

// RequireRole authorizes an already-authenticated request against the
// allowed role set. A missing identity is a programming error in the chain
// and is refused, never silently allowed.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "no identity in context")
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				w.Header().Set("WWW-Authenticate", bearerScheme)
				writeError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identityOrFail pulls the identity handlers rely on after the gate ran.
func identityOrFail(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "no identity in context")
		return auth.Identity{}, false
	}
	return identity, true
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrUnauthorized) || errors.Is(err, auth.ErrInvalidToken)
}
