package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"opsdesk.org/internal/obs"
	"opsdesk.org/internal/vault"
)

type createCredentialRequest struct {
	SystemID    string `json:"system_id"`
	Login       string `json:"login"`
	Secret      string `json:"secret"`
	Environment string `json:"environment"`
}

type credentialResponse struct {
	ID          string    `json:"id"`
	SystemID    string    `json:"system_id"`
	Login       string    `json:"login"`
	Environment string    `json:"environment"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type revealResponse struct {
	ID          string `json:"id"`
	SystemID    string `json:"system_id"`
	Login       string `json:"login"`
	Secret      string `json:"secret"`
	Environment string `json:"environment"`
}

func credentialToResponse(c *vault.Credential) credentialResponse {
	return credentialResponse{
		ID:          c.ID,
		SystemID:    c.SystemID,
		Login:       c.Login,
		Environment: string(c.Environment),
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
	}
}

func (a *API) handleCredentials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleCredentialCreate(w, r)
	case http.MethodGet:
		a.handleCredentialList(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleCredentialCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	var req createCredentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cred, err := a.vault.Create(r.Context(), vault.CreateInput{
		SystemID:    req.SystemID,
		Login:       req.Login,
		Secret:      req.Secret,
		Environment: vault.Environment(strings.ToLower(strings.TrimSpace(req.Environment))),
	}, identity)
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/credentials/%s", cred.ID))
	writeJSON(w, http.StatusCreated, credentialToResponse(cred))
}

func (a *API) handleCredentialList(w http.ResponseWriter, r *http.Request) {
	creds, err := a.vault.List(r.Context())
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, credentialToResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"credentials": out,
		"total":       len(out),
	})
}

// handleCredentialScoped routes /v1/credentials/{id} and
// /v1/credentials/{id}/reveal.
func (a *API) handleCredentialScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/credentials/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		a.handleCredentialByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "reveal":
		a.handleCredentialReveal(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleCredentialByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	// deleting vault credentials is a leader decision
	RequireRole(leaderOnly...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityOrFail(w, r)
		if !ok {
			return
		}
		if err := a.vault.Delete(r.Context(), id, identity); err != nil {
			handleVaultError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(w, r)
}

func (a *API) handleCredentialReveal(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := identityOrFail(w, r)
	if !ok {
		return
	}
	cred, secret, err := a.vault.Reveal(r.Context(), id, identity)
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	// The caller owns the plaintext from here; it is never logged or cached.
	writeJSON(w, http.StatusOK, revealResponse{
		ID:          cred.ID,
		SystemID:    cred.SystemID,
		Login:       cred.Login,
		Secret:      secret,
		Environment: string(cred.Environment),
	})
}

func handleVaultError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, vault.ErrInvalidInput):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, vault.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "credential not found")
	case errors.Is(err, vault.ErrDecrypt):
		// never explain which crypto check failed to the client
		obs.LogEntry(map[string]any{
			"level":      "error",
			"msg":        "credential_decrypt_failed",
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
