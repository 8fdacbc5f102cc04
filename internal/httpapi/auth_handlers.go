package httpapi

import (
	"errors"
	"net/http"
	"time"

	"opsdesk.org/internal/audit"
	"opsdesk.org/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      auth.Role `json:"role"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	account, err := a.accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = a.recorder.Record(r.Context(), &audit.Entry{
		ActorID:      account.ID,
		ActorEmail:   account.Email,
		Action:       audit.ActionAccountRegistered,
		ResourceType: audit.ResourceAccount,
		ResourceID:   account.ID,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresAt, identity, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = a.recorder.Record(r.Context(), &audit.Entry{
		ActorID:      identity.ID,
		ActorEmail:   identity.Email,
		Action:       audit.ActionTokenIssued,
		ResourceType: audit.ResourceAccount,
		ResourceID:   identity.ID,
		Detail:       map[string]string{"expires_at": expiresAt.Format(time.RFC3339)},
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      identity.Role,
	})
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "account already exists")
	case isAuthError(err):
		w.Header().Set("WWW-Authenticate", bearerScheme)
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
