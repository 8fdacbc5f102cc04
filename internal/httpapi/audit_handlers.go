package httpapi

import (
	"net/http"
	"strings"
	"time"

	"opsdesk.org/internal/audit"
)

type auditSearchResponse struct {
	Entries []audit.Entry `json:"entries"`
	Total   int           `json:"total"`
}

func (a *API) handleAuditSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	q, err := parseAuditQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, total, err := a.recorder.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "audit query failed")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, auditSearchResponse{Entries: entries, Total: total})
}

func parseAuditQuery(r *http.Request) (audit.Query, error) {
	params := r.URL.Query()
	q := audit.Query{
		ActorID:      strings.TrimSpace(params.Get("actor_id")),
		Action:       audit.Action(strings.TrimSpace(params.Get("action"))),
		ResourceType: audit.ResourceType(strings.TrimSpace(params.Get("resource_type"))),
		ResourceID:   strings.TrimSpace(params.Get("resource_id")),
	}

	limit, err := parsePositiveInt(params.Get("limit"), 0, 1, audit.MaxQueryLimit)
	if err != nil {
		return audit.Query{}, err
	}
	q.Limit = limit

	// both bounds inclusive
	if raw := strings.TrimSpace(params.Get("from")); raw != "" {
		from, err := parseDay(raw, false)
		if err != nil {
			return audit.Query{}, err
		}
		q.From = from
	}
	if raw := strings.TrimSpace(params.Get("to")); raw != "" {
		to, err := parseDay(raw, true)
		if err != nil {
			return audit.Query{}, err
		}
		q.To = to
	}
	return q, nil
}

// parseDay accepts RFC 3339 timestamps or bare dates. A bare "to" date
// covers the whole day.
func parseDay(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
