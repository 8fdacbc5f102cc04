package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"opsdesk.org/internal/ids"
	"opsdesk.org/internal/obs"
)

var _ Recorder = (*PGRecorder)(nil)

// PGRecorder implements Recorder on PostgreSQL. The audit_entries table is
// insert-only; the schema carries a trigger that rejects update and delete.
type PGRecorder struct {
	db  *sql.DB
	now func() time.Time
}

func NewPGRecorder(db *sql.DB) *PGRecorder {
	return &PGRecorder{db: db, now: time.Now}
}

func (r *PGRecorder) Record(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now().UTC()
	}
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`insert into audit_entries(id, actor_id, actor_email, action, resource_type, resource_id, detail, ip_address, user_agent, occurred_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		entry.ID, entry.ActorID, entry.ActorEmail, string(entry.Action), string(entry.ResourceType),
		entry.ResourceID, detail, entry.IPAddress, entry.UserAgent, entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	obs.CountAuditEntry(string(entry.Action))
	logEntry(entry)
	return nil
}

func (r *PGRecorder) Search(ctx context.Context, q Query) ([]Entry, int, error) {
	where, args := buildFilter(q)

	var total int
	countQuery := `select count(*) from audit_entries` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	// (occurred_at, id) is a total order; ULID ids keep same-timestamp
	// entries in insertion order.
	query := `select id, actor_id, actor_email, action, resource_type, resource_id, detail, ip_address, user_agent, occurred_at
		 from audit_entries` + where +
		fmt.Sprintf(` order by occurred_at desc, id desc limit $%d`, len(args)+1)
	args = append(args, q.EffectiveLimit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			action     string
			resource   string
			detail     []byte
			resourceID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &action, &resource, &resourceID, &detail, &e.IPAddress, &e.UserAgent, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		e.Action = Action(action)
		e.ResourceType = ResourceType(resource)
		e.ResourceID = resourceID.String
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func buildFilter(q Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if q.ActorID != "" {
		add("actor_id = $%d", q.ActorID)
	}
	if q.Action != "" {
		add("action = $%d", string(q.Action))
	}
	if q.ResourceType != "" {
		add("resource_type = $%d", string(q.ResourceType))
	}
	if q.ResourceID != "" {
		add("resource_id = $%d", q.ResourceID)
	}
	if !q.From.IsZero() {
		add("occurred_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("occurred_at <= $%d", q.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " where " + strings.Join(clauses, " and "), args
}

// logEntry mirrors every appended entry to the structured log so the trail
// is visible in log shipping even before anyone queries the store.
func logEntry(entry *Entry) {
	obs.LogEntry(map[string]any{
		"ts":            entry.OccurredAt.Format(time.RFC3339Nano),
		"type":          "audit",
		"audit_id":      entry.ID,
		"actor_id":      entry.ActorID,
		"action":        string(entry.Action),
		"resource_type": string(entry.ResourceType),
		"resource_id":   entry.ResourceID,
	})
}
