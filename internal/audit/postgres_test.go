package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRecorderRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into audit_entries").
		WithArgs(sqlmock.AnyArg(), "acct-1", "a@b.com", "credential.secret.viewed", "credential",
			"cred-7", sqlmock.AnyArg(), "10.0.0.1", "test-agent", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := NewPGRecorder(db)
	entry := &Entry{
		ActorID:      "acct-1",
		ActorEmail:   "a@b.com",
		Action:       ActionCredentialSecretViewed,
		ResourceType: ResourceCredential,
		ResourceID:   "cred-7",
		IPAddress:    "10.0.0.1",
		UserAgent:    "test-agent",
	}
	if err := rec.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" || entry.OccurredAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGRecorderRecordPropagatesStorageFault(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	storageErr := errors.New("connection reset")
	mock.ExpectExec("insert into audit_entries").WillReturnError(storageErr)

	rec := NewPGRecorder(db)
	entry := &Entry{ActorID: "acct-1", Action: ActionTokenIssued, ResourceType: ResourceAccount}
	if err := rec.Record(context.Background(), entry); !errors.Is(err, storageErr) {
		t.Fatalf("expected storage fault to propagate, got %v", err)
	}
}

func TestPGRecorderRecordRejectsUnknownAction(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rec := NewPGRecorder(db)
	entry := &Entry{ActorID: "acct-1", Action: "made.up", ResourceType: ResourceAccount}
	if err := rec.Record(context.Background(), entry); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestPGRecorderSearchWithFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("select count\\(\\*\\) from audit_entries where actor_id").
		WithArgs("acct-1", "credential.secret.viewed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows([]string{"id", "actor_id", "actor_email", "action", "resource_type", "resource_id", "detail", "ip_address", "user_agent", "occurred_at"}).
		AddRow("01B", "acct-1", "a@b.com", "credential.secret.viewed", "credential", "cred-2", []byte(`{}`), "", "", now).
		AddRow("01A", "acct-1", "a@b.com", "credential.secret.viewed", "credential", "cred-1", []byte(`{}`), "", "", now.Add(-time.Minute))
	mock.ExpectQuery("select id, actor_id, .* from audit_entries where actor_id .* order by occurred_at desc, id desc limit").
		WithArgs("acct-1", "credential.secret.viewed", DefaultQueryLimit).
		WillReturnRows(rows)

	rec := NewPGRecorder(db)
	entries, total, err := rec.Search(context.Background(), Query{
		ActorID: "acct-1",
		Action:  ActionCredentialSecretViewed,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("expected 2 entries with total 2, got %d/%d", len(entries), total)
	}
	if entries[0].ResourceID != "cred-2" {
		t.Fatalf("expected newest entry first, got %+v", entries[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
