package out_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
	journalstore "dansprotocol/internal/modules/journal/adapter/out"
	"dansprotocol/internal/modules/journal/domain"
	"dansprotocol/internal/platform/sqlitedb"
)

func TestSessionsSurviveReopenAndLegacyStatusDecodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "protocol.db")
	db, mode, err := sqlitedb.Open(ctx, path, []string{journalstore.Schema}, nil)
	if err != nil || mode != sqlitedb.ModePersistent {
		t.Fatalf("open: mode=%s err=%v", mode, err)
	}
	store := journalstore.NewSQLiteStore(db)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	session := domain.Session{
		ID:         "s1",
		StartDate:  start,
		WakeUpTime: start.Add(7 * time.Hour),
		Language:   catalog.Korean,
		Status:     domain.StatusPart2,
		CreatedAt:  start,
	}
	if err := store.PutSession(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE sessions SET status = 'part3' WHERE id = 's1'`); err != nil {
		t.Fatalf("write legacy status: %v", err)
	}
	_ = db.Close()

	db, _, err = sqlitedb.Open(ctx, path, []string{journalstore.Schema}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	got, err := journalstore.NewSQLiteStore(db).GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPart3Synthesis {
		t.Fatalf("expected legacy part3 to decode as part3Synthesis, got %s", got.Status)
	}
	if !got.WakeUpTime.Equal(session.WakeUpTime) || got.Language != catalog.Korean {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.CompletedAt.IsZero() {
		t.Fatalf("completedAt must stay unset")
	}
}
