package out

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dansprotocol/internal/modules/protocol/domain"
	protocolout "dansprotocol/internal/modules/protocol/port/out"
)

// Schema creates the local notification queue.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  fire_at TEXT NOT NULL,
  question_id TEXT NOT NULL DEFAULT '',
  session_id TEXT NOT NULL DEFAULT '',
  delivered_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(delivered_at, fire_at);
`

// Fixed-width UTC so fire_at compares correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteScheduler stands in for the platform notification center. Due
// notifications are handed out once and kept as delivered.
type SQLiteScheduler struct {
	db *sql.DB
}

func NewSQLiteScheduler(db *sql.DB) protocolout.Scheduler {
	return &SQLiteScheduler{db: db}
}

func (s *SQLiteScheduler) Schedule(ctx context.Context, n domain.Notification) error {
	const stmt = `
INSERT INTO notifications (id, kind, fire_at, question_id, session_id, delivered_at)
VALUES (?, ?, ?, ?, ?, NULL)
ON CONFLICT(id) DO UPDATE SET
  kind=excluded.kind,
  fire_at=excluded.fire_at,
  question_id=excluded.question_id,
  session_id=excluded.session_id,
  delivered_at=NULL;
`
	if _, err := s.db.ExecContext(ctx, stmt, n.ID, string(n.Kind), n.FireAt.UTC().Format(timeLayout), n.QuestionID, n.SessionID); err != nil {
		return fmt.Errorf("schedule notification %s: %w", n.ID, err)
	}
	return nil
}

// Cancel drops pending notifications whose id starts with idPrefix.
func (s *SQLiteScheduler) Cancel(ctx context.Context, idPrefix string) error {
	if strings.TrimSpace(idPrefix) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE delivered_at IS NULL AND substr(id, 1, ?) = ?;`, len(idPrefix), idPrefix)
	if err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}
	return nil
}

func (s *SQLiteScheduler) CancelID(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE delivered_at IS NULL AND id = ?;`, id); err != nil {
		return fmt.Errorf("cancel notification %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteScheduler) CancelAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE delivered_at IS NULL;`); err != nil {
		return fmt.Errorf("cancel all notifications: %w", err)
	}
	return nil
}

func (s *SQLiteScheduler) Due(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin due notifications: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := now.UTC().Format(timeLayout)
	rows, err := tx.QueryContext(ctx, `
SELECT id, kind, fire_at, question_id, session_id
FROM notifications WHERE delivered_at IS NULL AND fire_at <= ?
ORDER BY fire_at ASC, id ASC;
`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query due notifications: %w", err)
	}
	due, err := scanNotifications(rows)
	if err != nil {
		return nil, err
	}
	for _, n := range due {
		if _, err := tx.ExecContext(ctx, `UPDATE notifications SET delivered_at = ? WHERE id = ?;`, cutoff, n.ID); err != nil {
			return nil, fmt.Errorf("mark notification delivered: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit due notifications: %w", err)
	}
	return due, nil
}

func (s *SQLiteScheduler) Pending(ctx context.Context) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, kind, fire_at, question_id, session_id
FROM notifications WHERE delivered_at IS NULL
ORDER BY fire_at ASC, id ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("query pending notifications: %w", err)
	}
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]domain.Notification, error) {
	defer rows.Close()
	out := make([]domain.Notification, 0)
	for rows.Next() {
		var (
			n            domain.Notification
			kind, fireAt string
		)
		if err := rows.Scan(&n.ID, &kind, &fireAt, &n.QuestionID, &n.SessionID); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		at, err := time.Parse(timeLayout, fireAt)
		if err != nil {
			return nil, fmt.Errorf("parse fire at: %w", err)
		}
		n.Kind = domain.NotificationKind(kind)
		n.FireAt = at.Local()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}
