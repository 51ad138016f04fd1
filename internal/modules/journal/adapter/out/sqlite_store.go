package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
	"dansprotocol/internal/modules/journal/domain"
	journalout "dansprotocol/internal/modules/journal/port/out"
	apperrors "dansprotocol/internal/platform/errors"
)

// Schema creates the journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  start_date TEXT NOT NULL,
  wake_up_time TEXT NOT NULL,
  language TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  completed_at TEXT
);
CREATE TABLE IF NOT EXISTS journal_entries (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  part INTEGER NOT NULL,
  question_key TEXT NOT NULL,
  response TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_session_question ON journal_entries(session_id, question_key);
CREATE INDEX IF NOT EXISTS idx_entries_session_part ON journal_entries(session_id, part);
CREATE TABLE IF NOT EXISTS life_game_components (
  session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
  anti_vision TEXT NOT NULL,
  vision TEXT NOT NULL,
  one_year_goal TEXT NOT NULL,
  one_month_project TEXT NOT NULL,
  daily_levers TEXT NOT NULL,
  constraints TEXT NOT NULL
);
`

const timeLayout = time.RFC3339Nano

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) journalout.Store {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) PutSession(ctx context.Context, session domain.Session) error {
	const stmt = `
INSERT INTO sessions (id, start_date, wake_up_time, language, status, created_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  start_date=excluded.start_date,
  wake_up_time=excluded.wake_up_time,
  language=excluded.language,
  status=excluded.status,
  completed_at=excluded.completed_at;
`
	_, err := s.db.ExecContext(ctx, stmt,
		session.ID,
		session.StartDate.Format(timeLayout),
		session.WakeUpTime.Format(timeLayout),
		string(session.Language),
		string(session.Status),
		session.CreatedAt.Format(timeLayout),
		nullableTime(session.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, start_date, wake_up_time, language, status, created_at, completed_at
FROM sessions WHERE id = ?;
`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	return session, err
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, start_date, wake_up_time, language, status, created_at, completed_at
FROM sessions ORDER BY start_date ASC, created_at ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// DeleteSession removes the session together with its entries and components.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM journal_entries WHERE session_id = ?;`,
		`DELETE FROM life_game_components WHERE session_id = ?;`,
		`DELETE FROM sessions WHERE id = ?;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutEntry(ctx context.Context, entry domain.Entry) error {
	const stmt = `
INSERT INTO journal_entries (id, session_id, part, question_key, response, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  part=excluded.part,
  response=excluded.response;
`
	_, err := s.db.ExecContext(ctx, stmt,
		entry.ID,
		entry.SessionID,
		int(entry.Part),
		entry.QuestionKey,
		entry.Response,
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindEntry(ctx context.Context, sessionID, questionKey string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, session_id, part, question_key, response, created_at
FROM journal_entries WHERE session_id = ? AND question_key = ?
ORDER BY created_at ASC LIMIT 1;
`, sessionID, questionKey)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("entry %s: %w", questionKey, apperrors.ErrNotFound)
	}
	return entry, err
}

func (s *SQLiteStore) QueryEntries(ctx context.Context, query journalout.EntryQuery) ([]domain.Entry, error) {
	stmt := `
SELECT id, session_id, part, question_key, response, created_at
FROM journal_entries WHERE session_id = ?`
	args := []any{query.SessionID}
	if query.Part != 0 {
		stmt += ` AND part = ?`
		args = append(args, int(query.Part))
	}
	stmt += ` ORDER BY created_at ASC, id ASC;`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) PutComponents(ctx context.Context, c domain.LifeGameComponents) error {
	levers, err := domain.EncodeLevers(c.DailyLevers)
	if err != nil {
		return err
	}
	const stmt = `
INSERT INTO life_game_components (session_id, anti_vision, vision, one_year_goal, one_month_project, daily_levers, constraints)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
  anti_vision=excluded.anti_vision,
  vision=excluded.vision,
  one_year_goal=excluded.one_year_goal,
  one_month_project=excluded.one_month_project,
  daily_levers=excluded.daily_levers,
  constraints=excluded.constraints;
`
	if _, err := s.db.ExecContext(ctx, stmt, c.SessionID, c.AntiVision, c.Vision, c.OneYearGoal, c.OneMonthProject, levers, c.Constraints); err != nil {
		return fmt.Errorf("put components: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetComponents(ctx context.Context, sessionID string) (domain.LifeGameComponents, error) {
	c := domain.LifeGameComponents{}
	var levers string
	err := s.db.QueryRowContext(ctx, `
SELECT session_id, anti_vision, vision, one_year_goal, one_month_project, daily_levers, constraints
FROM life_game_components WHERE session_id = ?;
`, sessionID).Scan(&c.SessionID, &c.AntiVision, &c.Vision, &c.OneYearGoal, &c.OneMonthProject, &levers, &c.Constraints)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LifeGameComponents{}, fmt.Errorf("components %s: %w", sessionID, apperrors.ErrNotFound)
	}
	if err != nil {
		return domain.LifeGameComponents{}, fmt.Errorf("get components: %w", err)
	}
	if c.DailyLevers, err = domain.DecodeLevers(levers); err != nil {
		return domain.LifeGameComponents{}, err
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var (
		session                         domain.Session
		startDate, wakeUp, lang, status string
		createdAt                       string
		completedAt                     sql.NullString
	)
	if err := row.Scan(&session.ID, &startDate, &wakeUp, &lang, &status, &createdAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("scan session: %w", err)
	}
	var err error
	if session.StartDate, err = time.Parse(timeLayout, startDate); err != nil {
		return domain.Session{}, fmt.Errorf("parse start date: %w", err)
	}
	if session.WakeUpTime, err = time.Parse(timeLayout, wakeUp); err != nil {
		return domain.Session{}, fmt.Errorf("parse wake up time: %w", err)
	}
	if session.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.Session{}, fmt.Errorf("parse created at: %w", err)
	}
	if completedAt.Valid && completedAt.String != "" {
		if session.CompletedAt, err = time.Parse(timeLayout, completedAt.String); err != nil {
			return domain.Session{}, fmt.Errorf("parse completed at: %w", err)
		}
	}
	if session.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Session{}, err
	}
	session.Language = catalog.Language(lang)
	return session, nil
}

func scanEntry(row scanner) (domain.Entry, error) {
	var (
		entry     domain.Entry
		part      int
		createdAt string
	)
	if err := row.Scan(&entry.ID, &entry.SessionID, &part, &entry.QuestionKey, &entry.Response, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Entry{}, err
		}
		return domain.Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	entry.Part = catalog.Part(part)
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("parse entry created at: %w", err)
	}
	entry.CreatedAt = created
	return entry, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(timeLayout)
}
