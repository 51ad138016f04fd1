package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	catalog "dansprotocol/internal/modules/catalog/domain"
	"dansprotocol/internal/modules/journal/domain"
	journalin "dansprotocol/internal/modules/journal/port/in"
	journalout "dansprotocol/internal/modules/journal/port/out"
	"dansprotocol/internal/platform/clock"
	apperrors "dansprotocol/internal/platform/errors"
	"dansprotocol/internal/platform/id"
)

// entryWriteAttempts bounds how often a journal entry write is tried before
// the failure is reported to the caller.
const entryWriteAttempts = 3

type JournalService struct {
	mu       sync.Mutex
	clock    clock.Clock
	idGen    id.Generator
	store    journalout.Store
	exporter journalout.Exporter
	logger   hclog.Logger
}

func NewJournalService(clock clock.Clock, idGen id.Generator, store journalout.Store, exporter journalout.Exporter, logger hclog.Logger) journalin.Usecase {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &JournalService{clock: clock, idGen: idGen, store: store, exporter: exporter, logger: logger}
}

func (s *JournalService) CreateSession(ctx context.Context, startDate time.Time, wake domain.WakeTime, language catalog.Language) (domain.Session, error) {
	if err := wake.Validate(); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	lang, err := catalog.ParseLanguage(string(language))
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	day := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())
	session := domain.Session{
		ID:         s.idGen.New(),
		StartDate:  day,
		WakeUpTime: wake.On(day),
		Language:   lang,
		Status:     domain.StatusNotStarted,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.PutSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *JournalService) UpdateStatus(ctx context.Context, sessionID string, status domain.Status) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	session.SetStatus(status, s.clock.Now())
	if err := s.store.PutSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *JournalService) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// LatestSession returns the session with the latest start date.
func (s *JournalService) LatestSession(ctx context.Context) (domain.Session, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if len(sessions) == 0 {
		return domain.Session{}, apperrors.ErrNotFound
	}
	return sessions[len(sessions)-1], nil
}

// ListSessions returns every session, oldest first.
func (s *JournalService) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[j].After(sessions[i])
	})
	return sessions, nil
}

func (s *JournalService) CompletedSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Status == domain.StatusCompleted {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *JournalService) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteSession(ctx, sessionID)
}

// UpsertEntry overwrites the response of the session's entry for questionID,
// creating it on first write. Blank responses are rejected. Store failures
// are retried; when every attempt fails ErrPersistFailed is returned so the
// caller keeps the text and can try again.
func (s *JournalService) UpsertEntry(ctx context.Context, sessionID, questionID string, part catalog.Part, response string) (domain.Entry, error) {
	if strings.TrimSpace(response) == "" {
		return domain.Entry{}, apperrors.ErrEmptyResponse
	}
	if strings.TrimSpace(questionID) == "" {
		return domain.Entry{}, fmt.Errorf("%w: question id is required", apperrors.ErrInvalidInput)
	}
	if err := part.Validate(); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetSession(ctx, sessionID); errors.Is(err, apperrors.ErrNotFound) {
		return domain.Entry{}, err
	}
	var lastErr error
	for attempt := 1; attempt <= entryWriteAttempts; attempt++ {
		entry, err := s.upsertEntry(ctx, sessionID, questionID, part, response)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Entry{}, err
		}
		lastErr = err
		s.logger.Warn("journal entry write failed", "session", sessionID, "question", questionID, "attempt", attempt, "error", err)
	}
	return domain.Entry{}, fmt.Errorf("%w: %v", apperrors.ErrPersistFailed, lastErr)
}

func (s *JournalService) upsertEntry(ctx context.Context, sessionID, questionID string, part catalog.Part, response string) (domain.Entry, error) {
	entry, err := s.store.FindEntry(ctx, sessionID, questionID)
	switch {
	case err == nil:
		entry.Response = response
	case errors.Is(err, apperrors.ErrNotFound):
		entry = domain.Entry{
			ID:          s.idGen.New(),
			SessionID:   sessionID,
			Part:        part,
			QuestionKey: questionID,
			Response:    response,
			CreatedAt:   s.clock.Now(),
		}
	default:
		return domain.Entry{}, err
	}
	if err := s.store.PutEntry(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

func (s *JournalService) Entries(ctx context.Context, sessionID string, part catalog.Part) ([]domain.Entry, error) {
	return s.store.QueryEntries(ctx, journalout.EntryQuery{SessionID: sessionID, Part: part})
}

// UpsertComponentField creates the session's components record on first
// write and sets one field on it.
func (s *JournalService) UpsertComponentField(ctx context.Context, sessionID string, field domain.ComponentField, value string) (domain.LifeGameComponents, error) {
	if _, err := domain.ParseComponentField(string(field)); err != nil {
		return domain.LifeGameComponents{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	components, err := s.store.GetComponents(ctx, sessionID)
	if errors.Is(err, apperrors.ErrNotFound) {
		components = domain.LifeGameComponents{SessionID: sessionID, DailyLevers: []string{}}
	} else if err != nil {
		return domain.LifeGameComponents{}, err
	}
	if err := components.Set(field, value); err != nil {
		return domain.LifeGameComponents{}, err
	}
	if err := s.store.PutComponents(ctx, components); err != nil {
		return domain.LifeGameComponents{}, err
	}
	return components, nil
}

func (s *JournalService) Components(ctx context.Context, sessionID string) (domain.LifeGameComponents, error) {
	return s.store.GetComponents(ctx, sessionID)
}

// ExportSession renders the session with everything recorded for it.
func (s *JournalService) ExportSession(ctx context.Context, sessionID string) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("%w: export is not configured", apperrors.ErrInvalidInput)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	entries, err := s.Entries(ctx, sessionID, 0)
	if err != nil {
		return "", err
	}
	var components *domain.LifeGameComponents
	c, err := s.store.GetComponents(ctx, sessionID)
	switch {
	case err == nil:
		components = &c
	case !errors.Is(err, apperrors.ErrNotFound):
		return "", err
	}
	path, err := s.exporter.Export(ctx, session, entries, components)
	if err != nil {
		return "", err
	}
	s.logger.Info("session exported", "session", sessionID, "path", path)
	return path, nil
}
