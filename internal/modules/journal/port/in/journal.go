package in

import (
	"context"
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
	"dansprotocol/internal/modules/journal/domain"
)

type Usecase interface {
	CreateSession(ctx context.Context, startDate time.Time, wake domain.WakeTime, language catalog.Language) (domain.Session, error)
	UpdateStatus(ctx context.Context, sessionID string, status domain.Status) (domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	LatestSession(ctx context.Context) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	CompletedSessions(ctx context.Context) ([]domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	UpsertEntry(ctx context.Context, sessionID, questionID string, part catalog.Part, response string) (domain.Entry, error)
	Entries(ctx context.Context, sessionID string, part catalog.Part) ([]domain.Entry, error)

	UpsertComponentField(ctx context.Context, sessionID string, field domain.ComponentField, value string) (domain.LifeGameComponents, error)
	Components(ctx context.Context, sessionID string) (domain.LifeGameComponents, error)

	ExportSession(ctx context.Context, sessionID string) (string, error)
}
