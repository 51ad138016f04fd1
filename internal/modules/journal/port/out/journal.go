package out

import (
	"context"

	catalog "dansprotocol/internal/modules/catalog/domain"
	"dansprotocol/internal/modules/journal/domain"
)

// EntryQuery selects entries of one session; a zero Part matches every part.
type EntryQuery struct {
	SessionID string
	Part      catalog.Part
}

// Store is the persistent object store for sessions, entries and components.
// Lookups of absent records return apperrors.ErrNotFound.
type Store interface {
	PutSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	DeleteSession(ctx context.Context, id string) error

	PutEntry(ctx context.Context, entry domain.Entry) error
	FindEntry(ctx context.Context, sessionID, questionKey string) (domain.Entry, error)
	QueryEntries(ctx context.Context, query EntryQuery) ([]domain.Entry, error)

	PutComponents(ctx context.Context, components domain.LifeGameComponents) error
	GetComponents(ctx context.Context, sessionID string) (domain.LifeGameComponents, error)
}

// Exporter writes a session, its entries and components as a document and
// returns where it was written. components is nil when none were recorded.
type Exporter interface {
	Export(ctx context.Context, session domain.Session, entries []domain.Entry, components *domain.LifeGameComponents) (string, error)
}
