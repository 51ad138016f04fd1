package in

import "context"

// Ledger records interrupt questions that fired but are not answered yet,
// scoped to one session.
type Ledger interface {
	Load(ctx context.Context, sessionID string) ([]string, error)
	Add(ctx context.Context, questionID, sessionID string) error
	AddLegacy(ctx context.Context, questionID string) error
	Remove(ctx context.Context, questionID, sessionID string) error
	Save(ctx context.Context, questionIDs []string, sessionID string) error
	Clear(ctx context.Context) error
}

// Snooze bounds how often a skipped interrupt is re-notified.
type Snooze interface {
	Count(ctx context.Context, questionID, sessionID string) (int, error)
	Increment(ctx context.Context, questionID, sessionID string) (int, error)
	HasReachedMax(ctx context.Context, questionID, sessionID string) (bool, error)
	Reset(ctx context.Context, questionID, sessionID string) error
	Clear(ctx context.Context) error
}
