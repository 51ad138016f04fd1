package out

import (
	"context"
	"time"

	"dansprotocol/internal/modules/protocol/domain"
)

// Scheduler is the local notification service. Scheduling an id that is
// already pending replaces it.
type Scheduler interface {
	Schedule(ctx context.Context, n domain.Notification) error
	Cancel(ctx context.Context, idPrefix string) error
	// CancelID drops the pending notification with exactly this id.
	CancelID(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	// Due marks every pending notification with FireAt <= now as delivered and returns them.
	Due(ctx context.Context, now time.Time) ([]domain.Notification, error)
	Pending(ctx context.Context) ([]domain.Notification, error)
}

// PermissionRequester asks the platform for notification permission. It may
// block until the user responds.
type PermissionRequester interface {
	Request(ctx context.Context) (domain.Permission, error)
}

// Dispatcher runs fn later, outside the caller's stack.
type Dispatcher interface {
	Post(fn func())
}
