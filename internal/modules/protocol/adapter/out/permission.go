package out

import (
	"context"

	"dansprotocol/internal/modules/protocol/domain"
	protocolout "dansprotocol/internal/modules/protocol/port/out"
)

// StaticPermission answers the permission prompt from configuration; a
// terminal has no system prompt to show.
type StaticPermission struct {
	enabled bool
}

func NewStaticPermission(enabled bool) protocolout.PermissionRequester {
	return StaticPermission{enabled: enabled}
}

func (p StaticPermission) Request(_ context.Context) (domain.Permission, error) {
	if p.enabled {
		return domain.PermissionAuthorized, nil
	}
	return domain.PermissionDenied, nil
}
