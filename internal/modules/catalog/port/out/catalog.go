package out

import (
	"context"

	"dansprotocol/internal/modules/catalog/domain"
)

type Source interface {
	Load(ctx context.Context) (domain.Catalog, error)
}
