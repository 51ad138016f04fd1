package service

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"dansprotocol/internal/modules/catalog/domain"
	catalogin "dansprotocol/internal/modules/catalog/port/in"
	catalogout "dansprotocol/internal/modules/catalog/port/out"
)

type CatalogService struct {
	catalog domain.Catalog
}

// Load reads the catalog once. A missing or malformed document degrades to
// an empty catalog so callers see "no questions" instead of failing.
func Load(ctx context.Context, source catalogout.Source, logger hclog.Logger) catalogin.Usecase {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	catalog, err := source.Load(ctx)
	if err != nil {
		logger.Warn("question catalog unavailable, using empty catalog", "error", err)
		catalog = domain.Empty()
	}
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) Questions(part domain.Part, typ domain.Type) []domain.Question {
	return s.catalog.Questions(part, typ)
}

func (s *CatalogService) Question(id string) (domain.Question, bool) {
	return s.catalog.Question(id)
}

func (s *CatalogService) InterruptIDs() []string {
	return s.catalog.InterruptIDs()
}
