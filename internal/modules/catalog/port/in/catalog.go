package in

import "dansprotocol/internal/modules/catalog/domain"

type Usecase interface {
	Questions(part domain.Part, typ domain.Type) []domain.Question
	Question(id string) (domain.Question, bool)
	InterruptIDs() []string
}
