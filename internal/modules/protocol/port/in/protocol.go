package in

import (
	"context"

	catalog "dansprotocol/internal/modules/catalog/domain"
	journal "dansprotocol/internal/modules/journal/domain"
	"dansprotocol/internal/modules/protocol/domain"
	"dansprotocol/internal/modules/protocol/dto"
)

type Usecase interface {
	Start(ctx context.Context) (dto.Snapshot, error)
	CompleteOnboarding(ctx context.Context, input dto.OnboardingInput) (dto.OnboardingOutput, error)
	FinishPart1(ctx context.Context) error
	FinishPart2(ctx context.Context) (dto.FinishPart2Output, error)
	FinishSynthesis(ctx context.Context) error
	FinishComponents(ctx context.Context) error
	ShowHistory(ctx context.Context) error
	StartNewRun(ctx context.Context) error
	// Advance moves to the phase after the current one.
	Advance(ctx context.Context) (dto.AdvanceOutput, error)

	SurfaceInterrupt(ctx context.Context) (string, bool)
	OnNotificationFired(ctx context.Context, questionID, sessionID string)
	OnNotificationTap(ctx context.Context, questionID, sessionID string)
	OnInterruptAnswered(ctx context.Context, questionID, sessionID string)
	OnInterruptSkipped(ctx context.Context, questionID string) dto.SkipOutput
	OnDismissInterrupt()
	DeliverDue(ctx context.Context, tap bool) (dto.DeliverOutput, error)
	Upcoming(ctx context.Context) ([]domain.Notification, error)

	AnswerInterrupt(ctx context.Context, questionID, response string) (journal.Entry, error)
	SaveAnswer(ctx context.Context, part catalog.Part, questionID, response string) (journal.Entry, error)
	SaveComponent(ctx context.Context, field journal.ComponentField, value string) (journal.LifeGameComponents, error)
	// Respond records a response to any catalog question, routing it by type.
	Respond(ctx context.Context, questionID, response string) (dto.RespondOutput, error)

	Snapshot(ctx context.Context) dto.Snapshot
	Entries(ctx context.Context) ([]journal.Entry, error)
	Components(ctx context.Context) (journal.LifeGameComponents, error)
	History(ctx context.Context) ([]journal.Session, error)
	Export(ctx context.Context, sessionID string) (string, error)
	Questions(part catalog.Part, typ catalog.Type) []catalog.Question
}
