package in

import (
	"context"
	"time"

	"dansprotocol/internal/modules/protocol/dto"
	protocolin "dansprotocol/internal/modules/protocol/port/in"
)

type CLIHandler struct {
	usecase protocolin.Usecase
}

func NewCLIHandler(usecase protocolin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Start(ctx context.Context) (dto.Snapshot, error) {
	return h.usecase.Start(ctx)
}

func (h CLIHandler) Status(ctx context.Context) dto.Snapshot {
	return h.usecase.Snapshot(ctx)
}

func (h CLIHandler) Onboard(ctx context.Context, date, wake, lang string, today time.Time) (dto.OnboardingOutput, error) {
	input, err := dto.ParseOnboardingInput(date, wake, lang, today)
	if err != nil {
		return dto.OnboardingOutput{}, err
	}
	return h.usecase.CompleteOnboarding(ctx, input)
}

func (h CLIHandler) Advance(ctx context.Context) (dto.AdvanceOutput, error) {
	return h.usecase.Advance(ctx)
}

func (h CLIHandler) Answer(ctx context.Context, questionID, response string) (dto.RespondOutput, error) {
	return h.usecase.Respond(ctx, questionID, response)
}

func (h CLIHandler) Component(ctx context.Context, field, value string) (dto.ComponentsView, error) {
	input, err := dto.ParseComponentInput(field, value)
	if err != nil {
		return dto.ComponentsView{}, err
	}
	components, err := h.usecase.SaveComponent(ctx, input.Field, input.Value)
	if err != nil {
		return dto.ComponentsView{}, err
	}
	return dto.NewComponentsView(components), nil
}

func (h CLIHandler) Components(ctx context.Context) (dto.ComponentsView, error) {
	components, err := h.usecase.Components(ctx)
	if err != nil {
		return dto.ComponentsView{}, err
	}
	return dto.NewComponentsView(components), nil
}

func (h CLIHandler) Surface(ctx context.Context) (string, bool) {
	return h.usecase.SurfaceInterrupt(ctx)
}

func (h CLIHandler) Skip(ctx context.Context, questionID string) dto.SkipOutput {
	return h.usecase.OnInterruptSkipped(ctx, questionID)
}

func (h CLIHandler) Dismiss() {
	h.usecase.OnDismissInterrupt()
}

func (h CLIHandler) Tap(ctx context.Context, questionID, sessionID string) {
	h.usecase.OnNotificationTap(ctx, questionID, sessionID)
}

func (h CLIHandler) Deliver(ctx context.Context, tap bool) ([]dto.NotificationView, error) {
	out, err := h.usecase.DeliverDue(ctx, tap)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationViews(out.Delivered), nil
}

func (h CLIHandler) Upcoming(ctx context.Context) ([]dto.NotificationView, error) {
	pending, err := h.usecase.Upcoming(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationViews(pending), nil
}

func (h CLIHandler) Entries(ctx context.Context) ([]dto.EntryView, error) {
	entries, err := h.usecase.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewEntryViews(entries), nil
}

func (h CLIHandler) History(ctx context.Context) ([]dto.SessionView, error) {
	sessions, err := h.usecase.History(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewSessionViews(sessions), nil
}

func (h CLIHandler) NewRun(ctx context.Context) error {
	return h.usecase.StartNewRun(ctx)
}

func (h CLIHandler) Export(ctx context.Context, sessionID string) (string, error) {
	return h.usecase.Export(ctx, sessionID)
}

// Questions lists catalog questions in lang, or in the current session's
// language when lang is empty.
func (h CLIHandler) Questions(ctx context.Context, part int, typ, lang string) ([]dto.QuestionView, error) {
	if lang == "" {
		if snap := h.usecase.Snapshot(ctx); snap.Session != nil {
			lang = string(snap.Session.Language)
		}
	}
	filter, err := dto.ParseQuestionFilter(part, typ, lang)
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionViews(h.usecase.Questions(filter.Part, filter.Type), filter.Language), nil
}
