package dto

import (
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
	journal "dansprotocol/internal/modules/journal/domain"
	"dansprotocol/internal/modules/protocol/domain"
)

type OnboardingInput struct {
	StartDate time.Time
	Wake      journal.WakeTime
	Language  catalog.Language
}

type OnboardingOutput struct {
	Session    journal.Session
	Permission domain.Permission
	Scheduled  []domain.Notification
}

type FinishPart2Output struct {
	// Unanswered counts interrupt questions still without a response.
	Unanswered int
}

type SkipOutput struct {
	SnoozeCount int
	Rescheduled bool
	FireAt      time.Time
}

type Snapshot struct {
	State           domain.State
	Session         *journal.Session
	Permission      domain.Permission
	ActiveInterrupt string
	Showing         bool
	Pending         []string
	Drafts          map[string]string
}

type DeliverOutput struct {
	Delivered []domain.Notification
}

type AdvanceOutput struct {
	From domain.State
	To   domain.State
	// Unanswered is set when leaving Part 2.
	Unanswered int
}

// RespondOutput carries the entry for journal questions or the updated
// components for Life Game questions.
type RespondOutput struct {
	Entry      *journal.Entry
	Components *journal.LifeGameComponents
}
