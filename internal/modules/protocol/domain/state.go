package domain

import (
	"fmt"
	"time"

	journal "dansprotocol/internal/modules/journal/domain"
)

// State is what the app should be showing.
type State string

const (
	StateLoading         State = "loading"
	StateOnboarding      State = "onboarding"
	StatePart1           State = "part1"
	StatePart2Waiting    State = "part2Waiting"
	StatePart3Synthesis  State = "part3Synthesis"
	StatePart3Components State = "part3Components"
	StateCompleted       State = "completed"
	StateHistory         State = "history"
)

// StateForStatus maps a persisted session status to the state shown on launch.
func StateForStatus(status journal.Status) State {
	switch status {
	case journal.StatusNotStarted, journal.StatusPart1:
		return StatePart1
	case journal.StatusPart2:
		return StatePart2Waiting
	case journal.StatusPart3Synthesis:
		return StatePart3Synthesis
	case journal.StatusPart3Components:
		return StatePart3Components
	case journal.StatusCompleted:
		return StateHistory
	default:
		return StateOnboarding
	}
}

type Permission string

const (
	PermissionAuthorized    Permission = "authorized"
	PermissionDenied        Permission = "denied"
	PermissionNotDetermined Permission = "notDetermined"
)

type NotificationKind string

const (
	KindInterrupt NotificationKind = "interrupt"
	KindSnooze    NotificationKind = "snooze"
	KindMissed    NotificationKind = "missed"
	KindEvening   NotificationKind = "evening"
)

// Notification is one scheduled local notification and its payload.
type Notification struct {
	ID         string
	Kind       NotificationKind
	FireAt     time.Time
	QuestionID string
	SessionID  string
}

// Delivers reports whether tapping the notification should queue an interrupt.
func (n Notification) Delivers() bool {
	return (n.Kind == KindInterrupt || n.Kind == KindSnooze) && n.QuestionID != ""
}

var InterruptOffsets = []time.Duration{
	3 * time.Hour,
	5 * time.Hour,
	7 * time.Hour,
	9 * time.Hour,
	11 * time.Hour,
	13 * time.Hour,
}

const (
	MissedReminderOffset  = 13*time.Hour + 30*time.Minute
	EveningReminderOffset = 14 * time.Hour
)

func InterruptID(sessionID, questionID string) string {
	return fmt.Sprintf("%s-%s-%s", KindInterrupt, sessionID, questionID)
}

func SnoozeID(sessionID, questionID string) string {
	return fmt.Sprintf("%s-%s-%s", KindSnooze, sessionID, questionID)
}

// PlanDay lays out the interrupt notifications, one per interrupt question in
// catalog order, followed by the missed-questions and evening reminders.
func PlanDay(sessionID string, wake time.Time, interruptIDs []string) []Notification {
	plan := make([]Notification, 0, len(InterruptOffsets)+2)
	for i, qid := range interruptIDs {
		if i >= len(InterruptOffsets) {
			break
		}
		plan = append(plan, Notification{
			ID:         InterruptID(sessionID, qid),
			Kind:       KindInterrupt,
			FireAt:     wake.Add(InterruptOffsets[i]),
			QuestionID: qid,
			SessionID:  sessionID,
		})
	}
	plan = append(plan,
		Notification{ID: fmt.Sprintf("%s-%s", KindMissed, sessionID), Kind: KindMissed, FireAt: wake.Add(MissedReminderOffset), SessionID: sessionID},
		Notification{ID: fmt.Sprintf("%s-%s", KindEvening, sessionID), Kind: KindEvening, FireAt: wake.Add(EveningReminderOffset), SessionID: sessionID},
	)
	return plan
}

