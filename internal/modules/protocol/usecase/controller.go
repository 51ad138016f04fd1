package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	catalog "dansprotocol/internal/modules/catalog/domain"
	catalogin "dansprotocol/internal/modules/catalog/port/in"
	interrupt "dansprotocol/internal/modules/interrupt/domain"
	interruptin "dansprotocol/internal/modules/interrupt/port/in"
	journal "dansprotocol/internal/modules/journal/domain"
	journalin "dansprotocol/internal/modules/journal/port/in"
	"dansprotocol/internal/modules/protocol/domain"
	"dansprotocol/internal/modules/protocol/dto"
	protocolin "dansprotocol/internal/modules/protocol/port/in"
	protocolout "dansprotocol/internal/modules/protocol/port/out"
	"dansprotocol/internal/platform/clock"
	apperrors "dansprotocol/internal/platform/errors"
)

type Deps struct {
	Clock       clock.Clock
	Journal     journalin.Usecase
	Catalog     catalogin.Usecase
	Ledger      interruptin.Ledger
	Snooze      interruptin.Snooze
	Scheduler   protocolout.Scheduler
	Permissions protocolout.PermissionRequester
	Dispatcher  protocolout.Dispatcher
	Logger      hclog.Logger
}

// Controller is the protocol state machine. Every event takes mu, so events
// are applied in the order they arrive.
type Controller struct {
	mu sync.Mutex
	Deps

	state      domain.State
	current    *journal.Session
	permission domain.Permission
	active     string
	showing    bool
	drafts     map[string]string
}

func NewController(deps Deps) protocolin.Usecase {
	if deps.Logger == nil {
		deps.Logger = hclog.NewNullLogger()
	}
	return &Controller{
		Deps:       deps,
		state:      domain.StateLoading,
		permission: domain.PermissionNotDetermined,
		drafts:     map[string]string{},
	}
}

// Start resolves the latest session and the state it maps to.
func (c *Controller) Start(ctx context.Context) (dto.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = domain.StateLoading
	c.current = nil
	c.active, c.showing = "", false
	latest, err := c.Journal.LatestSession(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.state = domain.StateOnboarding
	case err != nil:
		return c.snapshotLocked(ctx), fmt.Errorf("load sessions: %w", err)
	default:
		c.current = &latest
		c.state = domain.StateForStatus(latest.Status)
	}
	c.surfaceLocked(ctx)
	return c.snapshotLocked(ctx), nil
}

// CompleteOnboarding creates the day's session, moves it to Part 1 and
// schedules the day's notifications when permission is granted.
func (c *Controller) CompleteOnboarding(ctx context.Context, input dto.OnboardingInput) (dto.OnboardingOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(domain.StateOnboarding); err != nil {
		return dto.OnboardingOutput{}, err
	}

	permission, err := c.Permissions.Request(ctx)
	if err != nil {
		c.Logger.Warn("notification permission request failed", "error", err)
		permission = domain.PermissionNotDetermined
	}
	c.permission = permission

	session, err := c.Journal.CreateSession(ctx, input.StartDate, input.Wake, input.Language)
	if err != nil {
		return dto.OnboardingOutput{}, err
	}
	if session, err = c.Journal.UpdateStatus(ctx, session.ID, journal.StatusPart1); err != nil {
		return dto.OnboardingOutput{}, err
	}
	c.current = &session
	c.state = domain.StatePart1

	out := dto.OnboardingOutput{Session: session, Permission: permission}
	if permission != domain.PermissionAuthorized {
		c.Logger.Info("notifications not authorized, continuing in-app only", "permission", permission)
		return out, nil
	}
	for _, n := range domain.PlanDay(session.ID, session.WakeUpTime, c.Catalog.InterruptIDs()) {
		if err := c.Scheduler.Schedule(ctx, n); err != nil {
			c.Logger.Warn("schedule notification failed", "id", n.ID, "error", err)
			continue
		}
		out.Scheduled = append(out.Scheduled, n)
	}
	return out, nil
}

func (c *Controller) FinishPart1(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.advance(ctx, domain.StatePart1, journal.StatusPart2, domain.StatePart2Waiting); err != nil {
		return err
	}
	c.surfaceLocked(ctx)
	return nil
}

// FinishPart2 is not gated on the interrupts; Unanswered lets the caller warn.
func (c *Controller) FinishPart2(ctx context.Context) (dto.FinishPart2Output, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(domain.StatePart2Waiting); err != nil {
		return dto.FinishPart2Output{}, err
	}
	answered, err := c.answeredLocked(ctx)
	if err != nil {
		c.Logger.Warn("count unanswered interrupts failed", "error", err)
	}
	unanswered := 0
	for _, id := range c.Catalog.InterruptIDs() {
		if !answered[id] {
			unanswered++
		}
	}
	if err := c.advance(ctx, domain.StatePart2Waiting, journal.StatusPart3Synthesis, domain.StatePart3Synthesis); err != nil {
		return dto.FinishPart2Output{}, err
	}
	c.active, c.showing = "", false
	return dto.FinishPart2Output{Unanswered: unanswered}, nil
}

func (c *Controller) FinishSynthesis(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance(ctx, domain.StatePart3Synthesis, journal.StatusPart3Components, domain.StatePart3Components)
}

func (c *Controller) FinishComponents(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance(ctx, domain.StatePart3Components, journal.StatusCompleted, domain.StateCompleted)
}

func (c *Controller) ShowHistory(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(domain.StateCompleted, domain.StateHistory); err != nil {
		return err
	}
	c.state = domain.StateHistory
	return nil
}

// StartNewRun leaves history for a fresh onboarding: pending notifications,
// the ledger and snooze counters of the previous run are wiped.
func (c *Controller) StartNewRun(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(domain.StateHistory); err != nil {
		return err
	}
	if err := c.Scheduler.CancelAll(ctx); err != nil {
		c.Logger.Warn("cancel notifications failed", "error", err)
	}
	if err := c.Ledger.Clear(ctx); err != nil {
		c.Logger.Warn("clear pending interrupts failed", "error", err)
	}
	if err := c.Snooze.Clear(ctx); err != nil {
		c.Logger.Warn("clear snooze counters failed", "error", err)
	}
	c.current = nil
	c.active, c.showing = "", false
	c.drafts = map[string]string{}
	c.state = domain.StateOnboarding
	return nil
}

func (c *Controller) Advance(ctx context.Context) (dto.AdvanceOutput, error) {
	c.mu.Lock()
	from := c.state
	c.mu.Unlock()

	out := dto.AdvanceOutput{From: from}
	var err error
	switch from {
	case domain.StatePart1:
		err = c.FinishPart1(ctx)
	case domain.StatePart2Waiting:
		var finished dto.FinishPart2Output
		finished, err = c.FinishPart2(ctx)
		out.Unanswered = finished.Unanswered
	case domain.StatePart3Synthesis:
		err = c.FinishSynthesis(ctx)
	case domain.StatePart3Components:
		err = c.FinishComponents(ctx)
	case domain.StateCompleted:
		err = c.ShowHistory(ctx)
	default:
		err = fmt.Errorf("%w: nothing follows %s", apperrors.ErrInvalidTransition, from)
	}
	if err != nil {
		return dto.AdvanceOutput{}, err
	}
	c.mu.Lock()
	out.To = c.state
	c.mu.Unlock()
	return out, nil
}

// SurfaceInterrupt presents the earliest-fired pending interrupt, if any.
func (c *Controller) SurfaceInterrupt(ctx context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaceLocked(ctx)
	return c.active, c.showing
}

func (c *Controller) OnNotificationFired(ctx context.Context, questionID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recordLocked(ctx, questionID, sessionID)
}

func (c *Controller) OnNotificationTap(ctx context.Context, questionID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recordLocked(ctx, questionID, sessionID) {
		c.surfaceLocked(ctx)
	}
}

func (c *Controller) OnInterruptAnswered(ctx context.Context, questionID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answeredEventLocked(ctx, questionID, sessionID)
}

// OnInterruptSkipped counts a snooze and re-notifies after SnoozeDelay while
// the count is still below MaxSnoozeCount. Once the cap is reached the
// question can only be answered in the app. Skips outside Part 2 or for
// questions that are not interrupts are ignored.
func (c *Controller) OnInterruptSkipped(ctx context.Context, questionID string) dto.SkipOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := dto.SkipOutput{}
	if c.current == nil || c.state != domain.StatePart2Waiting {
		return out
	}
	if !c.isInterrupt(questionID) {
		c.Logger.Debug("ignoring skip for unknown interrupt question", "question", questionID)
		return out
	}
	sid := c.current.ID

	count, err := c.Snooze.Increment(ctx, questionID, sid)
	if err != nil {
		c.Logger.Warn("increment snooze failed", "question", questionID, "error", err)
	}
	out.SnoozeCount = count
	if err == nil && count < interrupt.MaxSnoozeCount {
		n := domain.Notification{
			ID:         domain.SnoozeID(sid, questionID),
			Kind:       domain.KindSnooze,
			FireAt:     c.Clock.Now().Add(interrupt.SnoozeDelay),
			QuestionID: questionID,
			SessionID:  sid,
		}
		if err := c.Scheduler.Schedule(ctx, n); err != nil {
			c.Logger.Warn("schedule snooze failed", "question", questionID, "error", err)
		} else {
			out.Rescheduled = true
			out.FireAt = n.FireAt
		}
	}
	if err := c.Ledger.Remove(ctx, questionID, sid); err != nil {
		c.Logger.Warn("remove pending interrupt failed", "question", questionID, "error", err)
	}
	c.dismissLocked()
	return out
}

// OnDismissInterrupt hides the prompt and looks for the next one on a later tick.
func (c *Controller) OnDismissInterrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissLocked()
}

// DeliverDue hands due notifications to the ledger, as taps when tap is set.
// Payloads without a session go to the legacy list.
func (c *Controller) DeliverDue(ctx context.Context, tap bool) (dto.DeliverOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	due, err := c.Scheduler.Due(ctx, c.Clock.Now())
	if err != nil {
		return dto.DeliverOutput{}, err
	}
	recorded := false
	for _, n := range due {
		if !n.Delivers() {
			continue
		}
		if n.SessionID == "" {
			if err := c.Ledger.AddLegacy(ctx, n.QuestionID); err != nil {
				c.Logger.Warn("record legacy interrupt failed", "question", n.QuestionID, "error", err)
			}
			continue
		}
		if c.recordLocked(ctx, n.QuestionID, n.SessionID) {
			recorded = true
		}
	}
	if tap && recorded {
		c.surfaceLocked(ctx)
	}
	return dto.DeliverOutput{Delivered: due}, nil
}

// Upcoming lists notifications that have not fired yet.
func (c *Controller) Upcoming(ctx context.Context) ([]domain.Notification, error) {
	return c.Scheduler.Pending(ctx)
}

// AnswerInterrupt saves the response and then resolves the interrupt.
func (c *Controller) AnswerInterrupt(ctx context.Context, questionID, response string) (journal.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, err := c.saveLocked(ctx, catalog.Part2, questionID, response)
	if err != nil {
		return journal.Entry{}, err
	}
	c.answeredEventLocked(ctx, questionID, entry.SessionID)
	return entry, nil
}

// SaveAnswer persists a trimmed, non-empty response. On failure the text is
// kept as a draft and the error is returned so the caller can retry.
func (c *Controller) SaveAnswer(ctx context.Context, part catalog.Part, questionID, response string) (journal.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(ctx, part, questionID, response)
}

func (c *Controller) Respond(ctx context.Context, questionID, response string) (dto.RespondOutput, error) {
	q, ok := c.Catalog.Question(questionID)
	if !ok {
		return dto.RespondOutput{}, fmt.Errorf("%w: unknown question %q", apperrors.ErrInvalidInput, questionID)
	}
	switch q.Type {
	case catalog.TypeInterrupt:
		entry, err := c.AnswerInterrupt(ctx, questionID, response)
		if err != nil {
			return dto.RespondOutput{}, err
		}
		return dto.RespondOutput{Entry: &entry}, nil
	case catalog.TypeComponents:
		field, err := journal.ParseComponentField(questionID)
		if err != nil {
			return dto.RespondOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		components, err := c.SaveComponent(ctx, field, response)
		if err != nil {
			return dto.RespondOutput{}, err
		}
		return dto.RespondOutput{Components: &components}, nil
	default:
		entry, err := c.SaveAnswer(ctx, q.Part, questionID, response)
		if err != nil {
			return dto.RespondOutput{}, err
		}
		return dto.RespondOutput{Entry: &entry}, nil
	}
}

func (c *Controller) SaveComponent(ctx context.Context, field journal.ComponentField, value string) (journal.LifeGameComponents, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return journal.LifeGameComponents{}, apperrors.ErrNoCurrentSession
	}
	return c.Journal.UpsertComponentField(ctx, c.current.ID, field, strings.TrimSpace(value))
}

func (c *Controller) Snapshot(ctx context.Context) dto.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(ctx)
}

func (c *Controller) Entries(ctx context.Context) ([]journal.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, apperrors.ErrNoCurrentSession
	}
	return c.Journal.Entries(ctx, c.current.ID, 0)
}

func (c *Controller) Components(ctx context.Context) (journal.LifeGameComponents, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return journal.LifeGameComponents{}, apperrors.ErrNoCurrentSession
	}
	return c.Journal.Components(ctx, c.current.ID)
}

func (c *Controller) History(ctx context.Context) ([]journal.Session, error) {
	return c.Journal.CompletedSessions(ctx)
}

// Export writes sessionID, or the current session when empty, as a note.
func (c *Controller) Export(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		c.mu.Lock()
		if c.current != nil {
			sessionID = c.current.ID
		}
		c.mu.Unlock()
	}
	if sessionID == "" {
		return "", apperrors.ErrNoCurrentSession
	}
	return c.Journal.ExportSession(ctx, sessionID)
}

func (c *Controller) Questions(part catalog.Part, typ catalog.Type) []catalog.Question {
	return c.Catalog.Questions(part, typ)
}

func (c *Controller) expect(states ...domain.State) error {
	for _, s := range states {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: in %s", apperrors.ErrInvalidTransition, c.state)
}

func (c *Controller) advance(ctx context.Context, from domain.State, status journal.Status, to domain.State) error {
	if err := c.expect(from); err != nil {
		return err
	}
	if c.current == nil {
		return apperrors.ErrNoCurrentSession
	}
	session, err := c.Journal.UpdateStatus(ctx, c.current.ID, status)
	if err != nil {
		return err
	}
	c.current = &session
	c.state = to
	return nil
}

func (c *Controller) isInterrupt(questionID string) bool {
	for _, id := range c.Catalog.InterruptIDs() {
		if id == questionID {
			return true
		}
	}
	return false
}

// recordLocked adds a fired interrupt to the ledger of the current session.
// Stale sessions and unknown questions are ignored.
func (c *Controller) recordLocked(ctx context.Context, questionID, sessionID string) bool {
	if c.current == nil || sessionID != c.current.ID {
		c.Logger.Debug("ignoring interrupt for non-current session", "question", questionID, "session", sessionID)
		return false
	}
	if !c.isInterrupt(questionID) {
		c.Logger.Debug("ignoring unknown interrupt question", "question", questionID)
		return false
	}
	if err := c.Ledger.Add(ctx, questionID, sessionID); err != nil {
		c.Logger.Warn("record pending interrupt failed", "question", questionID, "error", err)
	}
	return true
}

func (c *Controller) answeredEventLocked(ctx context.Context, questionID, sessionID string) {
	if c.current == nil || sessionID != c.current.ID {
		return
	}
	if err := c.Ledger.Remove(ctx, questionID, sessionID); err != nil {
		c.Logger.Warn("remove pending interrupt failed", "question", questionID, "error", err)
	}
	if err := c.Snooze.Reset(ctx, questionID, sessionID); err != nil {
		c.Logger.Warn("reset snooze failed", "question", questionID, "error", err)
	}
	if err := c.Scheduler.CancelID(ctx, domain.SnoozeID(sessionID, questionID)); err != nil {
		c.Logger.Warn("cancel snooze notification failed", "question", questionID, "error", err)
	}
	c.dismissLocked()
}

func (c *Controller) dismissLocked() {
	c.active, c.showing = "", false
	c.Dispatcher.Post(func() {
		c.SurfaceInterrupt(context.Background())
	})
}

func (c *Controller) surfaceLocked(ctx context.Context) {
	if c.state != domain.StatePart2Waiting || c.showing || c.current == nil {
		return
	}
	pending := c.validPendingLocked(ctx)
	if len(pending) == 0 {
		return
	}
	c.active, c.showing = pending[0], true
}

// validPendingLocked is the ledger restricted to unanswered interrupt
// questions, in firing order. The pruned list is written back when it differs.
func (c *Controller) validPendingLocked(ctx context.Context) []string {
	if c.current == nil {
		return nil
	}
	sid := c.current.ID
	stored, err := c.Ledger.Load(ctx, sid)
	if err != nil {
		c.Logger.Warn("load pending interrupts failed", "error", err)
		return nil
	}
	answered, err := c.answeredLocked(ctx)
	if err != nil {
		c.Logger.Warn("load answered interrupts failed", "error", err)
		return nil
	}
	ids := c.Catalog.InterruptIDs()
	allAnswered := len(ids) > 0
	for _, id := range ids {
		if !answered[id] {
			allAnswered = false
			break
		}
	}
	pruned := interrupt.Prune(stored, ids, answered)
	if allAnswered {
		pruned = []string{}
	}
	if !interrupt.Equal(pruned, stored) {
		if err := c.Ledger.Save(ctx, pruned, sid); err != nil {
			c.Logger.Warn("save pruned interrupts failed", "error", err)
		}
	}
	return pruned
}

func (c *Controller) answeredLocked(ctx context.Context) (map[string]bool, error) {
	answered := map[string]bool{}
	if c.current == nil {
		return answered, nil
	}
	entries, err := c.Journal.Entries(ctx, c.current.ID, catalog.Part2)
	if err != nil {
		return answered, err
	}
	for _, e := range entries {
		if e.Answered() {
			answered[e.QuestionKey] = true
		}
	}
	return answered, nil
}

func (c *Controller) saveLocked(ctx context.Context, part catalog.Part, questionID, response string) (journal.Entry, error) {
	if c.current == nil {
		return journal.Entry{}, apperrors.ErrNoCurrentSession
	}
	text := strings.TrimSpace(response)
	if text == "" {
		return journal.Entry{}, apperrors.ErrEmptyResponse
	}
	c.drafts[questionID] = response
	entry, err := c.Journal.UpsertEntry(ctx, c.current.ID, questionID, part, text)
	if err != nil {
		c.Logger.Warn("save response failed, keeping draft", "question", questionID, "error", err)
		return journal.Entry{}, err
	}
	delete(c.drafts, questionID)
	return entry, nil
}

func (c *Controller) snapshotLocked(ctx context.Context) dto.Snapshot {
	snap := dto.Snapshot{
		State:           c.state,
		Permission:      c.permission,
		ActiveInterrupt: c.active,
		Showing:         c.showing,
		Drafts:          make(map[string]string, len(c.drafts)),
	}
	for k, v := range c.drafts {
		snap.Drafts[k] = v
	}
	if c.current != nil {
		session := *c.current
		snap.Session = &session
		if c.state == domain.StatePart2Waiting {
			snap.Pending = c.validPendingLocked(ctx)
		}
	}
	return snap
}
