package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	catalogstore "dansprotocol/internal/modules/catalog/adapter/out"
	catalog "dansprotocol/internal/modules/catalog/domain"
	catalogservice "dansprotocol/internal/modules/catalog/service"
	kvstore "dansprotocol/internal/modules/interrupt/adapter/out"
	interrupt "dansprotocol/internal/modules/interrupt/domain"
	interruptin "dansprotocol/internal/modules/interrupt/port/in"
	interruptservice "dansprotocol/internal/modules/interrupt/service"
	journalstore "dansprotocol/internal/modules/journal/adapter/out"
	journal "dansprotocol/internal/modules/journal/domain"
	journalin "dansprotocol/internal/modules/journal/port/in"
	journalservice "dansprotocol/internal/modules/journal/service"
	protocolstore "dansprotocol/internal/modules/protocol/adapter/out"
	"dansprotocol/internal/modules/protocol/domain"
	"dansprotocol/internal/modules/protocol/dto"
	protocolin "dansprotocol/internal/modules/protocol/port/in"
	"dansprotocol/internal/modules/protocol/usecase"
	apperrors "dansprotocol/internal/platform/errors"
	"dansprotocol/internal/platform/sqlitedb"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type fixedPermission struct {
	permission domain.Permission
	err        error
}

func (p fixedPermission) Request(context.Context) (domain.Permission, error) {
	return p.permission, p.err
}

// failingJournal fails entry writes while fail is set.
type failingJournal struct {
	journalin.Usecase
	mu   sync.Mutex
	fail bool
}

func (f *failingJournal) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *failingJournal) UpsertEntry(ctx context.Context, sessionID, questionID string, part catalog.Part, response string) (journal.Entry, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return journal.Entry{}, fmt.Errorf("%w: disk full", apperrors.ErrPersistFailed)
	}
	return f.Usecase.UpsertEntry(ctx, sessionID, questionID, part, response)
}

type harness struct {
	deps    usecase.Deps
	uc      protocolin.Usecase
	clock   *stepClock
	journal *failingJournal
	ledger  interruptin.Ledger
	snooze  interruptin.Snooze
	queue   *protocolstore.QueueDispatcher
}

var wakeDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return wakeDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newHarness(t *testing.T, permission domain.Permission) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.OpenMemory(ctx, []string{journalstore.Schema, kvstore.Schema, protocolstore.Schema})
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clk := &stepClock{now: at(6, 45)}
	questions := catalogservice.Load(ctx, catalogstore.NewYAMLSource(""), nil)
	kv := kvstore.NewSQLiteKV(db)
	h := &harness{
		clock: clk,
		journal: &failingJournal{Usecase: journalservice.NewJournalService(
			clk, &seqID{}, journalstore.NewSQLiteStore(db), nil, nil,
		)},
		ledger: interruptservice.NewLedgerService(kv),
		snooze: interruptservice.NewSnoozeService(kv),
		queue:  protocolstore.NewQueueDispatcher(),
	}
	h.deps = usecase.Deps{
		Clock:       clk,
		Journal:     h.journal,
		Catalog:     questions,
		Ledger:      h.ledger,
		Snooze:      h.snooze,
		Scheduler:   protocolstore.NewSQLiteScheduler(db),
		Permissions: fixedPermission{permission: permission},
		Dispatcher:  h.queue,
	}
	h.uc = usecase.NewController(h.deps)
	return h
}

// onboardToPart2 starts a run at wake 07:00 and finishes Part 1.
func (h *harness) onboardToPart2(t *testing.T) journal.Session {
	t.Helper()
	ctx := context.Background()
	if _, err := h.uc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	out, err := h.uc.CompleteOnboarding(ctx, dto.OnboardingInput{
		StartDate: wakeDay,
		Wake:      journal.WakeTime{Hour: 7},
		Language:  catalog.English,
	})
	if err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	if err := h.uc.FinishPart1(ctx); err != nil {
		t.Fatalf("finish part 1: %v", err)
	}
	return out.Session
}

func (h *harness) interruptIDs(t *testing.T) []string {
	t.Helper()
	ids := []string{}
	for _, q := range h.uc.Questions(catalog.Part2, catalog.TypeInterrupt) {
		ids = append(ids, q.ID)
	}
	if len(ids) != 6 {
		t.Fatalf("expected 6 interrupt questions, got %d", len(ids))
	}
	return ids
}

func (h *harness) pending(t *testing.T, sessionID string) []string {
	t.Helper()
	list, err := h.ledger.Load(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	return list
}

func TestOnboardingSchedulesTheDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	snap, err := h.uc.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != domain.StateOnboarding {
		t.Fatalf("expected onboarding on an empty store, got %s", snap.State)
	}
	out, err := h.uc.CompleteOnboarding(ctx, dto.OnboardingInput{StartDate: wakeDay.Add(15 * time.Hour), Wake: journal.WakeTime{Hour: 7}, Language: catalog.Korean})
	if err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	if out.Session.Status != journal.StatusPart1 || !out.Session.WakeUpTime.Equal(at(7, 0)) {
		t.Fatalf("unexpected session: %+v", out.Session)
	}
	if len(out.Scheduled) != 8 {
		t.Fatalf("expected 6 interrupts and 2 reminders, got %d", len(out.Scheduled))
	}
	for i, hour := range []int{10, 12, 14, 16, 18, 20} {
		if !out.Scheduled[i].FireAt.Equal(at(hour, 0)) {
			t.Fatalf("interrupt %d fires at %s, want %02d:00", i, out.Scheduled[i].FireAt, hour)
		}
	}
	if !out.Scheduled[6].FireAt.Equal(at(20, 30)) || !out.Scheduled[7].FireAt.Equal(at(21, 0)) {
		t.Fatalf("unexpected reminder times: %s %s", out.Scheduled[6].FireAt, out.Scheduled[7].FireAt)
	}
	upcoming, err := h.uc.Upcoming(ctx)
	if err != nil || len(upcoming) != 8 {
		t.Fatalf("expected 8 pending notifications, got %d (%v)", len(upcoming), err)
	}
	if got := h.uc.Snapshot(ctx).State; got != domain.StatePart1 {
		t.Fatalf("expected part1, got %s", got)
	}
}

func TestDeniedPermissionSchedulesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionDenied)
	h.onboardToPart2(t)
	upcoming, err := h.uc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(upcoming) != 0 {
		t.Fatalf("expected nothing scheduled, got %d", len(upcoming))
	}
	if got := h.uc.Snapshot(ctx).Permission; got != domain.PermissionDenied {
		t.Fatalf("expected denied, got %s", got)
	}
}

func TestPermissionErrorContinuesAsNotDetermined(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	h.deps.Permissions = fixedPermission{err: errors.New("prompt dismissed")}
	h.uc = usecase.NewController(h.deps)
	h.onboardToPart2(t)
	snap := h.uc.Snapshot(ctx)
	if snap.Permission != domain.PermissionNotDetermined || snap.State != domain.StatePart2Waiting {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTapPresentAnswerClearsEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	if snap := h.uc.Snapshot(ctx); snap.Showing {
		t.Fatalf("nothing should show before the first interrupt fires")
	}
	h.clock.Set(at(10, 0))
	delivered, err := h.uc.DeliverDue(ctx, true)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(delivered.Delivered) != 1 || delivered.Delivered[0].QuestionID != ids[0] {
		t.Fatalf("expected the 10:00 interrupt, got %+v", delivered.Delivered)
	}
	snap := h.uc.Snapshot(ctx)
	if !snap.Showing || snap.ActiveInterrupt != ids[0] {
		t.Fatalf("expected %s to be presented, got %+v", ids[0], snap)
	}

	entry, err := h.uc.AnswerInterrupt(ctx, ids[0], "  scrolling instead of writing  ")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if entry.Response != "scrolling instead of writing" || entry.Part != catalog.Part2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if got := h.pending(t, session.ID); len(got) != 0 {
		t.Fatalf("ledger should be empty, got %v", got)
	}
	if n, _ := h.snooze.Count(ctx, ids[0], session.ID); n != 0 {
		t.Fatalf("snooze count should be reset, got %d", n)
	}
	if h.queue.Len() == 0 {
		t.Fatalf("answer should post a re-surface")
	}
	h.queue.Drain()
	if snap := h.uc.Snapshot(ctx); snap.Showing || snap.ActiveInterrupt != "" {
		t.Fatalf("nothing pending, nothing should show: %+v", snap)
	}
	entries, err := h.uc.Entries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one persisted entry, got %d (%v)", len(entries), err)
	}
}

func TestSkipSnoozesTwiceThenStops(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	h.clock.Set(at(10, 0))
	if _, err := h.uc.DeliverDue(ctx, false); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	h.uc.SurfaceInterrupt(ctx)
	if _, err := h.uc.AnswerInterrupt(ctx, ids[0], "answered"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	h.queue.Drain()

	for round, when := range []time.Time{at(12, 0), at(12, 30)} {
		h.clock.Set(when)
		if _, err := h.uc.DeliverDue(ctx, true); err != nil {
			t.Fatalf("deliver round %d: %v", round, err)
		}
		snap := h.uc.Snapshot(ctx)
		if !snap.Showing || snap.ActiveInterrupt != ids[1] {
			t.Fatalf("round %d: expected %s presented, got %+v", round, ids[1], snap)
		}
		out := h.uc.OnInterruptSkipped(ctx, ids[1])
		h.queue.Drain()
		if out.SnoozeCount != round+1 {
			t.Fatalf("round %d: snooze count %d", round, out.SnoozeCount)
		}
		wantRescheduled := round+1 < interrupt.MaxSnoozeCount
		if out.Rescheduled != wantRescheduled {
			t.Fatalf("round %d: rescheduled=%v, want %v", round, out.Rescheduled, wantRescheduled)
		}
		if out.Rescheduled && !out.FireAt.Equal(when.Add(interrupt.SnoozeDelay)) {
			t.Fatalf("round %d: snooze fires at %s", round, out.FireAt)
		}
		if got := h.pending(t, session.ID); len(got) != 0 {
			t.Fatalf("round %d: skipped question must leave the ledger, got %v", round, got)
		}
	}

	upcoming, err := h.uc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	for _, n := range upcoming {
		if n.Kind == domain.KindSnooze {
			t.Fatalf("no re-notification expected once the cap is reached, found %+v", n)
		}
	}
	h.clock.Set(at(13, 30))
	delivered, err := h.uc.DeliverDue(ctx, true)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(delivered.Delivered) != 0 || h.uc.Snapshot(ctx).Showing {
		t.Fatalf("nothing should fire after the snooze cap: %+v", delivered.Delivered)
	}
	if reached, _ := h.snooze.HasReachedMax(ctx, ids[1], session.ID); !reached {
		t.Fatalf("snooze cap should be reached")
	}
}

func TestAnswerCancelsPendingSnooze(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	h.uc.OnNotificationTap(ctx, ids[0], session.ID)
	h.uc.OnInterruptSkipped(ctx, ids[0])
	h.queue.Drain()
	if _, err := h.uc.AnswerInterrupt(ctx, ids[0], "later answer"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	upcoming, err := h.uc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	for _, n := range upcoming {
		if n.ID == domain.SnoozeID(session.ID, ids[0]) {
			t.Fatalf("snooze notification should be cancelled")
		}
	}
}

func TestStaleSessionAndUnknownTapsAreIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	h.uc.OnNotificationTap(ctx, ids[2], "some-old-session")
	h.uc.OnNotificationTap(ctx, "p1_belief", session.ID)
	h.uc.OnNotificationFired(ctx, "not-a-question", session.ID)
	if snap := h.uc.Snapshot(ctx); snap.Showing || len(snap.Pending) != 0 {
		t.Fatalf("stale or unknown taps must be ignored: %+v", snap)
	}
}

func TestSkipIgnoresNonInterruptsAndOtherPhases(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	if _, err := h.uc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	out, err := h.uc.CompleteOnboarding(ctx, dto.OnboardingInput{StartDate: wakeDay, Wake: journal.WakeTime{Hour: 7}, Language: catalog.English})
	if err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	sid := out.Session.ID
	ids := h.interruptIDs(t)

	if got := h.uc.OnInterruptSkipped(ctx, ids[0]); got.SnoozeCount != 0 || got.Rescheduled {
		t.Fatalf("skip during Part 1 must be ignored: %+v", got)
	}
	if err := h.uc.FinishPart1(ctx); err != nil {
		t.Fatalf("finish part 1: %v", err)
	}
	if got := h.uc.OnInterruptSkipped(ctx, "anything"); got.SnoozeCount != 0 || got.Rescheduled {
		t.Fatalf("skip of a non-interrupt must be ignored: %+v", got)
	}
	for _, qid := range []string{ids[0], "anything"} {
		if n, _ := h.snooze.Count(ctx, qid, sid); n != 0 {
			t.Fatalf("%s: snooze counter moved to %d", qid, n)
		}
	}
	upcoming, err := h.uc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	for _, n := range upcoming {
		if n.Kind == domain.KindSnooze {
			t.Fatalf("no snooze should be scheduled, found %+v", n)
		}
	}
}

func TestFiredInterruptsQueueInFiringOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	h.uc.OnNotificationFired(ctx, ids[3], session.ID)
	h.uc.OnNotificationFired(ctx, ids[1], session.ID)
	h.uc.OnNotificationFired(ctx, ids[3], session.ID)
	snap := h.uc.Snapshot(ctx)
	if strings.Join(snap.Pending, ",") != ids[3]+","+ids[1] {
		t.Fatalf("unexpected pending order: %v", snap.Pending)
	}
	if snap.Showing {
		t.Fatalf("fired notifications are not presented until surfaced")
	}
	if active, ok := h.uc.SurfaceInterrupt(ctx); !ok || active != ids[3] {
		t.Fatalf("expected %s first, got %q", ids[3], active)
	}
	h.uc.OnDismissInterrupt()
	if h.uc.Snapshot(ctx).Showing {
		t.Fatalf("dismiss should hide the prompt")
	}
	h.queue.Drain()
	if active := h.uc.Snapshot(ctx).ActiveInterrupt; active != ids[3] {
		t.Fatalf("dismissed interrupt stays pending and re-surfaces, got %q", active)
	}
}

func TestAnsweredQuestionsArePrunedFromLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	if _, err := h.uc.SaveAnswer(ctx, catalog.Part2, ids[0], "answered in the list"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := h.ledger.Save(ctx, []string{ids[0], "retired_question", ids[4]}, session.ID); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	active, ok := h.uc.SurfaceInterrupt(ctx)
	if !ok || active != ids[4] {
		t.Fatalf("expected %s after pruning, got %q", ids[4], active)
	}
	if got := h.pending(t, session.ID); strings.Join(got, ",") != ids[4] {
		t.Fatalf("pruned ledger should be written back, got %v", got)
	}
}

func TestAllAnsweredClearsLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)
	for _, id := range ids {
		if _, err := h.uc.SaveAnswer(ctx, catalog.Part2, id, "done"); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := h.ledger.Save(ctx, ids, session.ID); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	if _, ok := h.uc.SurfaceInterrupt(ctx); ok {
		t.Fatalf("nothing should surface when every interrupt is answered")
	}
	if got := h.pending(t, session.ID); len(got) != 0 {
		t.Fatalf("ledger should be cleared, got %v", got)
	}
}

func TestAnsweredEventBeforeTapStillPresentsUnsavedQuestion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	h.uc.OnInterruptAnswered(ctx, ids[2], session.ID)
	h.uc.OnNotificationTap(ctx, ids[2], session.ID)
	snap := h.uc.Snapshot(ctx)
	if !snap.Showing || snap.ActiveInterrupt != ids[2] {
		t.Fatalf("tap after answered event without a saved entry presents the question: %+v", snap)
	}
}

func TestTapAfterSavedAnswerIsPruned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	h.uc.OnNotificationTap(ctx, ids[2], session.ID)
	if _, err := h.uc.AnswerInterrupt(ctx, ids[2], "answered"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	h.uc.OnNotificationTap(ctx, ids[2], session.ID)
	h.queue.Drain()
	if snap := h.uc.Snapshot(ctx); snap.Showing || len(snap.Pending) != 0 {
		t.Fatalf("late tap for an answered question must not present it: %+v", snap)
	}
}

func TestLegacyDeliveryIsAdoptedByNextSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	ids := h.interruptIDs(t)
	if _, err := h.uc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	legacy := domain.Notification{ID: "legacy-" + ids[5], Kind: domain.KindInterrupt, FireAt: at(6, 0), QuestionID: ids[5]}
	if err := h.deps.Scheduler.Schedule(ctx, legacy); err != nil {
		t.Fatalf("schedule legacy: %v", err)
	}
	if _, err := h.uc.DeliverDue(ctx, false); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	h.onboardToPart2(t)
	snap := h.uc.Snapshot(ctx)
	if !snap.Showing || snap.ActiveInterrupt != ids[5] {
		t.Fatalf("legacy interrupt should surface for the new session: %+v", snap)
	}
}

func TestRestartRestoresPart2AndPendingInterrupt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)
	h.uc.OnNotificationFired(ctx, ids[1], session.ID)

	restarted := usecase.NewController(h.deps)
	snap, err := restarted.Start(ctx)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.State != domain.StatePart2Waiting || snap.Session == nil || snap.Session.ID != session.ID {
		t.Fatalf("unexpected restored snapshot: %+v", snap)
	}
	if !snap.Showing || snap.ActiveInterrupt != ids[1] {
		t.Fatalf("pending interrupt should be presented on launch: %+v", snap)
	}
}

func TestPhaseTransitionsAndNewRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	session := h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	if err := h.uc.FinishSynthesis(ctx); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from part2, got %v", err)
	}
	if _, err := h.uc.SaveAnswer(ctx, catalog.Part2, ids[0], "one"); err != nil {
		t.Fatalf("save: %v", err)
	}
	advanced, err := h.uc.Advance(ctx)
	if err != nil {
		t.Fatalf("advance from part2: %v", err)
	}
	if advanced.To != domain.StatePart3Synthesis || advanced.Unanswered != 5 {
		t.Fatalf("unexpected advance: %+v", advanced)
	}
	respond, err := h.uc.Respond(ctx, "vision", "calm mornings, focused afternoons")
	if err != nil || respond.Components == nil || respond.Components.Vision == "" {
		t.Fatalf("component response: %+v (%v)", respond, err)
	}
	if err := h.uc.FinishSynthesis(ctx); err != nil {
		t.Fatalf("finish synthesis: %v", err)
	}
	if err := h.uc.FinishComponents(ctx); err != nil {
		t.Fatalf("finish components: %v", err)
	}
	snap := h.uc.Snapshot(ctx)
	if snap.State != domain.StateCompleted || snap.Session.CompletedAt.IsZero() {
		t.Fatalf("expected completed session, got %+v", snap)
	}
	history, err := h.uc.History(ctx)
	if err != nil || len(history) != 1 || history[0].ID != session.ID {
		t.Fatalf("expected the session in history, got %v (%v)", history, err)
	}
	if err := h.uc.StartNewRun(ctx); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("new run only starts from history, got %v", err)
	}
	if err := h.uc.ShowHistory(ctx); err != nil {
		t.Fatalf("show history: %v", err)
	}

	h.uc.OnNotificationFired(ctx, ids[3], session.ID)
	if err := h.uc.StartNewRun(ctx); err != nil {
		t.Fatalf("new run: %v", err)
	}
	snap = h.uc.Snapshot(ctx)
	if snap.State != domain.StateOnboarding || snap.Session != nil {
		t.Fatalf("expected fresh onboarding, got %+v", snap)
	}
	if upcoming, _ := h.uc.Upcoming(ctx); len(upcoming) != 0 {
		t.Fatalf("new run cancels pending notifications, %d left", len(upcoming))
	}
	if got := h.pending(t, session.ID); len(got) != 0 {
		t.Fatalf("new run clears the ledger, got %v", got)
	}

	restarted := usecase.NewController(h.deps)
	if snap, err := restarted.Start(ctx); err != nil || snap.State != domain.StateHistory {
		t.Fatalf("completed latest session relaunches into history, got %s (%v)", snap.State, err)
	}
}

func TestFailedSaveKeepsDraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, domain.PermissionAuthorized)
	h.onboardToPart2(t)
	ids := h.interruptIDs(t)

	if _, err := h.uc.SaveAnswer(ctx, catalog.Part2, ids[0], "   "); !errors.Is(err, apperrors.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
	h.journal.setFail(true)
	if _, err := h.uc.AnswerInterrupt(ctx, ids[0], "keep me"); !errors.Is(err, apperrors.ErrPersistFailed) {
		t.Fatalf("expected persist failure, got %v", err)
	}
	if draft := h.uc.Snapshot(ctx).Drafts[ids[0]]; draft != "keep me" {
		t.Fatalf("draft should survive a failed save, got %q", draft)
	}
	h.journal.setFail(false)
	if _, err := h.uc.AnswerInterrupt(ctx, ids[0], "keep me"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, ok := h.uc.Snapshot(ctx).Drafts[ids[0]]; ok {
		t.Fatalf("draft should be dropped after a successful save")
	}
}
