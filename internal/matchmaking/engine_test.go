package matchmaking

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Ref{ID: 1, Name: "alice", ChatID: 100}
	bob   = domain.Ref{ID: 2, Name: "bob", ChatID: 200}
	carol = domain.Ref{ID: 3, Name: "carol", ChatID: 300}
)

type pendingTimer struct {
	d time.Duration
	f func()
}

// fakeScheduler копит таймеры, тест сам решает когда их запустить
type fakeScheduler struct {
	mu     sync.Mutex
	timers []pendingTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, pendingTimer{d: d, f: f})
}

func (s *fakeScheduler) take() []pendingTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.timers
	s.timers = nil
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(events []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) reset() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

type harness struct {
	t      *testing.T
	engine *Engine
	sched  *fakeScheduler
	rec    *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sched := &fakeScheduler{}
	rec := &recorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(Config{}, sched, rec, log)
	return &harness{t: t, engine: e, sched: sched, rec: rec}
}

// do применяет действие синхронно, минуя Run
func (h *harness) do(a Action) []Event {
	h.t.Helper()
	h.engine.handle(message{action: &a})
	return h.rec.reset()
}

// fireAll запускает накопленные таймеры и обрабатывает их сообщения
func (h *harness) fireAll() []Event {
	h.t.Helper()
	for _, tm := range h.sched.take() {
		tm.f()
		select {
		case m := <-h.engine.inbox:
			h.engine.handle(m)
		default:
			h.t.Fatalf("timer did not post a message")
		}
	}
	return h.rec.reset()
}

func (h *harness) status(ref domain.Ref) domain.Status {
	h.t.Helper()
	p, ok := h.engine.player(ref.ID)
	require.True(h.t, ok)
	return p.Status
}

// assertSingleMembership: игрок не может одновременно быть в очереди,
// в двух записях подтверждения или в двух партиях
func (h *harness) assertSingleMembership() {
	h.t.Helper()
	e := h.engine
	for id, p := range e.players.players {
		memberships := 0
		if e.queue.Contains(id) {
			memberships++
		}
		if e.queue.pending.get(id) != nil {
			memberships++
		}
		if _, ok := e.directory.Session(id); ok {
			memberships++
		}
		if e.directory.rematches.get(id) != nil {
			memberships++
		}
		assert.LessOrEqual(h.t, memberships, 1, "player %d in several places", id)

		switch p.Status {
		case domain.StatusIdle:
			assert.Equal(h.t, 0, memberships, "idle player %d has membership", id)
		case domain.StatusQueued:
			assert.True(h.t, e.queue.Contains(id) || e.queue.pending.get(id) != nil)
		case domain.StatusInSession:
			_, ok := e.directory.Session(id)
			assert.True(h.t, ok)
		case domain.StatusRematch:
			assert.NotNil(h.t, e.directory.rematches.get(id))
		}
	}
}

func (h *harness) startGame(first, second domain.Ref) {
	h.t.Helper()
	h.do(Join(first))
	h.do(Join(second))
	h.do(Confirm(first))
	h.do(Confirm(second))
	require.Equal(h.t, domain.StatusInSession, h.status(first))
	s, ok := h.engine.directory.Session(first.ID)
	require.True(h.t, ok)
	require.Equal(h.t, first.ID, s.First)
}

// first собирает горизонталь в нижнем ряду, second кладет фишки над ней
func (h *harness) playQuickWin(first, second domain.Ref) []Event {
	h.t.Helper()
	var events []Event
	for col := 0; col < 3; col++ {
		h.do(Move(first, col))
		h.do(Move(second, col))
	}
	events = append(events, h.do(Move(first, 3))...)
	return events
}

func TestEngine_FirstJoinWaits(t *testing.T) {
	h := newHarness(t)

	events := h.do(Join(alice))

	require.Len(t, events, 1)
	assert.Equal(t, EventWaiting, events[0].Kind)
	assert.True(t, events[0].Addressed(alice.ID))
	assert.Equal(t, domain.StatusQueued, h.status(alice))
	assert.Equal(t, 1, h.engine.queue.Len())
}

func TestEngine_QueueIsFIFO(t *testing.T) {
	h := newHarness(t)

	h.do(Join(alice))
	events := h.do(Join(bob))
	require.Equal(t, []EventKind{EventPaired}, kinds(events))
	assert.Equal(t, []domain.Ref{alice, bob}, events[0].Players)
	assert.Equal(t, 30, events[0].ExpiresIn)

	events = h.do(Join(carol))
	assert.Equal(t, []EventKind{EventWaiting}, kinds(events))
	assert.True(t, h.engine.queue.Contains(carol.ID))
	assert.False(t, h.engine.queue.Contains(alice.ID))

	timers := h.sched.take()
	require.Len(t, timers, 1)
	assert.Equal(t, DefaultConfirmTimeout, timers[0].d)
	h.assertSingleMembership()
}

func TestEngine_DuplicateJoin(t *testing.T) {
	h := newHarness(t)

	h.do(Join(alice))
	events := h.do(Join(alice))
	assert.Equal(t, []EventKind{EventAlreadyQueued}, kinds(events))
	assert.Equal(t, 1, h.engine.queue.Len())

	// ожидание подтверждения тоже считается очередью
	h.do(Join(bob))
	events = h.do(Join(bob))
	assert.Equal(t, []EventKind{EventAlreadyQueued}, kinds(events))
}

func TestEngine_JoinWhileInSession(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)

	events := h.do(Join(alice))
	assert.Equal(t, []EventKind{EventAlreadyInSession}, kinds(events))
	assert.Equal(t, 0, h.engine.queue.Len())
}

func TestEngine_Leave(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))

	events := h.do(Leave(alice))
	assert.Equal(t, []EventKind{EventRemoved}, kinds(events))
	assert.Equal(t, domain.StatusIdle, h.status(alice))
	assert.Equal(t, 0, h.engine.queue.Len())

	events = h.do(Leave(alice))
	assert.Empty(t, events)
}

func TestEngine_ConfirmPromotesToSession(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))
	h.do(Join(bob))

	events := h.do(Confirm(alice))
	assert.Equal(t, []EventKind{EventConfirmed}, kinds(events))
	assert.Equal(t, domain.StatusQueued, h.status(alice))

	events = h.do(Confirm(bob))
	require.Equal(t, []EventKind{EventConfirmed, EventMatchStarting, EventBoardUpdated}, kinds(events))
	board := events[2]
	require.NotNil(t, board.Mover)
	assert.Equal(t, alice.ID, board.Mover.ID)
	assert.Equal(t, game.Grid{}, *board.Board)
	assert.Equal(t, domain.StatusInSession, h.status(alice))
	assert.Equal(t, domain.StatusInSession, h.status(bob))
	h.assertSingleMembership()
}

func TestEngine_ConfirmWithoutPairingIsStale(t *testing.T) {
	h := newHarness(t)

	events := h.do(Confirm(alice))
	assert.Empty(t, events)
	assert.Equal(t, domain.StatusIdle, h.status(alice))
}

func TestEngine_TimeoutAfterDoubleConfirmIsNoop(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))
	h.do(Join(bob))
	h.do(Confirm(alice))
	h.do(Confirm(bob))

	events := h.fireAll()
	assert.Empty(t, events)
	assert.Equal(t, domain.StatusInSession, h.status(alice))
	assert.Equal(t, domain.StatusInSession, h.status(bob))
	assert.Equal(t, 1, h.engine.directory.ActiveSessions())
	assert.Equal(t, 0, h.engine.queue.Len())
}

func TestEngine_TimeoutRequeuesOnlyConfirmedSide(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))
	h.do(Join(bob))
	h.do(Confirm(bob))

	events := h.fireAll()
	require.Equal(t, []EventKind{EventExpired, EventWaiting}, kinds(events))
	assert.True(t, events[1].Addressed(bob.ID))
	assert.Equal(t, domain.StatusIdle, h.status(alice))
	assert.Equal(t, domain.StatusQueued, h.status(bob))
	assert.True(t, h.engine.queue.Contains(bob.ID))
	h.assertSingleMembership()

	// опоздавшее подтверждение ничего не делает
	assert.Empty(t, h.do(Confirm(alice)))
}

func TestEngine_TimeoutWithNobodyReady(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))
	h.do(Join(bob))

	events := h.fireAll()
	assert.Equal(t, []EventKind{EventExpired}, kinds(events))
	assert.Equal(t, domain.StatusIdle, h.status(alice))
	assert.Equal(t, domain.StatusIdle, h.status(bob))
	assert.Equal(t, 0, h.engine.queue.Len())
	assert.Equal(t, 0, h.engine.queue.Pending())
}

func TestEngine_RequeuedSidePairsWithWaiter(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))
	h.do(Join(bob))
	h.do(Confirm(alice))
	h.do(Join(carol))

	events := h.fireAll()
	require.Equal(t, []EventKind{EventExpired, EventPaired}, kinds(events))
	assert.Equal(t, []domain.Ref{carol, alice}, events[1].Players)
	h.assertSingleMembership()
}

func TestEngine_StaleTimerDoesNotExpireNewPairing(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))
	h.do(Join(bob))
	h.do(Confirm(alice))
	h.do(Confirm(bob))
	h.playQuickWin(alice, bob)
	h.do(RejectRematch(bob))
	h.do(Join(alice))
	h.do(Join(bob))

	// первый таймер пары и таймер реванша - оба устарели
	timers := h.sched.take()
	require.Len(t, timers, 3)
	for _, tm := range timers[:2] {
		tm.f()
		h.engine.handle(<-h.engine.inbox)
	}
	assert.Empty(t, h.rec.reset())
	assert.Equal(t, 1, h.engine.queue.Pending())

	timers[2].f()
	h.engine.handle(<-h.engine.inbox)
	assert.Equal(t, []EventKind{EventExpired}, kinds(h.rec.reset()))
}

func TestEngine_InvalidMoveKeepsTurn(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)

	events := h.do(Move(alice, 3))
	require.Equal(t, []EventKind{EventBoardUpdated}, kinds(events))
	assert.Equal(t, bob.ID, events[0].Mover.ID)
	assert.Equal(t, game.ColorA, events[0].Board.At(game.Rows-1, 3))

	events = h.do(Move(bob, 9))
	require.Equal(t, []EventKind{EventInvalidMove}, kinds(events))
	assert.Equal(t, []domain.Ref{bob}, events[0].To)
	require.NotNil(t, events[0].Column)
	assert.Equal(t, 9, *events[0].Column)

	s, _ := h.engine.directory.Session(bob.ID)
	assert.Equal(t, bob.ID, s.Mover())
}

func TestEngine_MoveOutOfTurnIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)

	assert.Empty(t, h.do(Move(bob, 0)))
	assert.Empty(t, h.do(Move(carol, 0)))
}

func TestEngine_EndToEnd(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, []EventKind{EventWaiting}, kinds(h.do(Join(alice))))
	paired := h.do(Join(bob))
	require.Equal(t, []EventKind{EventPaired}, kinds(paired))
	assert.Equal(t, []domain.Ref{alice, bob}, paired[0].Players)
	require.Len(t, h.sched.timers, 1)

	assert.Equal(t, []EventKind{EventConfirmed}, kinds(h.do(Confirm(alice))))
	started := h.do(Confirm(bob))
	require.Contains(t, kinds(started), EventBoardUpdated)
	assert.Equal(t, alice.ID, started[len(started)-1].Mover.ID)

	h.do(Move(alice, 3))
	assert.Equal(t, []EventKind{EventInvalidMove}, kinds(h.do(Move(bob, 9))))

	// alice: 3,4,5 внизу, затем 6; bob кладет на ее фишки
	h.do(Move(bob, 3))
	h.do(Move(alice, 4))
	h.do(Move(bob, 4))
	h.do(Move(alice, 5))
	h.do(Move(bob, 5))
	events := h.do(Move(alice, 6))

	require.Equal(t, []EventKind{EventBoardUpdated, EventMatchResult, EventRematchPrompt}, kinds(events))
	assert.Nil(t, events[0].Mover)
	result := events[1].Result
	require.NotNil(t, result)
	assert.False(t, result.Tie)
	assert.Equal(t, alice.ID, result.Winner.ID)
	assert.Equal(t, bob.ID, result.Loser.ID)
	assert.Equal(t, 30, events[2].ExpiresIn)

	a, _ := h.engine.player(alice.ID)
	b, _ := h.engine.player(bob.ID)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, b.Losses)
	assert.Equal(t, domain.StatusRematch, a.Status)
	assert.Equal(t, 0, h.engine.directory.ActiveSessions())
	assert.Equal(t, 1, h.engine.directory.PendingRematches())

	timers := h.sched.take()
	require.Len(t, timers, 2)
	assert.Equal(t, DefaultRematchTimeout, timers[1].d)
	h.assertSingleMembership()
}

// playColumns ходит по очереди: четные индексы first, нечетные second
func (h *harness) playColumns(first, second domain.Ref, cols []int) []Event {
	h.t.Helper()
	var last []Event
	for i, col := range cols {
		who := first
		if i%2 == 1 {
			who = second
		}
		last = h.do(Move(who, col))
		if i < len(cols)-1 {
			require.NotContains(h.t, kinds(last), EventMatchResult, "game ended early at move %d", i)
		}
	}
	return last
}

func TestEngine_TieUpdatesBothPlayers(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)

	// колонки заполняются парами со сменой цвета на середине, линий из четырех нет
	var cols []int
	for _, pair := range [][2]int{{0, 1}, {2, 3}, {4, 5}} {
		for i := 0; i < 3; i++ {
			cols = append(cols, pair[0], pair[1])
		}
		for i := 0; i < 3; i++ {
			cols = append(cols, pair[1], pair[0])
		}
	}
	for i := 0; i < game.Rows; i++ {
		cols = append(cols, 6)
	}
	require.Len(t, cols, game.Rows*game.Columns)

	events := h.playColumns(alice, bob, cols)
	require.Equal(t, []EventKind{EventBoardUpdated, EventMatchResult, EventRematchPrompt}, kinds(events))
	assert.Nil(t, events[0].Mover)
	assert.True(t, events[0].Board.Full())

	result := events[1].Result
	require.NotNil(t, result)
	assert.True(t, result.Tie)
	assert.Nil(t, result.Winner)
	assert.Nil(t, result.Loser)
	assert.Equal(t, game.Rows*game.Columns, result.Moves)

	a, _ := h.engine.player(alice.ID)
	b, _ := h.engine.player(bob.ID)
	assert.Equal(t, 1, a.Ties)
	assert.Equal(t, 1, b.Ties)
	assert.Zero(t, a.Wins+a.Losses+b.Wins+b.Losses)
	assert.Equal(t, domain.StatusRematch, a.Status)
	assert.Equal(t, domain.StatusRematch, b.Status)
	assert.Equal(t, 1, h.engine.directory.PendingRematches())
	h.assertSingleMembership()

	// таймер пары устарел, таймер реванша возвращает обоих в Idle
	timers := h.sched.timers
	require.Len(t, timers, 2)
	assert.Equal(t, DefaultRematchTimeout, timers[1].d)
	assert.Equal(t, []EventKind{EventRematchTimeout}, kinds(h.fireAll()))
	assert.Equal(t, domain.StatusIdle, h.status(alice))
	assert.Equal(t, domain.StatusIdle, h.status(bob))
}

func TestEngine_SecondMoverWins(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)

	// bob собирает вертикаль в колонке 3
	events := h.playColumns(alice, bob, []int{0, 3, 1, 3, 5, 3, 6, 3})
	require.Equal(t, []EventKind{EventBoardUpdated, EventMatchResult, EventRematchPrompt}, kinds(events))

	result := events[1].Result
	require.NotNil(t, result)
	assert.False(t, result.Tie)
	require.NotNil(t, result.Winner)
	require.NotNil(t, result.Loser)
	assert.Equal(t, bob.ID, result.Winner.ID)
	assert.Equal(t, alice.ID, result.Loser.ID)
	assert.Equal(t, 8, result.Moves)

	a, _ := h.engine.player(alice.ID)
	b, _ := h.engine.player(bob.ID)
	assert.Equal(t, 1, a.Losses)
	assert.Equal(t, 0, a.Wins)
	assert.Equal(t, 1, b.Wins)
	assert.Equal(t, 0, b.Losses)
	h.assertSingleMembership()
}

func TestEngine_RematchSwapsRoles(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)
	h.playQuickWin(alice, bob)

	events := h.do(AcceptRematch(alice))
	assert.Equal(t, []EventKind{EventRematchAck}, kinds(events))

	events = h.do(AcceptRematch(bob))
	require.Equal(t, []EventKind{EventRematchAck, EventRematchStarted, EventBoardUpdated}, kinds(events))
	assert.Equal(t, bob.ID, events[2].Mover.ID)

	s, ok := h.engine.directory.Session(alice.ID)
	require.True(t, ok)
	assert.Equal(t, bob.ID, s.First)
	assert.Equal(t, alice.ID, s.Second)
	assert.Equal(t, domain.StatusInSession, h.status(bob))

	// таймеры пары и реванша после старта новой партии ничего не делают
	assert.Empty(t, h.fireAll())
	h.assertSingleMembership()
}

func TestEngine_RejectRematchAfterOpponentAccepted(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)
	h.playQuickWin(alice, bob)

	h.do(AcceptRematch(alice))
	events := h.do(RejectRematch(bob))
	require.Equal(t, []EventKind{EventRematchCancelled}, kinds(events))
	assert.Equal(t, bob.ID, events[0].Players[0].ID)
	assert.True(t, events[0].Addressed(alice.ID))
	assert.True(t, events[0].Addressed(bob.ID))
	assert.Equal(t, domain.StatusIdle, h.status(alice))
	assert.Equal(t, domain.StatusIdle, h.status(bob))

	assert.Empty(t, h.do(AcceptRematch(alice)))
	assert.Empty(t, h.do(RejectRematch(alice)))
}

func TestEngine_RematchTimeoutDoesNotRequeue(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)
	h.sched.take()
	h.playQuickWin(alice, bob)
	h.do(AcceptRematch(alice))

	events := h.fireAll()
	assert.Equal(t, []EventKind{EventRematchTimeout}, kinds(events))
	assert.Equal(t, domain.StatusIdle, h.status(alice))
	assert.Equal(t, domain.StatusIdle, h.status(bob))
	assert.Equal(t, 0, h.engine.queue.Len())
	assert.Equal(t, 0, h.engine.directory.PendingRematches())
}

func TestEngine_JoinDuringRematchNegotiation(t *testing.T) {
	h := newHarness(t)
	h.startGame(alice, bob)
	h.playQuickWin(alice, bob)

	events := h.do(Join(alice))
	assert.Equal(t, []EventKind{EventAlreadyInSession}, kinds(events))
	h.assertSingleMembership()
}

func TestEngine_ProfileAndSeed(t *testing.T) {
	h := newHarness(t)
	a := ShowProfile(alice)
	a.Seed = &domain.Stats{Wins: 5, Losses: 2, Ties: 1}

	events := h.do(a)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Profile)
	assert.Equal(t, 5, events[0].Profile.Wins)
	assert.Equal(t, "Idle", events[0].Profile.Status)

	// seed применяется только при первом появлении
	a.Seed = &domain.Stats{Wins: 99}
	events = h.do(a)
	assert.Equal(t, 5, events[0].Profile.Wins)
}

func TestEngine_LateSeedAppliesOnce(t *testing.T) {
	h := newHarness(t)

	// первый seed не пришел: игрок заведен с нулевыми счетчиками
	events := h.do(ShowProfile(alice))
	assert.Equal(t, 0, events[0].Profile.Wins)

	a := ShowProfile(alice)
	a.Seed = &domain.Stats{Wins: 4, Ties: 1}
	events = h.do(a)
	assert.Equal(t, 4, events[0].Profile.Wins)
	assert.Equal(t, 1, events[0].Profile.Ties)

	a.Seed = &domain.Stats{Wins: 99}
	events = h.do(a)
	assert.Equal(t, 4, events[0].Profile.Wins)
}

func TestEngine_ChatRefresh(t *testing.T) {
	h := newHarness(t)
	h.do(Join(alice))

	web := domain.Ref{ID: alice.ID, Name: alice.Name}
	h.do(ShowProfile(web))
	p, _ := h.engine.player(alice.ID)
	assert.Equal(t, alice.ChatID, p.ChatID)

	moved := domain.Ref{ID: alice.ID, Name: alice.Name, ChatID: 555}
	h.do(ShowProfile(moved))
	p, _ = h.engine.player(alice.ID)
	assert.Equal(t, int64(555), p.ChatID)
	assert.Equal(t, 1, h.engine.players.Len())
}

func TestEngine_RunAndSubmit(t *testing.T) {
	events := make(chan Event, 16)
	notifier := NotifierFunc(func(evs []Event) {
		for _, ev := range evs {
			events <- ev
		}
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(Config{ConfirmTimeout: time.Hour}, &fakeScheduler{}, notifier, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.NoError(t, e.Submit(ctx, Join(alice)))
	require.NoError(t, e.Submit(ctx, Join(bob)))

	expect := []EventKind{EventWaiting, EventPaired}
	for _, want := range expect {
		select {
		case ev := <-events:
			assert.Equal(t, want, ev.Kind)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %s not delivered", want)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	assert.ErrorIs(t, e.Submit(context.Background(), Join(carol)), ErrEngineStopped)
}
