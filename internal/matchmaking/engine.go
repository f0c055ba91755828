package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/metrics"

	"github.com/google/uuid"
)

var ErrEngineStopped = errors.New("matchmaking engine stopped")

const (
	DefaultConfirmTimeout = 30 * time.Second
	DefaultRematchTimeout = 30 * time.Second
	defaultInboxSize      = 256
)

type Config struct {
	ConfirmTimeout time.Duration
	RematchTimeout time.Duration
	InboxSize      int
}

// message - единица работы цикла: действие игрока или сработавший таймер
type message struct {
	action  *Action
	timeout *Timeout
}

// Engine - единственная точка сериализации: все действия и таймеры
// обрабатываются по одному в горутине Run
type Engine struct {
	players   *Registry
	queue     *MatchQueue
	directory *Directory

	sched    Scheduler
	notifier Notifier
	log      *slog.Logger

	inbox  chan message
	outbox []Event
	done   chan struct{}
}

func NewEngine(cfg Config, sched Scheduler, notifier Notifier, log *slog.Logger) *Engine {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.RematchTimeout <= 0 {
		cfg.RematchTimeout = DefaultRematchTimeout
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if sched == nil {
		sched = ClockScheduler{}
	}
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		players:  NewRegistry(),
		sched:    sched,
		notifier: notifier,
		log:      log,
		inbox:    make(chan message, cfg.InboxSize),
		done:     make(chan struct{}),
	}
	e.queue = newMatchQueue(cfg.ConfirmTimeout, uuid.NewString, e, log)
	e.directory = newDirectory(e.players, cfg.RematchTimeout, uuid.NewString, e, log)
	return e
}

// Run обрабатывает входящие сообщения до отмены ctx
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	e.log.Info("matchmaking engine started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info("matchmaking engine stopped")
			return ctx.Err()
		case m := <-e.inbox:
			e.handle(m)
		}
	}
}

// Submit ставит действие в очередь движка
func (e *Engine) Submit(ctx context.Context, a Action) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}

	select {
	case e.inbox <- message{action: &a}:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) handle(m message) {
	switch {
	case m.action != nil:
		e.dispatch(*m.action)
	case m.timeout != nil:
		e.fire(*m.timeout)
	}
	e.flush()
}

func (e *Engine) dispatch(a Action) {
	p := e.players.Resolve(a.Player, a.Seed)
	metrics.ActionsTotal.WithLabelValues(a.Kind.String()).Inc()
	e.log.Debug("action", "kind", a.Kind.String(), "player_id", p.ID, "status", p.Status.String())

	switch a.Kind {
	case ActionJoin:
		e.queue.Join(p)
	case ActionLeave:
		e.queue.Leave(p)
	case ActionConfirm:
		c, ok := e.queue.Confirm(p)
		if !ok {
			return
		}
		e.emit(Event{
			Kind:    EventMatchStarting,
			To:      refs(c.PartyA, c.PartyB),
			Players: refs(c.PartyA, c.PartyB),
		})
		e.directory.StartSession(c.PartyA, c.PartyB)
	case ActionMove:
		e.directory.SubmitMove(p, a.Column)
	case ActionAcceptRematch:
		e.directory.AcceptRematch(p)
	case ActionRejectRematch:
		e.directory.RejectRematch(p)
	case ActionShowProfile:
		profile := p.Profile()
		e.emit(Event{Kind: EventProfile, To: refs(p), Profile: &profile})
	default:
		e.log.Warn("unknown action", "kind", a.Kind.String(), "player_id", p.ID)
	}
}

func (e *Engine) fire(t Timeout) {
	e.log.Debug("timer fired", "kind", t.Kind.String(), "record_id", t.RecordID)
	switch t.Kind {
	case TimeoutPairing:
		e.queue.onTimeout(t)
	case TimeoutRematch:
		e.directory.onTimeout(t)
	}
}

// flush отдает накопленные события после того, как шаг полностью применен
func (e *Engine) flush() {
	metrics.QueueDepth.Set(float64(e.queue.Len()))
	metrics.PendingConfirmations.Set(float64(e.queue.Pending()))
	metrics.ActiveSessions.Set(float64(e.directory.ActiveSessions()))
	metrics.PendingRematches.Set(float64(e.directory.PendingRematches()))
	metrics.KnownPlayers.Set(float64(e.players.Len()))

	if len(e.outbox) == 0 {
		return
	}
	events := e.outbox
	e.outbox = nil
	for _, ev := range events {
		metrics.EventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	}
	if e.notifier != nil {
		e.notifier.Notify(events)
	}
}

func (e *Engine) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.outbox = append(e.outbox, ev)
}

// schedule: таймер возвращается в тот же inbox, что и действия игроков
func (e *Engine) schedule(d time.Duration, t Timeout) {
	e.sched.AfterFunc(d, func() {
		select {
		case e.inbox <- message{timeout: &t}:
		case <-e.done:
		}
	})
}

// player возвращает копию записи игрока. вызывать только из цикла движка
func (e *Engine) player(id domain.PlayerID) (domain.Player, bool) {
	p, ok := e.players.Get(id)
	if !ok {
		return domain.Player{}, false
	}
	return *p, true
}
