package matchmaking

import (
	"container/list"
	"log/slog"
	"time"

	"connect4_bot/internal/domain"
)

type JoinResult int

const (
	JoinWaiting JoinResult = iota + 1
	JoinPaired
	JoinAlreadyQueued
	JoinAlreadyInSession
)

// MatchQueue - FIFO ожидающих игроков и подтверждения уже составленных пар.
// в очереди лежат только игроки со статусом Queued
type MatchQueue struct {
	order   *list.List
	index   map[domain.PlayerID]*list.Element
	pending confirmationIndex

	timeout time.Duration
	newID   func() string
	fx      effects
	log     *slog.Logger
}

func newMatchQueue(timeout time.Duration, newID func() string, fx effects, log *slog.Logger) *MatchQueue {
	return &MatchQueue{
		order:   list.New(),
		index:   make(map[domain.PlayerID]*list.Element),
		pending: make(confirmationIndex),
		timeout: timeout,
		newID:   newID,
		fx:      fx,
		log:     log,
	}
}

// Join ставит игрока в очередь или сразу составляет пару с самым давним ожидающим.
// дольше ждавший становится первой стороной записи и ходит первым
func (q *MatchQueue) Join(p *domain.Player) JoinResult {
	switch {
	case p.Busy():
		q.fx.emit(Event{Kind: EventAlreadyInSession, To: refs(p)})
		return JoinAlreadyInSession
	case p.Status == domain.StatusQueued:
		q.fx.emit(Event{Kind: EventAlreadyQueued, To: refs(p)})
		return JoinAlreadyQueued
	}

	front := q.order.Front()
	if front == nil {
		q.index[p.ID] = q.order.PushBack(p)
		p.Status = domain.StatusQueued
		q.fx.emit(Event{Kind: EventWaiting, To: refs(p)})
		q.log.Debug("player waiting", "player_id", p.ID)
		return JoinWaiting
	}

	head := q.order.Remove(front).(*domain.Player)
	delete(q.index, head.ID)
	p.Status = domain.StatusQueued

	c := NewConfirmation(q.newID(), head, p)
	q.pending.put(c)
	q.fx.emit(Event{
		Kind:      EventPaired,
		To:        refs(head, p),
		Players:   refs(head, p),
		ExpiresIn: int(q.timeout / time.Second),
	})
	q.fx.schedule(q.timeout, Timeout{Kind: TimeoutPairing, RecordID: c.ID, Party: head.ID})

	q.log.Info("players paired", "record_id", c.ID, "first", head.ID, "second", p.ID)
	return JoinPaired
}

// Leave убирает игрока из очереди ожидания. подтверждение пары так не отменить
func (q *MatchQueue) Leave(p *domain.Player) bool {
	el, ok := q.index[p.ID]
	if !ok {
		return false
	}
	q.order.Remove(el)
	delete(q.index, p.ID)
	p.Status = domain.StatusIdle
	q.fx.emit(Event{Kind: EventRemoved, To: refs(p)})
	q.log.Debug("player left queue", "player_id", p.ID)
	return true
}

// Confirm отмечает готовность. возвращает запись, когда готовы обе стороны:
// запись уже снята с обоих слотов, вызывающий запускает партию
func (q *MatchQueue) Confirm(p *domain.Player) (*Confirmation, bool) {
	c := q.pending.get(p.ID)
	if c == nil {
		q.log.Debug("stale confirm", "player_id", p.ID)
		return nil, false
	}
	c.MarkReady(p.ID)
	q.fx.emit(Event{Kind: EventConfirmed, To: refs(p)})

	if !c.BothReady() {
		return nil, false
	}
	q.pending.remove(c)
	return c, true
}

func (q *MatchQueue) onTimeout(t Timeout) {
	c := q.pending.lookup(t)
	if c == nil {
		// обе стороны уже подтвердили
		q.log.Debug("pairing timeout ignored", "record_id", t.RecordID)
		return
	}
	q.pending.remove(c)

	readyA, readyB := c.readyA, c.readyB
	c.PartyA.Status = domain.StatusIdle
	c.PartyB.Status = domain.StatusIdle
	q.fx.emit(Event{
		Kind:    EventExpired,
		To:      refs(c.PartyA, c.PartyB),
		Players: refs(c.PartyA, c.PartyB),
	})
	q.log.Info("pairing expired", "record_id", c.ID, "first_ready", readyA, "second_ready", readyB)

	// обратно в очередь возвращается только подтвердившая сторона
	if readyA {
		q.Join(c.PartyA)
	}
	if readyB {
		q.Join(c.PartyB)
	}
}

func (q *MatchQueue) Len() int {
	return q.order.Len()
}

func (q *MatchQueue) Pending() int {
	return q.pending.records()
}

// Contains - стоит ли игрок в FIFO (не считая ожидающих подтверждения)
func (q *MatchQueue) Contains(id domain.PlayerID) bool {
	_, ok := q.index[id]
	return ok
}
