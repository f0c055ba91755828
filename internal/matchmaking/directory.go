package matchmaking

import (
	"errors"
	"log/slog"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/game"
)

// Directory - активные партии и переговоры о реванше.
// оба участника указывают на одну и ту же запись, удаление чистит оба слота
type Directory struct {
	sessions  map[domain.PlayerID]*game.Session
	rematches confirmationIndex
	players   *Registry

	timeout time.Duration
	newID   func() string
	fx      effects
	log     *slog.Logger
}

func newDirectory(players *Registry, timeout time.Duration, newID func() string, fx effects, log *slog.Logger) *Directory {
	return &Directory{
		sessions:  make(map[domain.PlayerID]*game.Session),
		rematches: make(confirmationIndex),
		players:   players,
		timeout:   timeout,
		newID:     newID,
		fx:        fx,
		log:       log,
	}
}

// StartSession создает партию, first ходит первым
func (d *Directory) StartSession(first, second *domain.Player) *game.Session {
	s := game.NewSession(d.newID(), first.ID, second.ID)
	d.sessions[first.ID] = s
	d.sessions[second.ID] = s
	first.Status = domain.StatusInSession
	second.Status = domain.StatusInSession

	d.log.Info("session started", "session_id", s.ID, "first", first.ID, "second", second.ID)
	d.emitBoard(s, first, second)
	return s
}

func (d *Directory) Session(id domain.PlayerID) (*game.Session, bool) {
	s, ok := d.sessions[id]
	return s, ok
}

// SubmitMove: ход не в свою очередь или без партии молча игнорируется
func (d *Directory) SubmitMove(p *domain.Player, column int) {
	s, ok := d.sessions[p.ID]
	if !ok || s.Mover() != p.ID {
		d.log.Debug("stale move", "player_id", p.ID, "column", column)
		return
	}

	outcome, err := s.Play(p.ID, column)
	if errors.Is(err, game.ErrInvalidMove) {
		col := column
		d.fx.emit(Event{Kind: EventInvalidMove, To: refs(p), SessionID: s.ID, Column: &col})
		return
	}
	if err != nil {
		d.log.Warn("move rejected", "session_id", s.ID, "player_id", p.ID, "error", err)
		return
	}

	first, second := d.pair(s)
	if !outcome.Terminal() {
		d.emitBoard(s, first, second)
		return
	}
	d.finish(s, first, second)
}

func (d *Directory) finish(s *game.Session, first, second *domain.Player) {
	grid := s.Grid()
	d.fx.emit(Event{
		Kind:      EventBoardUpdated,
		To:        refs(first, second),
		Players:   refs(first, second),
		SessionID: s.ID,
		Board:     &grid,
	})

	result := &Result{Moves: s.Moves()}
	if winnerID, _, ok := s.Winner(); ok {
		winner, loser := first, second
		if winnerID == second.ID {
			winner, loser = second, first
		}
		winner.Wins++
		loser.Losses++
		w, l := winner.Ref(), loser.Ref()
		result.Winner, result.Loser = &w, &l
	} else {
		first.Ties++
		second.Ties++
		result.Tie = true
	}
	d.fx.emit(Event{
		Kind:      EventMatchResult,
		To:        refs(first, second),
		Players:   refs(first, second),
		SessionID: s.ID,
		Result:    result,
	})
	d.log.Info("session finished", "session_id", s.ID, "outcome", s.Outcome().String(), "moves", s.Moves())

	d.removeSession(s)

	c := NewConfirmation(d.newID(), first, second)
	d.rematches.put(c)
	first.Status = domain.StatusRematch
	second.Status = domain.StatusRematch
	d.fx.emit(Event{
		Kind:      EventRematchPrompt,
		To:        refs(first, second),
		Players:   refs(first, second),
		SessionID: s.ID,
		ExpiresIn: int(d.timeout / time.Second),
	})
	d.fx.schedule(d.timeout, Timeout{Kind: TimeoutRematch, RecordID: c.ID, Party: first.ID})
}

// AcceptRematch: при согласии обеих сторон новая партия начинается со сменой очередности
func (d *Directory) AcceptRematch(p *domain.Player) {
	c := d.rematches.get(p.ID)
	if c == nil {
		d.log.Debug("stale rematch accept", "player_id", p.ID)
		return
	}
	c.MarkReady(p.ID)
	d.fx.emit(Event{Kind: EventRematchAck, To: refs(p)})
	if !c.BothReady() {
		return
	}

	d.rematches.remove(c)
	d.fx.emit(Event{
		Kind:    EventRematchStarted,
		To:      refs(c.PartyA, c.PartyB),
		Players: refs(c.PartyB, c.PartyA),
	})
	d.StartSession(c.PartyB, c.PartyA)
}

// RejectRematch отменяет переговоры сразу, даже если соперник уже согласился
func (d *Directory) RejectRematch(p *domain.Player) {
	c := d.rematches.get(p.ID)
	if c == nil {
		d.log.Debug("stale rematch reject", "player_id", p.ID)
		return
	}
	d.rematches.remove(c)
	c.PartyA.Status = domain.StatusIdle
	c.PartyB.Status = domain.StatusIdle
	d.fx.emit(Event{
		Kind:    EventRematchCancelled,
		To:      refs(c.PartyA, c.PartyB),
		Players: refs(p, d.other(c, p)),
	})
	d.log.Info("rematch cancelled", "record_id", c.ID, "by", p.ID)
}

// onTimeout: в отличие от таймаута пары, никого не возвращает в очередь
func (d *Directory) onTimeout(t Timeout) {
	c := d.rematches.lookup(t)
	if c == nil {
		d.log.Debug("rematch timeout ignored", "record_id", t.RecordID)
		return
	}
	d.rematches.remove(c)
	c.PartyA.Status = domain.StatusIdle
	c.PartyB.Status = domain.StatusIdle
	d.fx.emit(Event{
		Kind:    EventRematchTimeout,
		To:      refs(c.PartyA, c.PartyB),
		Players: refs(c.PartyA, c.PartyB),
	})
	d.log.Info("rematch timed out", "record_id", c.ID)
}

func (d *Directory) ActiveSessions() int {
	return len(d.sessions) / 2
}

func (d *Directory) PendingRematches() int {
	return d.rematches.records()
}

func (d *Directory) emitBoard(s *game.Session, first, second *domain.Player) {
	grid := s.Grid()
	mover := first.Ref()
	if s.Mover() == second.ID {
		mover = second.Ref()
	}
	d.fx.emit(Event{
		Kind:      EventBoardUpdated,
		To:        refs(first, second),
		Players:   refs(first, second),
		SessionID: s.ID,
		Board:     &grid,
		Mover:     &mover,
	})
}

func (d *Directory) removeSession(s *game.Session) {
	for _, id := range []domain.PlayerID{s.First, s.Second} {
		if d.sessions[id] == s {
			delete(d.sessions, id)
		}
	}
}

// pair возвращает участников партии в порядке хода
func (d *Directory) pair(s *game.Session) (*domain.Player, *domain.Player) {
	first, _ := d.players.Get(s.First)
	second, _ := d.players.Get(s.Second)
	return first, second
}

func (d *Directory) other(c *Confirmation, p *domain.Player) *domain.Player {
	if c.PartyA.ID == p.ID {
		return c.PartyB
	}
	return c.PartyA
}
