package matchmaking

import (
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/game"
)

type EventKind string

const (
	EventWaiting          EventKind = "waiting"
	EventAlreadyQueued    EventKind = "already_queued"
	EventAlreadyInSession EventKind = "already_in_session"
	EventRemoved          EventKind = "removed"
	EventPaired           EventKind = "paired"
	EventConfirmed        EventKind = "confirmed"
	EventExpired          EventKind = "expired"
	EventMatchStarting    EventKind = "match_starting"
	EventBoardUpdated     EventKind = "board_updated"
	EventInvalidMove      EventKind = "invalid_move"
	EventMatchResult      EventKind = "match_result"
	EventRematchPrompt    EventKind = "rematch_prompt"
	EventRematchAck       EventKind = "rematch_ack"
	EventRematchStarted   EventKind = "rematch_started"
	EventRematchTimeout   EventKind = "rematch_timeout"
	EventRematchCancelled EventKind = "rematch_cancelled"
	EventProfile          EventKind = "profile"
)

// Result итог партии. Winner/Loser пустые при ничьей
type Result struct {
	Tie    bool        `json:"tie"`
	Winner *domain.Ref `json:"winner,omitempty"`
	Loser  *domain.Ref `json:"loser,omitempty"`
	Moves  int         `json:"moves"`
}

// Event - исходящее уведомление для коллабораторов доставки.
// To - адресаты, Players - пара участников в порядке (первый, второй)
type Event struct {
	Kind      EventKind       `json:"type"`
	To        []domain.Ref    `json:"-"`
	Players   []domain.Ref    `json:"players,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Board     *game.Grid      `json:"board,omitempty"`
	Mover     *domain.Ref     `json:"mover,omitempty"`
	Column    *int            `json:"column,omitempty"`
	Result    *Result         `json:"result,omitempty"`
	Profile   *domain.Profile `json:"profile,omitempty"`
	ExpiresIn int             `json:"expires_in,omitempty"` // секунды
	At        time.Time       `json:"at"`
}

// Addressed сообщает, адресовано ли событие игроку
func (e Event) Addressed(id domain.PlayerID) bool {
	for _, r := range e.To {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Notifier принимает события после фиксации изменений состояния.
// реализация не должна блокировать цикл движка
type Notifier interface {
	Notify(events []Event)
}

type NotifierFunc func(events []Event)

func (f NotifierFunc) Notify(events []Event) {
	f(events)
}

// Notifiers рассылает одни и те же события нескольким коллабораторам
type Notifiers []Notifier

func (ns Notifiers) Notify(events []Event) {
	for _, n := range ns {
		if n != nil {
			n.Notify(events)
		}
	}
}

func refs(players ...*domain.Player) []domain.Ref {
	out := make([]domain.Ref, 0, len(players))
	for _, p := range players {
		out = append(out, p.Ref())
	}
	return out
}
