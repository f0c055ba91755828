package game

import (
	"time"

	"connect4_bot/internal/domain"
)

// Session - одна партия между двумя игроками.
// First играет ColorA и ходит первым
type Session struct {
	ID        string
	First     domain.PlayerID
	Second    domain.PlayerID
	StartedAt time.Time

	grid    Grid
	turn    Color
	outcome Outcome
	moves   int
}

func NewSession(id string, first, second domain.PlayerID) *Session {
	return &Session{
		ID:        id,
		First:     first,
		Second:    second,
		StartedAt: time.Now(),
		turn:      ColorA,
	}
}

// Grid возвращает копию доски
func (s *Session) Grid() Grid {
	return s.grid
}

func (s *Session) Outcome() Outcome {
	return s.outcome
}

func (s *Session) Moves() int {
	return s.moves
}

// Mover - чей сейчас ход
func (s *Session) Mover() domain.PlayerID {
	if s.turn == ColorA {
		return s.First
	}
	return s.Second
}

func (s *Session) ColorOf(id domain.PlayerID) Color {
	switch id {
	case s.First:
		return ColorA
	case s.Second:
		return ColorB
	default:
		return Empty
	}
}

func (s *Session) Opponent(id domain.PlayerID) domain.PlayerID {
	if id == s.First {
		return s.Second
	}
	return s.First
}

// Play делает ход за игрока. при ErrInvalidMove ход не переходит
func (s *Session) Play(id domain.PlayerID, column int) (Outcome, error) {
	if s.outcome.Terminal() {
		return s.outcome, ErrSessionFinished
	}
	color := s.ColorOf(id)
	if color == Empty {
		return s.outcome, ErrNotParticipant
	}
	if color != s.turn {
		return s.outcome, ErrNotYourTurn
	}
	if !s.grid.Insert(color, column) {
		return s.outcome, ErrInvalidMove
	}
	s.moves++
	s.outcome = s.grid.Evaluate()
	if !s.outcome.Terminal() {
		s.turn = s.turn.Opponent()
	}
	return s.outcome, nil
}

// Winner возвращает победителя и проигравшего; ok=false для ничьей и незаконченной партии
func (s *Session) Winner() (winner, loser domain.PlayerID, ok bool) {
	switch s.outcome {
	case ColorAWins:
		return s.First, s.Second, true
	case ColorBWins:
		return s.Second, s.First, true
	default:
		return 0, 0, false
	}
}
