package game

import "errors"

const (
	Rows    = 6
	Columns = 7
	// длина выигрышной линии
	lineLength = 4
)

// Color - содержимое клетки. первый игрок ходит ColorA
type Color int8

const (
	Empty  Color = 0
	ColorA Color = 1
	ColorB Color = -1
)

func (c Color) Opponent() Color {
	return -c
}

// Outcome результат проверки доски
type Outcome int

const (
	Continuing Outcome = iota
	Tie
	ColorAWins
	ColorBWins
)

func (o Outcome) Terminal() bool {
	return o != Continuing
}

func (o Outcome) String() string {
	switch o {
	case Continuing:
		return "continuing"
	case Tie:
		return "tie"
	case ColorAWins:
		return "color_a_wins"
	case ColorBWins:
		return "color_b_wins"
	default:
		return "unknown"
	}
}

func winFor(c Color) Outcome {
	if c == ColorA {
		return ColorAWins
	}
	return ColorBWins
}

var (
	ErrInvalidMove     = errors.New("invalid move")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNotParticipant  = errors.New("player is not in this session")
	ErrSessionFinished = errors.New("session already finished")
)
