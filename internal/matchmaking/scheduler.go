package matchmaking

import (
	"time"

	"connect4_bot/internal/domain"
)

// Scheduler вызывает f не раньше чем через d. отмены нет:
// сработавший таймер сам проверяет, актуальна ли его запись
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type ClockScheduler struct{}

func (ClockScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type TimeoutKind int

const (
	TimeoutPairing TimeoutKind = iota + 1
	TimeoutRematch
)

func (k TimeoutKind) String() string {
	if k == TimeoutPairing {
		return "pairing"
	}
	return "rematch"
}

// Timeout - сообщение таймера, возвращаемое в общий поток событий
type Timeout struct {
	Kind     TimeoutKind
	RecordID string
	Party    domain.PlayerID
}

// effects - побочные эффекты, которые очередь и каталог запрашивают у движка
type effects interface {
	emit(ev Event)
	schedule(d time.Duration, t Timeout)
}
