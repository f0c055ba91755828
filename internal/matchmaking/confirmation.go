package matchmaking

import "connect4_bot/internal/domain"

// Confirmation - двустороннее рукопожатие перед матчем и перед реваншем
type Confirmation struct {
	ID     string
	PartyA *domain.Player
	PartyB *domain.Player
	readyA bool
	readyB bool
}

func NewConfirmation(id string, a, b *domain.Player) *Confirmation {
	return &Confirmation{ID: id, PartyA: a, PartyB: b}
}

// MarkReady идемпотентна; false если игрок не участник
func (c *Confirmation) MarkReady(id domain.PlayerID) bool {
	switch id {
	case c.PartyA.ID:
		c.readyA = true
	case c.PartyB.ID:
		c.readyB = true
	default:
		return false
	}
	return true
}

func (c *Confirmation) BothReady() bool {
	return c.readyA && c.readyB
}

func (c *Confirmation) Ready(id domain.PlayerID) bool {
	switch id {
	case c.PartyA.ID:
		return c.readyA
	case c.PartyB.ID:
		return c.readyB
	default:
		return false
	}
}

func (c *Confirmation) Parties() []*domain.Player {
	return []*domain.Player{c.PartyA, c.PartyB}
}

// confirmationIndex: одна запись доступна по id каждой из сторон
type confirmationIndex map[domain.PlayerID]*Confirmation

func (idx confirmationIndex) put(c *Confirmation) {
	idx[c.PartyA.ID] = c
	idx[c.PartyB.ID] = c
}

func (idx confirmationIndex) get(id domain.PlayerID) *Confirmation {
	return idx[id]
}

// remove чистит оба слота, но только если они указывают именно на c
func (idx confirmationIndex) remove(c *Confirmation) {
	for _, p := range c.Parties() {
		if idx[p.ID] == c {
			delete(idx, p.ID)
		}
	}
}

// lookup находит запись по таймеру: та же сторона и тот же id записи
func (idx confirmationIndex) lookup(t Timeout) *Confirmation {
	c := idx[t.Party]
	if c == nil || c.ID != t.RecordID {
		return nil
	}
	return c
}

// records - число уникальных записей
func (idx confirmationIndex) records() int {
	return len(idx) / 2
}
