package matchmaking

import "connect4_bot/internal/domain"

// Registry - все игроки, когда-либо писавшие боту. живет столько же, сколько процесс
type Registry struct {
	players map[domain.PlayerID]*domain.Player
	// игроки, чьи счетчики уже загружены из хранилища
	seeded map[domain.PlayerID]bool
}

func NewRegistry() *Registry {
	return &Registry{
		players: make(map[domain.PlayerID]*domain.Player),
		seeded:  make(map[domain.PlayerID]bool),
	}
}

// Resolve возвращает запись игрока, создавая ее при первом обращении.
// seed применяется один раз: при создании или позже, если первый seed не пришел
func (r *Registry) Resolve(ref domain.Ref, seed *domain.Stats) *domain.Player {
	p, ok := r.players[ref.ID]
	if !ok {
		p = domain.NewPlayer(ref)
		r.players[ref.ID] = p
	} else {
		p.Touch(ref)
	}
	if seed != nil && !r.seeded[ref.ID] {
		p.Stats = *seed
		r.seeded[ref.ID] = true
	}
	return p
}

func (r *Registry) Get(id domain.PlayerID) (*domain.Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *Registry) Len() int {
	return len(r.players)
}
