package domain

// PlayerID совпадает с Telegram user id
type PlayerID int64

// Status определяет, какие действия игроку сейчас разрешены
type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusInSession
	// после окончания партии, пока идут переговоры о реванше
	StatusRematch
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusQueued:
		return "Match Making"
	case StatusInSession:
		return "In Game"
	case StatusRematch:
		return "Rematch Pending"
	default:
		return "Unknown"
	}
}

// Ref - неизменяемый снимок игрока, безопасный для передачи между горутинами
type Ref struct {
	ID     PlayerID `json:"id"`
	Name   string   `json:"name"`
	ChatID int64    `json:"-"`
}

// Stats накопленные результаты игрока
type Stats struct {
	Wins   int `db:"wins" json:"wins"`
	Losses int `db:"losses" json:"losses"`
	Ties   int `db:"ties" json:"ties"`
}

// Player живет в памяти движка и меняется только внутри его цикла событий
type Player struct {
	ID     PlayerID
	Name   string
	ChatID int64 // чат последней активности
	Stats
	Status Status
}

func NewPlayer(ref Ref) *Player {
	return &Player{
		ID:     ref.ID,
		Name:   ref.Name,
		ChatID: ref.ChatID,
		Status: StatusIdle,
	}
}

func (p *Player) Ref() Ref {
	return Ref{ID: p.ID, Name: p.Name, ChatID: p.ChatID}
}

// Touch обновляет имя и чат по данным входящего действия.
// нулевой чат (действие из WebApp) не затирает известный
func (p *Player) Touch(ref Ref) {
	if ref.Name != "" {
		p.Name = ref.Name
	}
	if ref.ChatID != 0 {
		p.ChatID = ref.ChatID
	}
}

func (p *Player) Busy() bool {
	return p.Status == StatusInSession || p.Status == StatusRematch
}

// Profile - то, что показывает команда /profile
type Profile struct {
	ID     PlayerID `json:"id"`
	Name   string   `json:"name"`
	Wins   int      `json:"wins"`
	Losses int      `json:"losses"`
	Ties   int      `json:"ties"`
	Status string   `json:"status"`
}

func (p *Player) Profile() Profile {
	return Profile{
		ID:     p.ID,
		Name:   p.Name,
		Wins:   p.Wins,
		Losses: p.Losses,
		Ties:   p.Ties,
		Status: p.Status.String(),
	}
}
