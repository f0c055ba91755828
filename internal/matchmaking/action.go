package matchmaking

import (
	"fmt"

	"connect4_bot/internal/domain"
)

type ActionKind int

const (
	ActionJoin ActionKind = iota + 1
	ActionLeave
	ActionConfirm
	ActionMove
	ActionAcceptRematch
	ActionRejectRematch
	ActionShowProfile
)

func (k ActionKind) String() string {
	switch k {
	case ActionJoin:
		return "join"
	case ActionLeave:
		return "leave"
	case ActionConfirm:
		return "confirm"
	case ActionMove:
		return "move"
	case ActionAcceptRematch:
		return "accept_rematch"
	case ActionRejectRematch:
		return "reject_rematch"
	case ActionShowProfile:
		return "profile"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// ParseActionKind - обратное к String, используется websocket-клиентом
func ParseActionKind(s string) (ActionKind, bool) {
	for k := ActionJoin; k <= ActionShowProfile; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Action - входящее действие игрока. Column имеет смысл только для ActionMove.
// Seed - сохраненная статистика, применяется только при первом появлении игрока
type Action struct {
	Kind   ActionKind
	Player domain.Ref
	Column int
	Seed   *domain.Stats
}

func Join(p domain.Ref) Action          { return Action{Kind: ActionJoin, Player: p} }
func Leave(p domain.Ref) Action         { return Action{Kind: ActionLeave, Player: p} }
func Confirm(p domain.Ref) Action       { return Action{Kind: ActionConfirm, Player: p} }
func AcceptRematch(p domain.Ref) Action { return Action{Kind: ActionAcceptRematch, Player: p} }
func RejectRematch(p domain.Ref) Action { return Action{Kind: ActionRejectRematch, Player: p} }
func ShowProfile(p domain.Ref) Action   { return Action{Kind: ActionShowProfile, Player: p} }

func Move(p domain.Ref, column int) Action {
	return Action{Kind: ActionMove, Player: p, Column: column}
}
