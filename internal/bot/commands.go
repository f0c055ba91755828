package bot

import (
	"strconv"
	"strings"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/matchmaking"
)

// Command - распознанная команда чата. Help обрабатывается самим ботом
type Command struct {
	Kind   matchmaking.ActionKind
	Column int
	Help   bool
}

// Action превращает команду в действие движка
func (c Command) Action(p domain.Ref) matchmaking.Action {
	if c.Kind == matchmaking.ActionMove {
		return matchmaking.Move(p, c.Column)
	}
	return matchmaking.Action{Kind: c.Kind, Player: p}
}

const callbackPrefix = "col:"

// ParseCommand понимает "/play", "/play@bot", "/3", "/drop 3" и старый формат "() play"
func ParseCommand(text string) (Command, bool) {
	t := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(t, "()"):
		t = strings.TrimSpace(t[2:])
	case strings.HasPrefix(t, "/"):
		t = t[1:]
	default:
		return Command{}, false
	}

	fields := strings.Fields(t)
	if len(fields) == 0 {
		return Command{}, false
	}
	name := strings.ToLower(fields[0])
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	switch name {
	case "play", "join":
		return Command{Kind: matchmaking.ActionJoin}, true
	case "leave":
		return Command{Kind: matchmaking.ActionLeave}, true
	case "yes", "confirm":
		return Command{Kind: matchmaking.ActionConfirm}, true
	case "rematch":
		return Command{Kind: matchmaking.ActionAcceptRematch}, true
	case "quit":
		return Command{Kind: matchmaking.ActionRejectRematch}, true
	case "profile":
		return Command{Kind: matchmaking.ActionShowProfile}, true
	case "help", "start":
		return Command{Help: true}, true
	case "drop", "move":
		if len(fields) < 2 {
			return Command{}, false
		}
		name = fields[1]
	}

	column, err := strconv.Atoi(name)
	if err != nil {
		return Command{}, false
	}
	return Command{Kind: matchmaking.ActionMove, Column: column}, true
}

// ParseCallback разбирает нажатие кнопки столбца
func ParseCallback(data string) (int, bool) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return 0, false
	}
	column, err := strconv.Atoi(data[len(callbackPrefix):])
	if err != nil {
		return 0, false
	}
	return column, true
}

func callbackData(column int) string {
	return callbackPrefix + strconv.Itoa(column)
}
