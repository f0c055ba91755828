package bot

import (
	"fmt"
	"html"
	"strings"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/game"
	"connect4_bot/internal/matchmaking"
)

const (
	titleMatchmaking = "⚔️ <b>Match Making</b> ⚔️"
	titleGame        = "🔴 <b>Connect 4</b> 🟡"
	titleHub         = "♟️ <b>Game Hub</b> ♟️"
	titleProfile     = "💳 <b>Profile</b> 💳"

	helpText = "🔴 <b>Simple Connect Four</b> 🟡\n\n" +
		"1. Send /play to join the matchmaking queue and get an opponent!\n" +
		"2. Once you are matched, send /yes to confirm.\n" +
		"3. When both sides have confirmed, the game starts.\n" +
		"4. On your turn tap a column button or send /0 - /6 to drop a token.\n" +
		"5. After the game send /rematch for another round or /quit to stop.\n\n" +
		"<b>Other commands:</b>\n" +
		"/profile - shows your profile\n" +
		"/leave - leaves the matchmaking queue"

	slowDownText = "🐢 Too many commands, slow down a bit."
)

// первый игрок - красные
var cellGlyph = map[game.Color]string{
	game.Empty:  "⚪",
	game.ColorA: "🔴",
	game.ColorB: "🟡",
}

var columnGlyph = [game.Columns]string{"0️⃣", "1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣"}

// RenderBoard: строка номеров столбцов, затем ряды сверху вниз
func RenderBoard(g *game.Grid) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(columnGlyph[:], " "))
	sb.WriteString("\n\n")
	for row := 0; row < game.Rows; row++ {
		for col := 0; col < game.Columns; col++ {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(cellGlyph[g.At(row, col)])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func name(r domain.Ref) string {
	if r.Name == "" {
		return fmt.Sprintf("<b>player %d</b>", r.ID)
	}
	return "<b>" + html.EscapeString(r.Name) + "</b>"
}

// pairNames - имена пары; при неполном списке пустые
func pairNames(ev matchmaking.Event) (string, string) {
	var a, b domain.Ref
	if len(ev.Players) > 0 {
		a = ev.Players[0]
	}
	if len(ev.Players) > 1 {
		b = ev.Players[1]
	}
	return name(a), name(b)
}

// Render собирает текст события. текст не зависит от получателя,
// поэтому в общий чат пары уходит одно сообщение
func Render(ev matchmaking.Event) string {
	var to domain.Ref
	if len(ev.To) > 0 {
		to = ev.To[0]
	}
	a, b := pairNames(ev)

	switch ev.Kind {
	case matchmaking.EventWaiting:
		return titleMatchmaking + "\n\n⏳ " + name(to) + ", Match Making in process... Please wait patiently for an opponent to emerge... ⏳"
	case matchmaking.EventAlreadyQueued:
		return titleMatchmaking + "\n\n⏳ " + name(to) + ", you are already in queue! Currently waiting for an opponent... ⏳"
	case matchmaking.EventAlreadyInSession:
		return titleMatchmaking + "\n\n🛑 " + name(to) + ", you are already in game! 🛑"
	case matchmaking.EventRemoved:
		return titleMatchmaking + "\n\n" + name(to) + " successfully ran away from the matchmaking queue 🏃💨"
	case matchmaking.EventPaired:
		return fmt.Sprintf("%s\n\nOpponent matched! The war will begin shortly between %s and %s! Prepare to fight! 🤺\n\n"+
			"Both %s and %s, please send /yes to confirm the match! Expires in %d seconds... ⏳",
			titleMatchmaking, a, b, a, b, ev.ExpiresIn)
	case matchmaking.EventConfirmed:
		return titleMatchmaking + "\n\n" + name(to) + ", received your confirmation ✅"
	case matchmaking.EventExpired:
		return fmt.Sprintf("%s\n\nWe did not receive confirmation from both parties (%s vs %s) in time... "+
			"Adding you back into the matchmaking queue (only if you've confirmed) ⏳", titleMatchmaking, a, b)
	case matchmaking.EventMatchStarting:
		return fmt.Sprintf("%s\n\n%s and %s, both parties have confirmed! Let the game begin... ⚔️", titleMatchmaking, a, b)
	case matchmaking.EventBoardUpdated:
		return renderBoardEvent(ev, a, b)
	case matchmaking.EventInvalidMove:
		return titleGame + "\n\n❌ " + name(to) + ", the move was invalid. Select again! ❌"
	case matchmaking.EventMatchResult:
		return renderResult(ev, a, b)
	case matchmaking.EventRematchPrompt:
		return fmt.Sprintf("%s\n\nThat was a great match %s and %s! Would you like a rematch? "+
			"Send /rematch for a rematch or /quit to stop playing. Timing out in %d seconds...",
			titleHub, a, b, ev.ExpiresIn)
	case matchmaking.EventRematchAck:
		return titleHub + "\n\n" + name(to) + ", your request for a rematch is confirmed! ✅"
	case matchmaking.EventRematchStarted:
		return fmt.Sprintf("%s\n\nA rematch between %s and %s is starting! How exciting 💪", titleHub, a, b)
	case matchmaking.EventRematchTimeout:
		return fmt.Sprintf("%s\n\nThe rematch request between %s and %s has timed out 🕑. See you later! 🙋‍♂️", titleHub, a, b)
	case matchmaking.EventRematchCancelled:
		return fmt.Sprintf("%s\n\n%s has cancelled the rematch. See you soon! 🙋‍♂️", titleHub, a)
	case matchmaking.EventProfile:
		return renderProfile(ev.Profile)
	}
	return ""
}

func renderBoardEvent(ev matchmaking.Event, a, b string) string {
	if ev.Board == nil {
		return ""
	}
	board := RenderBoard(ev.Board)
	if ev.Mover == nil {
		return fmt.Sprintf("%s\n\nGame: %s VS %s. Final board:\n\n%s", titleGame, a, b, board)
	}
	mover := name(*ev.Mover)
	return fmt.Sprintf("%s\n\nGame: %s VS %s. Current turn: %s.\n\n%s\n%s, it's your turn now! "+
		"Tap a column below or send /0 - /6 to make your move!", titleGame, a, b, mover, board, mover)
}

func renderResult(ev matchmaking.Event, a, b string) string {
	res := ev.Result
	if res == nil {
		return ""
	}
	if res.Tie || res.Winner == nil || res.Loser == nil {
		return fmt.Sprintf("%s\n\nThe war ended in a tie. Try again %s and %s!", titleGame, a, b)
	}
	w, l := name(*res.Winner), name(*res.Loser)
	return fmt.Sprintf("%s\n\nThe war ended with %s being victorious over %s! Congratulations %s!", titleGame, w, l, w)
}

func renderProfile(p *domain.Profile) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s\n\nName: %s\nWins: <b>%d</b>\nLosses: <b>%d</b>\nTies: <b>%d</b>\nStatus: <b>%s</b>",
		titleProfile, name(domain.Ref{ID: p.ID, Name: p.Name}), p.Wins, p.Losses, p.Ties, p.Status)
}
