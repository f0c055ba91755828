package bot

import (
	"context"
	"log/slog"

	"connect4_bot/internal/game"
	"connect4_bot/internal/matchmaking"
	"connect4_bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const deliveryBuffer = 1024

// Sender - часть tgbotapi.BotAPI, нужная для отправки и удаления сообщений
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type sentMessage struct {
	chatID    int64
	messageID int
}

// Delivery отправляет события движка в Telegram из своей горутины.
// prev - сообщения партии (доски, подсказки хода), которые удаляются перед следующей доской
type Delivery struct {
	sender Sender
	events chan matchmaking.Event
	prev   map[string][]sentMessage
	log    *slog.Logger
}

func NewDelivery(sender Sender, log *slog.Logger) *Delivery {
	return &Delivery{
		sender: sender,
		events: make(chan matchmaking.Event, deliveryBuffer),
		prev:   make(map[string][]sentMessage),
		log:    log,
	}
}

// Notify не блокирует: при переполненном буфере событие теряется
func (d *Delivery) Notify(events []matchmaking.Event) {
	for _, ev := range events {
		if len(chats(ev)) == 0 {
			continue
		}
		select {
		case d.events <- ev:
		default:
			metrics.DeliveryErrors.WithLabelValues("telegram").Inc()
			d.log.Warn("delivery buffer full, event dropped", "kind", ev.Kind)
		}
	}
}

func (d *Delivery) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *Delivery) deliver(ev matchmaking.Event) {
	text := Render(ev)
	if text == "" {
		return
	}

	boardEvent := ev.Kind == matchmaking.EventBoardUpdated
	if boardEvent {
		d.clear(ev.SessionID)
	}
	track := ev.SessionID != "" &&
		(ev.Kind == matchmaking.EventInvalidMove || (boardEvent && ev.Mover != nil))

	for _, chatID := range chats(ev) {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if boardEvent && ev.Mover != nil {
			msg.ReplyMarkup = columnKeyboard()
		}

		sent, err := d.sender.Send(msg)
		if err != nil {
			metrics.DeliveryErrors.WithLabelValues("telegram").Inc()
			d.log.Error("send failed", "chat_id", chatID, "kind", ev.Kind, "error", err)
			continue
		}
		if track {
			d.prev[ev.SessionID] = append(d.prev[ev.SessionID], sentMessage{chatID: chatID, messageID: sent.MessageID})
		}
	}
}

// clear удаляет предыдущие доски и подсказки партии
func (d *Delivery) clear(sessionID string) {
	msgs := d.prev[sessionID]
	delete(d.prev, sessionID)
	for _, m := range msgs {
		if _, err := d.sender.Request(tgbotapi.NewDeleteMessage(m.chatID, m.messageID)); err != nil {
			d.log.Debug("delete message failed", "chat_id", m.chatID, "message_id", m.messageID, "error", err)
		}
	}
}

// chats - уникальные чаты адресатов. общий чат пары получает одно сообщение,
// игроки без чата (только WebApp) пропускаются
func chats(ev matchmaking.Event) []int64 {
	out := make([]int64, 0, len(ev.To))
	for _, r := range ev.To {
		if r.ChatID == 0 {
			continue
		}
		dup := false
		for _, c := range out {
			if c == r.ChatID {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r.ChatID)
		}
	}
	return out
}

func columnKeyboard() tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, game.Columns)
	for col := 0; col < game.Columns; col++ {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(columnGlyph[col], callbackData(col)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons)
}
