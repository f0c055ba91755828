package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/logger"
	"connect4_bot/internal/matchmaking"
	"connect4_bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Submitter interface {
	Submit(ctx context.Context, a matchmaking.Action) error
}

// Seeder загружает сохраненную статистику при первом контакте
type Seeder interface {
	Seed(ctx context.Context, p domain.Ref) *domain.Stats
}

type Limiter interface {
	Allow(ctx context.Context, playerID int64) (bool, error)
}

// GameBot принимает команды игроков в Telegram и передает их движку.
// апдейты обрабатываются строго по одному, чтобы не менять порядок команд игрока
type GameBot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	engine  Submitter
	seeder  Seeder
	limiter Limiter
	seen    map[domain.PlayerID]bool
	stopCh  chan struct{}
	done    chan struct{}
	log     *slog.Logger
}

// NewGameBot создаёт бота поверх уже авторизованного клиента. seeder и limiter могут быть nil
func NewGameBot(api *tgbotapi.BotAPI, engine Submitter, seeder Seeder, limiter Limiter) *GameBot {
	b := newGameBot(api, engine, seeder, limiter, logger.Component("bot"))
	b.api = api
	return b
}

func newGameBot(sender Sender, engine Submitter, seeder Seeder, limiter Limiter, log *slog.Logger) *GameBot {
	return &GameBot{
		sender:  sender,
		engine:  engine,
		seeder:  seeder,
		limiter: limiter,
		seen:    make(map[domain.PlayerID]bool),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
	}
}

// Start запускает прослушивание апдейтов
func (b *GameBot) Start() {
	defer close(b.done)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(update)
		}
	}
}

// Stop плавно останавливает бота
func (b *GameBot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	b.api.StopReceivingUpdates()

	select {
	case <-b.done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout")
	}
}

func (b *GameBot) handleUpdate(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *GameBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	if cmd.Help {
		b.reply(msg.Chat.ID, helpText)
		return
	}

	p := playerRef(msg.From, msg.Chat.ID)
	if !b.allow(ctx, p) {
		b.reply(msg.Chat.ID, slowDownText)
		return
	}
	b.submit(ctx, cmd.Action(p))
}

// кнопки столбцов заменяют реакции-эмодзи
func (b *GameBot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Debug("answer callback failed", "error", err)
	}
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}
	column, ok := ParseCallback(q.Data)
	if !ok {
		return
	}

	p := playerRef(q.From, q.Message.Chat.ID)
	if !b.allow(ctx, p) {
		return
	}
	b.submit(ctx, matchmaking.Move(p, column))
}

func (b *GameBot) submit(ctx context.Context, a matchmaking.Action) {
	// без статистики из хранилища повторяем seed на следующей команде
	if !b.seen[a.Player.ID] {
		if b.seeder != nil {
			a.Seed = b.seeder.Seed(ctx, a.Player)
		}
		b.seen[a.Player.ID] = b.seeder == nil || a.Seed != nil
	}
	if err := b.engine.Submit(ctx, a); err != nil {
		b.log.Error("submit failed", "player_id", a.Player.ID, "kind", a.Kind.String(), "error", err)
	}
}

// allow: при недоступном redis команды пропускаются
func (b *GameBot) allow(ctx context.Context, p domain.Ref) bool {
	if b.limiter == nil {
		return true
	}
	ok, err := b.limiter.Allow(ctx, int64(p.ID))
	if err != nil {
		b.log.Warn("rate limiter unavailable", "player_id", p.ID, "error", err)
		return true
	}
	if !ok {
		metrics.RateLimited.WithLabelValues("telegram").Inc()
	}
	return ok
}

func (b *GameBot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(msg); err != nil {
		b.log.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

func playerRef(u *tgbotapi.User, chatID int64) domain.Ref {
	name := u.UserName
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return domain.Ref{ID: domain.PlayerID(u.ID), Name: name, ChatID: chatID}
}
