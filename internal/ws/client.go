package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/matchmaking"
	"connect4_bot/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 256
)

type Submitter interface {
	Submit(ctx context.Context, a matchmaking.Action) error
}

type Seeder interface {
	Seed(ctx context.Context, p domain.Ref) *domain.Stats
}

type Limiter interface {
	Allow(ctx context.Context, playerID int64) (bool, error)
}

// inbound - сообщение от WebApp: {"type":"move","column":3}
type inbound struct {
	Type   string `json:"type"`
	Column int    `json:"column"`
}

type Client struct {
	Player domain.Ref
	Conn   *websocket.Conn
	Send   chan []byte

	hub     *Hub
	engine  Submitter
	seeder  Seeder
	limiter Limiter
	seeded  bool
	log     *slog.Logger
}

func NewClient(player domain.Ref, conn *websocket.Conn, hub *Hub, engine Submitter, log *slog.Logger) *Client {
	return &Client{
		Player: player,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    hub,
		engine: engine,
		log:    log.With("player_id", player.ID),
	}
}

// Run регистрирует клиента и блокируется до закрытия соединения
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()
	c.Send <- []byte(`{"type":"ready"}`)
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read failed", "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg []byte) {
	var in inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		c.reply("error", "malformed message")
		return
	}
	kind, ok := matchmaking.ParseActionKind(in.Type)
	if !ok {
		c.reply("error", "unknown action")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !c.allow(ctx) {
		c.reply("error", "rate limited")
		return
	}

	a := matchmaking.Action{Kind: kind, Player: c.Player}
	if kind == matchmaking.ActionMove {
		a = matchmaking.Move(c.Player, in.Column)
	}
	if !c.seeded && c.seeder != nil {
		a.Seed = c.seeder.Seed(ctx, c.Player)
	}
	c.seeded = c.seeder == nil || a.Seed != nil

	if err := c.engine.Submit(ctx, a); err != nil {
		c.log.Error("submit failed", "kind", kind.String(), "error", err)
		c.reply("error", "server unavailable")
	}
}

func (c *Client) allow(ctx context.Context) bool {
	if c.limiter == nil {
		return true
	}
	ok, err := c.limiter.Allow(ctx, int64(c.Player.ID))
	if err != nil {
		c.log.Warn("rate limiter unavailable", "error", err)
		return true
	}
	if !ok {
		metrics.RateLimited.WithLabelValues("websocket").Inc()
	}
	return ok
}

func (c *Client) reply(kind, text string) {
	payload, _ := json.Marshal(map[string]string{"type": kind, "error": text})
	select {
	case c.Send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
