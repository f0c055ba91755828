package ws

import (
	"log/slog"
	"net/http"

	"connect4_bot/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type TokenVerifier interface {
	Verify(raw string) (domain.Ref, error)
}

// Handler поднимает websocket WebApp после проверки токена из /api/auth
type Handler struct {
	Hub           *Hub
	Tokens        TokenVerifier
	Engine        Submitter
	Seeder        Seeder
	Limiter       Limiter
	AllowedOrigin string
	Log           *slog.Logger
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if h.AllowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.AllowedOrigin
		},
	}
}

func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}
	player, err := h.Tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.Log.Warn("websocket upgrade failed", "player_id", player.ID, "error", err)
		return
	}

	client := NewClient(player, conn, h.Hub, h.Engine, h.Log)
	client.seeder = h.Seeder
	client.limiter = h.Limiter
	go client.Run()
}
