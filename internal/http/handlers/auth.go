package handlers

import (
	"net/http"

	"connect4_bot/internal/service"

	"github.com/gin-gonic/gin"
)

// Auth обменивает init_data Telegram WebApp на токен для websocket
func (h *Handler) Auth(c *gin.Context) {
	if h.BotToken == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webapp auth disabled"})
		return
	}
	var req struct {
		InitData string `json:"init_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data required"})
		return
	}

	user, err := service.ParseWebAppUser(req.InitData, h.BotToken, h.clock())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	player := user.Ref()
	token, err := h.Tokens.Issue(player)
	if err != nil {
		h.Log.Error("issue token failed", "player_id", player.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	if h.Audit != nil {
		h.Audit.LogLogin(c.Request.Context(), player, c.ClientIP(), c.Request.UserAgent())
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"player": player,
	})
}
