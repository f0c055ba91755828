package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Статистика игрока по telegram id
func (h *Handler) Profile(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}

	card, err := h.Stats.Player(c.Request.Context(), id)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		h.Log.Error("profile failed", "player_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get player"})
		return
	}

	c.JSON(http.StatusOK, card)
}

// Последние записи журнала матчей игрока
func (h *Handler) History(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"history": []*domain.AuditLog{}})
		return
	}

	logs, err := h.Audit.PlayerLogs(c.Request.Context(), id, 50)
	if err != nil {
		h.Log.Error("history failed", "player_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history"})
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}

// Журнал одной партии: старт и исход для обоих участников
func (h *Handler) SessionHistory(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"history": []*domain.AuditLog{}})
		return
	}

	logs, err := h.Audit.SessionLogs(c.Request.Context(), id)
	if err != nil {
		h.Log.Error("session history failed", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history"})
		return
	}
	if len(logs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": logs})
}

func playerID(c *gin.Context) (domain.PlayerID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return domain.PlayerID(id), true
}
