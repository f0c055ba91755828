package handlers

import (
	"net/http"
	"strconv"

	"connect4_bot/internal/repository"

	"github.com/gin-gonic/gin"
)

const maxLeaderboard = 100

// топ игроков по победам
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := h.LeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxLeaderboard {
		limit = maxLeaderboard
	}

	top, err := h.Stats.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.Log.Error("leaderboard failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	if top == nil {
		top = []repository.LeaderboardEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}
