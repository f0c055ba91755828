package handlers

import (
	"context"
	"log/slog"
	"time"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/repository"
	"connect4_bot/internal/service"
)

type StatsReader interface {
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
	Player(ctx context.Context, id domain.PlayerID) (*service.PlayerCard, error)
}

type TokenIssuer interface {
	Issue(p domain.Ref) (string, error)
}

type AuditReader interface {
	LogLogin(ctx context.Context, p domain.Ref, ip, userAgent string)
	PlayerLogs(ctx context.Context, id domain.PlayerID, limit int) ([]*domain.AuditLog, error)
	SessionLogs(ctx context.Context, sessionID string) ([]*domain.AuditLog, error)
}

// Handler - зависимости REST ручек WebApp
type Handler struct {
	Stats           StatsReader
	Tokens          TokenIssuer
	Audit           AuditReader
	BotToken        string
	LeaderboardSize int
	Version         string
	Log             *slog.Logger

	// для тестов
	now func() time.Time
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}
