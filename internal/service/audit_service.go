package service

import (
	"context"
	"log/slog"

	"connect4_bot/internal/domain"
)

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateBatch(ctx context.Context, logs []*domain.AuditLog) error
	GetByPlayer(ctx context.Context, id domain.PlayerID, limit int) ([]*domain.AuditLog, error)
	GetBySession(ctx context.Context, sessionID string) ([]*domain.AuditLog, error)
}

// AuditService пишет журнал матчей. ошибки хранилища только логируются
type AuditService struct {
	repo AuditStore
	log  *slog.Logger
}

func NewAuditService(repo AuditStore, log *slog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// LogPair пишет одну и ту же запись для обоих участников
func (s *AuditService) LogPair(ctx context.Context, players []domain.Ref, action, category, sessionID string, details map[string]any) {
	logs := make([]*domain.AuditLog, 0, len(players))
	for _, p := range players {
		logs = append(logs, &domain.AuditLog{
			PlayerID:  p.ID,
			Action:    action,
			Category:  category,
			SessionID: sessionID,
			Details:   details,
		})
	}
	s.write(ctx, logs)
}

// LogResult пишет исход партии с точки зрения каждого участника
func (s *AuditService) LogResult(ctx context.Context, sessionID string, winner, loser domain.Ref, tie bool, moves int) {
	details := map[string]any{"moves": moves}
	if tie {
		s.LogPair(ctx, []domain.Ref{winner, loser}, domain.AuditActionGameTie, domain.AuditCategoryGame, sessionID, details)
		return
	}
	s.write(ctx, []*domain.AuditLog{
		{
			PlayerID: winner.ID, Action: domain.AuditActionGameWin, Category: domain.AuditCategoryGame,
			SessionID: sessionID, Details: map[string]any{"moves": moves, "opponent_id": loser.ID},
		},
		{
			PlayerID: loser.ID, Action: domain.AuditActionGameLose, Category: domain.AuditCategoryGame,
			SessionID: sessionID, Details: map[string]any{"moves": moves, "opponent_id": winner.ID},
		},
	})
}

func (s *AuditService) LogLogin(ctx context.Context, p domain.Ref, ip, userAgent string) {
	s.write(ctx, []*domain.AuditLog{{
		PlayerID: p.ID,
		Action:   domain.AuditActionLogin,
		Category: domain.AuditCategoryAuth,
		Details:  map[string]any{"ip": ip, "user_agent": userAgent},
	}})
}

func (s *AuditService) PlayerLogs(ctx context.Context, id domain.PlayerID, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetByPlayer(ctx, id, limit)
}

// SessionLogs - все записи одной партии в порядке появления
func (s *AuditService) SessionLogs(ctx context.Context, sessionID string) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetBySession(ctx, sessionID)
}

func (s *AuditService) write(ctx context.Context, logs []*domain.AuditLog) {
	if s == nil || s.repo == nil || len(logs) == 0 {
		return
	}
	var err error
	if len(logs) == 1 {
		err = s.repo.Create(ctx, logs[0])
	} else {
		err = s.repo.CreateBatch(ctx, logs)
	}
	if err != nil {
		s.log.Error("не удалось создать запись аудита", "error", err, "action", logs[0].Action, "player_id", logs[0].PlayerID)
	}
}
