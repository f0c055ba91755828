package service

import (
	"context"
	"log/slog"

	"connect4_bot/internal/domain"
	"connect4_bot/internal/repository"
)

type StatsStore interface {
	Get(ctx context.Context, id domain.PlayerID) (*repository.PlayerStats, error)
	Upsert(ctx context.Context, id domain.PlayerID, name string) error
	RecordResult(ctx context.Context, res repository.MatchOutcome) error
	Top(ctx context.Context, limit int) ([]repository.PlayerStats, error)
}

type Leaderboard interface {
	AddWin(ctx context.Context, winner domain.Ref) error
	Seed(ctx context.Context, p repository.PlayerStats) error
	Top(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
	Rank(ctx context.Context, id domain.PlayerID) (int, error)
}

// StatsService - постоянное хранилище счетчиков. оба бэкенда необязательны:
// без postgres статистика живет только в памяти движка
type StatsService struct {
	store StatsStore
	board Leaderboard
	log   *slog.Logger
}

func NewStatsService(store StatsStore, board Leaderboard, log *slog.Logger) *StatsService {
	return &StatsService{store: store, board: board, log: log}
}

// Seed регистрирует игрока при первом контакте и возвращает сохраненные счетчики
func (s *StatsService) Seed(ctx context.Context, p domain.Ref) *domain.Stats {
	if s.store == nil {
		return nil
	}
	if err := s.store.Upsert(ctx, p.ID, p.Name); err != nil {
		s.log.Error("seed player failed", "player_id", p.ID, "error", err)
		return nil
	}
	stored, err := s.store.Get(ctx, p.ID)
	if err != nil {
		s.log.Error("load player stats failed", "player_id", p.ID, "error", err)
		return nil
	}
	if s.board != nil {
		if err := s.board.Seed(ctx, *stored); err != nil {
			s.log.Warn("leaderboard seed failed", "player_id", p.ID, "error", err)
		}
	}
	stats := stored.Stats
	return &stats
}

func (s *StatsService) Record(ctx context.Context, outcome repository.MatchOutcome) {
	if s.store != nil {
		if err := s.store.RecordResult(ctx, outcome); err != nil {
			s.log.Error("record result failed",
				"first", outcome.First.ID, "second", outcome.Second.ID, "error", err)
		}
	}
	if s.board != nil && !outcome.Tie {
		if err := s.board.AddWin(ctx, outcome.First); err != nil {
			s.log.Warn("leaderboard update failed", "player_id", outcome.First.ID, "error", err)
		}
	}
}

// Leaderboard: сначала redis, при ошибке или пустом кеше - postgres
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	if s.board != nil {
		top, err := s.board.Top(ctx, limit)
		if err == nil && len(top) > 0 {
			return top, nil
		}
		if err != nil {
			s.log.Warn("leaderboard cache unavailable", "error", err)
		}
	}
	if s.store == nil {
		return nil, nil
	}

	rows, err := s.store.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	top := make([]repository.LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		if r.Wins == 0 {
			break
		}
		top = append(top, repository.LeaderboardEntry{Rank: i + 1, ID: r.ID, Name: r.Name, Wins: r.Wins})
	}
	return top, nil
}

type PlayerCard struct {
	repository.PlayerStats
	Rank int `json:"rank"`
}

func (s *StatsService) Player(ctx context.Context, id domain.PlayerID) (*PlayerCard, error) {
	if s.store == nil {
		return nil, repository.ErrPlayerNotFound
	}
	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	card := &PlayerCard{PlayerStats: *stored}
	if s.board != nil {
		rank, err := s.board.Rank(ctx, id)
		if err != nil {
			s.log.Warn("leaderboard rank failed", "player_id", id, "error", err)
		}
		card.Rank = rank
	}
	return card, nil
}
