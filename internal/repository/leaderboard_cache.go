package repository

import (
	"context"
	"fmt"
	"strconv"

	"connect4_bot/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey = "connect4:leaderboard:wins"
	namesKey       = "connect4:leaderboard:names"
)

type LeaderboardEntry struct {
	Rank int             `json:"rank"`
	ID   domain.PlayerID `json:"id"`
	Name string          `json:"name"`
	Wins int             `json:"wins"`
}

// LeaderboardCache - рейтинг по победам в sorted set redis
type LeaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// AddWin увеличивает счет победителя и запоминает его имя
func (c *LeaderboardCache) AddWin(ctx context.Context, winner domain.Ref) error {
	member := strconv.FormatInt(int64(winner.ID), 10)
	pipe := c.client.TxPipeline()
	pipe.ZIncrBy(ctx, leaderboardKey, 1, member)
	if winner.Name != "" {
		pipe.HSet(ctx, namesKey, member, winner.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard add win: %w", err)
	}
	return nil
}

// Seed выставляет счет из postgres, если в redis его еще нет
func (c *LeaderboardCache) Seed(ctx context.Context, p PlayerStats) error {
	if p.Wins == 0 {
		return nil
	}
	member := strconv.FormatInt(int64(p.ID), 10)
	pipe := c.client.TxPipeline()
	pipe.ZAddNX(ctx, leaderboardKey, redis.Z{Score: float64(p.Wins), Member: member})
	if p.Name != "" {
		pipe.HSetNX(ctx, namesKey, member, p.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard seed: %w", err)
	}
	return nil
}

func (c *LeaderboardCache) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	scores, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	if len(scores) == 0 {
		return nil, nil
	}

	members := make([]string, len(scores))
	for i, z := range scores {
		members[i], _ = z.Member.(string)
	}
	names, err := c.client.HMGet(ctx, namesKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard names: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		id, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			continue
		}
		name, _ := names[i].(string)
		entries = append(entries, LeaderboardEntry{
			Rank: i + 1,
			ID:   domain.PlayerID(id),
			Name: name,
			Wins: int(z.Score),
		})
	}
	return entries, nil
}

// Rank - место игрока, 0 если побед нет
func (c *LeaderboardCache) Rank(ctx context.Context, id domain.PlayerID) (int, error) {
	rank, err := c.client.ZRevRank(ctx, leaderboardKey, strconv.FormatInt(int64(id), 10)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	return int(rank) + 1, nil
}
