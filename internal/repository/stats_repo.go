package repository

import (
	"context"
	"errors"
	"fmt"

	"connect4_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPlayerNotFound = errors.New("player not found")

// строка таблицы players
type PlayerStats struct {
	ID   domain.PlayerID `db:"id" json:"id"`
	Name string          `db:"name" json:"name"`
	domain.Stats
}

// StatsRepository хранит счетчики побед, поражений и ничьих
type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Get(ctx context.Context, id domain.PlayerID) (*PlayerStats, error) {
	var s PlayerStats
	err := r.db.QueryRow(ctx, `
		SELECT id, name, wins, losses, ties
		FROM players
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Wins, &s.Losses, &s.Ties)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return &s, nil
}

// Upsert заводит игрока при первом контакте и обновляет имя
func (r *StatsRepository) Upsert(ctx context.Context, id domain.PlayerID, name string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO players (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		WHERE EXCLUDED.name <> ''
	`, id, name)
	if err != nil {
		return fmt.Errorf("upsert player %d: %w", id, err)
	}
	return nil
}

// RecordResult обновляет счетчики обоих участников одной транзакцией
func (r *StatsRepository) RecordResult(ctx context.Context, res MatchOutcome) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if res.Tie {
		for _, p := range []domain.Ref{res.First, res.Second} {
			if err := bump(ctx, tx, p, "ties"); err != nil {
				return err
			}
		}
	} else {
		if err := bump(ctx, tx, res.First, "wins"); err != nil {
			return err
		}
		if err := bump(ctx, tx, res.Second, "losses"); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MatchOutcome: при победе First - победитель, Second - проигравший
type MatchOutcome struct {
	First  domain.Ref
	Second domain.Ref
	Tie    bool
}

// column берется только из констант внутри пакета
func bump(ctx context.Context, tx pgx.Tx, p domain.Ref, column string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO players (id, name, `+column+`) VALUES ($1, $2, 1)
		ON CONFLICT (id) DO UPDATE SET `+column+` = players.`+column+` + 1, updated_at = now()
	`, p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("update %s for %d: %w", column, p.ID, err)
	}
	return nil
}

// Top - лучшие по числу побед, используется когда redis недоступен
func (r *StatsRepository) Top(ctx context.Context, limit int) ([]PlayerStats, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, wins, losses, ties
		FROM players
		ORDER BY wins DESC, losses ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}
	defer rows.Close()

	var top []PlayerStats
	for rows.Next() {
		var s PlayerStats
		if err := rows.Scan(&s.ID, &s.Name, &s.Wins, &s.Losses, &s.Ties); err != nil {
			return nil, err
		}
		top = append(top, s)
	}
	return top, rows.Err()
}
