package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"connect4_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository пишет журнал матчей в match_audit
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		detailsJSON = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO match_audit (player_id, action, category, session_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, log.PlayerID, log.Action, log.Category, log.SessionID, detailsJSON)
	if err != nil {
		return fmt.Errorf("insert audit %s: %w", log.Action, err)
	}
	return nil
}

// CreateBatch пишет записи одного события (обе стороны пары) за один round trip
func (r *AuditRepository) CreateBatch(ctx context.Context, logs []*domain.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, log := range logs {
		detailsJSON, err := json.Marshal(log.Details)
		if err != nil || log.Details == nil {
			detailsJSON = []byte("{}")
		}
		batch.Queue(`
			INSERT INTO match_audit (player_id, action, category, session_id, details)
			VALUES ($1, $2, $3, $4, $5)
		`, log.PlayerID, log.Action, log.Category, log.SessionID, detailsJSON)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert audit batch: %w", err)
	}
	return nil
}

func (r *AuditRepository) GetByPlayer(ctx context.Context, id domain.PlayerID, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player_id, action, category, session_id, details, created_at
		FROM match_audit
		WHERE player_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func (r *AuditRepository) GetBySession(ctx context.Context, sessionID string) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player_id, action, category, session_id, details, created_at
		FROM match_audit
		WHERE session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&log.ID, &log.PlayerID, &log.Action, &log.Category, &log.SessionID, &detailsJSON, &log.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			log.Details = make(map[string]any)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
