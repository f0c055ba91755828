package domain

import "time"

// запись журнала матчей
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	PlayerID  PlayerID       `db:"player_id" json:"player_id"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	SessionID string         `db:"session_id" json:"session_id,omitempty"`
	Details   map[string]any `db:"details" json:"details"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Категории
const (
	AuditCategoryAuth    = "auth"
	AuditCategoryPairing = "pairing"
	AuditCategoryGame    = "game"
	AuditCategoryRematch = "rematch"
)

const (
	// Авторизация WebApp
	AuditActionLogin = "login"

	// Подбор пары
	AuditActionPaired  = "paired"
	AuditActionExpired = "pairing_expired"

	// Партия
	AuditActionGameStart = "game_start"
	AuditActionGameWin   = "game_win"
	AuditActionGameLose  = "game_lose"
	AuditActionGameTie   = "game_tie"

	// Реванш
	AuditActionRematchStart   = "rematch_start"
	AuditActionRematchCancel  = "rematch_cancel"
	AuditActionRematchTimeout = "rematch_timeout"
)
