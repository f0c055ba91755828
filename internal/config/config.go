package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	AppPort       string
	AllowedOrigin string

	// Telegram
	BotToken string

	// Storage
	DatabaseURL string
	RedisURL    string

	// JWT для WebApp
	JWTSecret string
	JWTTTL    time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Matchmaking
	ConfirmTimeout time.Duration
	RematchTimeout time.Duration

	// Лимит команд на игрока
	CommandRateLimit  int
	CommandRateWindow time.Duration

	LeaderboardSize int
}

var ErrMissingSecret = errors.New("JWT_SECRET is required when BOT_TOKEN is set")

func Load() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "8080"),
		AllowedOrigin:     getEnv("ALLOWED_ORIGIN", ""),
		BotToken:          getEnv("BOT_TOKEN", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            parseDuration(getEnv("JWT_TTL", ""), 24*time.Hour),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		ConfirmTimeout:    parseDuration(getEnv("CONFIRM_TIMEOUT", ""), 30*time.Second),
		RematchTimeout:    parseDuration(getEnv("REMATCH_TIMEOUT", ""), 30*time.Second),
		CommandRateLimit:  parseInt(getEnv("COMMAND_RATE_LIMIT", ""), 20),
		CommandRateWindow: parseDuration(getEnv("COMMAND_RATE_WINDOW", ""), 10*time.Second),
		LeaderboardSize:   parseInt(getEnv("LEADERBOARD_SIZE", ""), 10),
	}

	// без секрета токены WebApp можно подделать
	if cfg.BotToken != "" && cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
