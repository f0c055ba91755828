package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connect4_bot/internal/bot"
	"connect4_bot/internal/config"
	"connect4_bot/internal/db"
	httpServer "connect4_bot/internal/http"
	"connect4_bot/internal/http/handlers"
	"connect4_bot/internal/logger"
	"connect4_bot/internal/matchmaking"
	"connect4_bot/internal/ratelimit"
	"connect4_bot/internal/repository"
	"connect4_bot/internal/service"
	"connect4_bot/internal/ws"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "error", err)
	}

	logger.Init(cfg.LogLevel, cfg.JSONLogs())
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres: без DATABASE_URL статистика живет только в памяти
	var (
		statsStore service.StatsStore
		auditStore service.AuditStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database connect failed", "error", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("database migrate failed", "error", err)
		}
		statsStore = repository.NewStatsRepository(pool)
		auditStore = repository.NewAuditRepository(pool)
		log.Info("postgres connected")
	} else {
		log.Warn("DATABASE_URL not set - stats will not survive restarts")
	}

	// Redis: рейтинг и лимит команд
	var (
		board      service.Leaderboard
		botLimiter bot.Limiter
		wsLimiter  ws.Limiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", "error", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable - leaderboard cache and rate limits disabled", "error", err)
		} else {
			board = repository.NewLeaderboardCache(client)
			limiter := ratelimit.NewRedisRateLimiter(client, ratelimit.Config{
				Limit:  cfg.CommandRateLimit,
				Window: cfg.CommandRateWindow,
			})
			botLimiter, wsLimiter = limiter, limiter
			log.Info("redis connected")
		}
	}

	stats := service.NewStatsService(statsStore, board, logger.Component("stats"))
	audit := service.NewAuditService(auditStore, logger.Component("audit"))
	recorder := service.NewMatchRecorder(stats, audit, logger.Component("recorder"))
	hub := ws.NewHub(logger.Component("ws"))
	notifiers := matchmaking.Notifiers{recorder, hub}

	var api *tgbotapi.BotAPI
	var delivery *bot.Delivery
	if cfg.BotToken != "" {
		api, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			logger.Fatal("telegram auth failed", "error", err)
		}
		log.Info("bot authorized", "username", api.Self.UserName)
		delivery = bot.NewDelivery(api, logger.Component("delivery"))
		notifiers = append(notifiers, delivery)
	} else {
		log.Warn("BOT_TOKEN not set - telegram bot and webapp auth disabled")
	}

	engine := matchmaking.NewEngine(matchmaking.Config{
		ConfirmTimeout: cfg.ConfirmTimeout,
		RematchTimeout: cfg.RematchTimeout,
	}, matchmaking.ClockScheduler{}, notifiers, logger.Component("engine"))

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = engine.Run(ctx)
	}()
	go recorder.Run(ctx)

	var gameBot *bot.GameBot
	if api != nil {
		go delivery.Run(ctx)
		gameBot = bot.NewGameBot(api, engine, stats, botLimiter)
		go gameBot.Start()
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	h := &handlers.Handler{
		Stats:           stats,
		Tokens:          tokens,
		Audit:           audit,
		BotToken:        cfg.BotToken,
		LeaderboardSize: cfg.LeaderboardSize,
		Version:         Version,
		Log:             logger.Component("http"),
	}
	var wsh *ws.Handler
	if cfg.BotToken != "" {
		wsh = &ws.Handler{
			Hub:           hub,
			Tokens:        tokens,
			Engine:        engine,
			Seeder:        stats,
			Limiter:       wsLimiter,
			AllowedOrigin: cfg.AllowedOrigin,
			Log:           logger.Component("ws"),
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           httpServer.NewRouter(h, wsh, cfg.AllowedOrigin, logger.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	if gameBot != nil {
		gameBot.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	<-engineDone

	log.Info("server exited")
}
