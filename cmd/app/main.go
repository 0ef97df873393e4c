package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taprealm/internal/bot"
	"taprealm/internal/config"
	"taprealm/internal/db"
	"taprealm/internal/game"
	httpServer "taprealm/internal/http"
	"taprealm/internal/http/handlers"
	"taprealm/internal/http/middleware"
	"taprealm/internal/logger"
	"taprealm/internal/repository"
	"taprealm/internal/service"
	"taprealm/internal/settings"
	"taprealm/internal/ws"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := db.Connect(ctx, cfg.DatabaseURL)
	defer dbPool.Close()

	// tunables: defaults, then the TOML file, then app_settings rows
	provider := settings.NewProvider(cfg.SettingsFile, repository.NewSettingsRepository(dbPool))
	if err := provider.Reload(ctx); err != nil {
		logger.Fatal("failed to load game settings", "error", err)
	}
	provider.Start(ctx, cfg.SettingsReloadInterval)

	engine := game.NewEngine(provider)
	tracker := game.NewSettingsTapTracker(provider, cfg.TapTrackerIdle)
	tracker.StartCleanup(ctx, cfg.TapTrackerCleanup)

	hub := ws.NewHub()
	users := repository.NewUserRepository(dbPool)
	squads := repository.NewSquadRepository(dbPool)
	audit := service.NewAuditService(dbPool)

	gameService := service.NewGameService(engine, repository.NewPlayerStore(dbPool), tracker,
		service.WithSquads(squads),
		service.WithAudit(audit),
		service.WithNotifier(hub),
		service.WithTasks(repository.NewTaskRepository(dbPool)),
		service.WithReferrals(repository.NewReferralRepository(dbPool)),
	)
	authService := service.NewAuthService(users, engine, cfg.BotToken, cfg.DevMode, audit,
		service.WithReferrer(gameService))
	leaderboard := service.NewLeaderboardService(users, squads)

	redisClient := middleware.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := middleware.NewLimiter(redisClient)
	limiter.StartCleanup(ctx, cfg.TapTrackerCleanup, cfg.APIRateWindow)

	r := httpServer.NewEngine(cfg.DevMode)
	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Handler: handlers.NewHandler(authService, gameService, leaderboard),
		Hub:     hub,
		DB:      dbPool,
		Redis:   redisClient,
		Limiter: limiter,
		Version: version,
	})

	if cfg.AdminBotEnabled {
		commands := bot.NewCommands(service.NewAdminService(dbPool, engine), leaderboard)
		adminBot, err := bot.NewAdminBot(cfg.BotToken, commands, cfg.AdminTelegramIDs)
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			go adminBot.Start()
			defer adminBot.Stop()
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "dev_mode", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
