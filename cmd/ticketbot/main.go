package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/api/bot"
	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/clock"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/store"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		os.Exit(hashPassword(os.Stdin, os.Stdout, os.Stderr, 0))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Discord.Token == "" {
		logger.Fatal("DISCORD_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dependencies := map[string]handlers.Pinger{}

	var backend store.Backend
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		redis := persistence.NewRedis(cfg.Redis, cfg.Store.RedisKeyPrefix, logger)
		defer redis.Close()
		backend = store.NewRedisBackend(redis)
		dependencies["redis"] = redis
	default:
		backend = store.NewFileBackend(cfg.Store.DataDir)
	}
	st := store.Open(ctx, backend, logger)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var archive repository.TranscriptRepository
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		archive = repository.NewTranscriptRepository(pool)
		dependencies["postgres"] = pg
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	chat := discord.New(session, logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	clk := clock.Real()

	panelService := service.NewPanelService(service.PanelDependencies{
		Store:    st,
		Platform: chat,
		Logger:   logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      st,
		Platform:   chat,
		Dispatcher: dispatcher,
		Clock:      clk,
		Delays:     cfg.Lifecycle,
		Metrics:    metrics,
		Logger:     logger,
	})
	transcriptService := service.NewTranscriptService(service.TranscriptDependencies{
		Tickets:    ticketService,
		Store:      st,
		Platform:   chat,
		Dispatcher: dispatcher,
		Archive:    archive,
		Dir:        cfg.Store.TranscriptDir,
		Clock:      clk,
		Logger:     logger,
	})
	worker.StartAuditWorker(service.NewAuditService(dispatcher, st, chat, logger))

	router := bot.NewRouter(logger, metrics)
	binder := bot.NewBinder(bot.BinderDependencies{
		Router:      router,
		Panels:      panelService,
		Tickets:     ticketService,
		Transcripts: transcriptService,
		Platform:    chat,
		Logger:      logger,
	})
	binder.Bind()
	binder.RegisterCommands()

	gateway := discord.NewGateway(session, cfg.Discord.GuildID, logger)
	if err := gateway.Start(ctx, bot.Commands(), router.Handle); err != nil {
		logger.Fatal("failed to start gateway", zap.Error(err))
	}
	defer gateway.Stop() //nolint:errcheck

	authService := service.NewAuthService(cfg.Auth, logger)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), cfg.Auth.AdminUsername)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:           handlers.NewAuthHandler(authService),
		Panels:         handlers.NewPanelsHandler(panelService, binder),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Transcripts:    handlers.NewTranscriptsHandler(transcriptService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
