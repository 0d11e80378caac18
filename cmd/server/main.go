package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/beingsarangi/battle-server/internal/battle"
	"github.com/beingsarangi/battle-server/internal/config"
	"github.com/beingsarangi/battle-server/internal/leaderboard"
	"github.com/beingsarangi/battle-server/internal/messenger"
	"github.com/beingsarangi/battle-server/internal/player"
	"github.com/beingsarangi/battle-server/internal/repository"
	"github.com/beingsarangi/battle-server/internal/scheduler"
	"github.com/beingsarangi/battle-server/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "loaded environment from .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting battle server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	db, err := repository.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	profileRepo := repository.NewProfileRepository(db)
	poolRepo := repository.NewCardPoolRepository(db)

	playerMgr := player.NewManager(profileRepo, poolRepo, logger)
	logger.Info("player manager initialized")

	board := leaderboard.NewService(profileRepo)

	registry := battle.NewRegistry(logger)

	battleCfg := battle.Config{
		DraftPickTimeout: cfg.Battle.DraftPickTimeout,
		RoundPickTimeout: cfg.Battle.RoundPickTimeout,
		ChallengeTTL:     cfg.Battle.ChallengeTTL,
	}

	// The gateway and the mux reference each other: the mux needs the
	// gateway to carry notifications, the gateway needs the mux to hand
	// over battle replies.
	gateway := server.NewGateway(nil, logger)
	mux := messenger.NewMux(gateway, logger)
	gateway.BindMux(mux)

	publisher := battle.NewPublisher(profileRepo, logger)
	engine := battle.NewEngine(registry, mux, profileRepo, publisher, battleCfg, logger)
	logger.Info("battle engine initialized",
		zap.Duration("draft_pick_timeout", battleCfg.DraftPickTimeout),
		zap.Duration("round_pick_timeout", battleCfg.RoundPickTimeout),
	)

	dispatcher := server.NewDispatcher(engine, playerMgr, board, mux, logger)
	gateway.BindDispatcher(dispatcher)

	sched, err := scheduler.New(engine, time.Minute, logger)
	if err != nil {
		logger.Fatal("failed to build scheduler", zap.Error(err))
	}
	sched.Start()

	httpApp := server.NewHTTPApp(db, board, logger)

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if httpErr := httpApp.Listen(cfg.Server.HTTP.Address); httpErr != nil {
			logger.Error("HTTP server error", zap.Error(httpErr))
		}
	}()

	go func() {
		if wsErr := gateway.Serve(cfg.Server.WebSocket.Address, cfg.Server.WebSocket.Path); wsErr != nil {
			logger.Error("websocket gateway error", zap.Error(wsErr))
		}
	}()

	logger.Info("battle server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	if err := sched.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown error", zap.Error(err))
	}
	if err := httpApp.Shutdown(); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("battle server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
