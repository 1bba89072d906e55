package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cardarena/arena-server-go/internal/catalog"
	"github.com/cardarena/arena-server-go/internal/config"
	"github.com/cardarena/arena-server-go/internal/match"
	"github.com/cardarena/arena-server-go/internal/server"
	"github.com/cardarena/arena-server-go/internal/user"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

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

	logger.Info("starting arena server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	registry := catalog.NewDefaultRegistry(logger)
	if cfg.Catalog.CSVPath != "" {
		if err := registry.LoadCSV(cfg.Catalog.CSVPath); err != nil {
			logger.Fatal("failed to load card catalog", zap.Error(err))
		}
	}
	logger.Info("card catalog initialized", zap.Int("definitions", registry.Count()))

	users, err := user.NewDefaultManager(logger)
	if err != nil {
		logger.Fatal("failed to initialize user manager", zap.Error(err))
	}
	logger.Info("user manager initialized")

	store := match.NewStore(logger)
	queue := match.NewQueue(store, cfg.Game.BoardSlots, logger)
	phases := match.NewPhaseMachine(logger)
	validator := match.NewValidator(logger)
	resolver := match.NewResolver(logger)
	logger.Info("match managers initialized",
		zap.Int("board_slots", cfg.Game.BoardSlots),
	)

	hub := server.NewHub(logger)
	go hub.Run()

	gateway := server.NewGateway(
		cfg.Game,
		hub,
		store,
		queue,
		phases,
		validator,
		resolver,
		registry,
		users,
		time.Now().UnixNano(),
		logger,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.ServeWS)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting websocket gateway", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("gateway server error", zap.Error(serveErr))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	httpServer.Close()

	logger.Info("arena server stopped")
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
