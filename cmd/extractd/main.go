package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/langbridge/extractd/internal/api"
	"github.com/langbridge/extractd/internal/bus"
	"github.com/langbridge/extractd/internal/engine"
	"github.com/langbridge/extractd/internal/orchestrator"
	"github.com/langbridge/extractd/internal/store"
	"github.com/langbridge/extractd/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	st, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		fatal(logger, "build store", err)
	}
	defer cleanup()

	runner := engine.NewRunner(engine.RunnerConfig{
		Command: []string{cfg.EnginePython, cfg.EngineScript},
		Timeout: cfg.EngineTimeout,
	}, logger)

	updates := ws.NewManager(logger)
	opts := orchestrator.Options{Notifier: updates.BroadcastJobUpdate}

	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			fatal(logger, "connect nats", err)
		}
		defer nc.Close()
		opts.Publisher = nc
		opts.EventSubject = cfg.EventSubject
		logger.Info("event publication enabled", "nats_url", cfg.NATSURL, "subject", cfg.EventSubject)
	}

	orch := orchestrator.New(st, runner, logger, opts)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewServer(orch, updates, logger).Routes(),
	}

	go func() {
		logger.Info("server starting",
			"addr", cfg.HTTPAddr,
			"store", cfg.StoreDriver,
			"engine", cfg.EnginePython+" "+cfg.EngineScript,
			"engine_timeout", cfg.EngineTimeout,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logger, "http server", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	// Let in-flight jobs reach their terminal writes before the store goes away.
	orch.Wait()
}

func buildStore(cfg config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.StoreDriver == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		logger.Info("using postgres job store")
		return pg, pg.Close, nil
	}
	logger.Info("using in-memory job store")
	return store.NewMemoryStore(), func() {}, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
