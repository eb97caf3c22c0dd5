package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/config"
	"github.com/tatianab/text-quest/internal/engine"
	"github.com/tatianab/text-quest/internal/llm"
	"github.com/tatianab/text-quest/internal/logger"
	"github.com/tatianab/text-quest/internal/metrics"
	"github.com/tatianab/text-quest/internal/saves"
)

// app holds everything a command needs to run a game.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	completer llm.Completer
	session   *engine.Session
	store     saves.Store
	closers   []func() error
}

// logging picks the logger settings for a command.
type logging func(cfg *config.Config) logger.Config

// playLogging writes to the log file so the terminal stays with the UI.
func playLogging(cfg *config.Config) logger.Config {
	return cfg.Logger(cfg.LogFile)
}

func simulateLogging(cfg *config.Config) logger.Config {
	lc := cfg.Logger("stderr")
	lc.Encoding = "console"
	return lc
}

// base loads the configuration and the logger, which every command needs.
func base(envFile string, logs logging) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logs(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newApp(ctx context.Context, envFile string, logs logging) (*app, error) {
	cfg, log, err := base(envFile, logs)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}

	settings, err := cfg.Engine()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	completer, err := llm.New(cfg.LLM(), log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.completer = completer
	if c, ok := completer.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	a.session = engine.NewSession(completer, settings, log)

	if cfg.MetricsAddr != "" {
		a.closers = append(a.closers, serveMetrics(cfg.MetricsAddr, log))
	}

	log.Info("app initialized",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
		zap.String("save_backend", cfg.SaveBackend),
		zap.Bool("has_credential", llm.HasCredential(completer)),
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (saves.Store, error) {
	switch cfg.SaveBackend {
	case config.SaveBackendRedis:
		store, err := saves.NewRedisStore(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("open redis saves: %w", err)
		}
		return store, nil
	default:
		return saves.NewFileStore(cfg.SaveDir), nil
	}
}

// serveMetrics exposes Prometheus metrics on addr until the returned
// function is called.
func serveMetrics(addr string, log *zap.Logger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
