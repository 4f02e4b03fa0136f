package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"simpleboard/internal/api"
	"simpleboard/internal/config"
	"simpleboard/internal/confirm"
	"simpleboard/internal/engine"
	"simpleboard/internal/logging"
	"simpleboard/internal/metrics"
	"simpleboard/internal/seed"
)

const metricsNamespace = "simpleboard"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	collector := metrics.NewCollector(metricsNamespace)
	opts := []engine.Option{engine.WithLogger(logger), engine.WithObserver(collector)}

	switch cfg.ConfirmMode {
	case config.ConfirmHTTP:
		opts = append(opts, engine.WithConfirmer(confirm.NewHTTPConfirmer(
			cfg.ConfirmURL,
			&http.Client{Timeout: cfg.ConfirmTimeout},
			confirm.DefaultBreakerCfg(),
			logger,
		)))
	case config.ConfirmRandom:
		opts = append(opts, engine.WithConfirmer(confirm.NewRandomConfirmer(cfg.ConfirmAcceptRate, cfg.ConfirmDelay, 0)))
	}

	if cfg.JournalPath != "" {
		journal, stopJournal, err := engine.NewJournal(context.WithoutCancel(ctx), cfg.JournalCfg(), logger)
		if err != nil {
			return err
		}
		defer func() {
			stopJournal()
			<-journal.Done()
		}()
		opts = append(opts, engine.WithJournal(journal))
	}

	boards := newBoards(ctx, cfg.BoardCfg(), opts...)
	defer boards.Close()
	collector.TrackBoards(metricsNamespace, func() int { return len(boards.IDs()) })

	if cfg.DemoSeed > 0 {
		p, err := seed.Board(cfg.DemoSeed, seed.DefaultShape)
		if err != nil {
			return err
		}
		if _, err := boards.Create("demo", p); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewServer(api.ServerDeps{
			Boards:      boards,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins,
			Metrics:     collector,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("address", cfg.HTTPAddr),
			zap.String("movePolicy", string(cfg.MovePolicy)),
			zap.String("confirmMode", cfg.ConfirmMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newBoards detaches the board workers from ctx so a shutdown signal lets
// in-flight moves settle while the HTTP server drains. Close stops them.
func newBoards(ctx context.Context, cfg engine.BoardCfg, opts ...engine.Option) *engine.Registry {
	return engine.NewRegistry(context.WithoutCancel(ctx), cfg, opts...)
}
