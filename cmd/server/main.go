package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/bunker-backend/internal/archive"
	"github.com/DoyleJ11/bunker-backend/internal/config"
	"github.com/DoyleJ11/bunker-backend/internal/content"
	"github.com/DoyleJ11/bunker-backend/internal/httpapi"
	"github.com/DoyleJ11/bunker-backend/internal/hub"
	"github.com/DoyleJ11/bunker-backend/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = level
	}
	return zc.Build()
}

func openStore(cfg config.Config, log *zap.Logger) (archive.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, finished games are not archived")
		return archive.Nop{}, nil
	}
	return archive.OpenPostgres(cfg.DatabaseURL)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := content.Default()
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	recorder := archive.NewRecorder(store, logger.Named("archive"), 0)

	// The hub outlives the signal context so shutdown can drain it.
	h := hub.NewHub(context.Background(), hub.Options{
		Room:          cfg.Engine(),
		Content:       catalog,
		Logger:        logger.Named("hub"),
		MaxRooms:      cfg.MaxRooms,
		CodeLength:    cfg.RoomCodeLength,
		InactiveTTL:   cfg.RoomInactiveTTL,
		SweepInterval: cfg.RoomSweepInterval,
		OnGameOver:    recorder.Record,
	})

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			Logger:      logger.Named("http"),
			CORSOrigins: cfg.CORSOrigins,
			MaxPlayers:  cfg.MaxPlayers,
			WS: ws.Options{
				Logger:         logger.Named("ws"),
				OriginPatterns: cfg.CORSOrigins,
				CodeLength:     cfg.RoomCodeLength,
				MaxNameLength:  cfg.MaxPlayerNameLength,
				RateEvents:     cfg.RateLimitEvents,
				RateWindow:     cfg.RateLimitWindow,
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			h.Shutdown(shutdownCtx),
			recorder.Close(),
		)
	})

	return g.Wait()
}
