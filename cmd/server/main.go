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

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/access"
	"github.com/d60-Lab/fhe-content-hub/internal/api/handler"
	"github.com/d60-Lab/fhe-content-hub/internal/api/router"
	"github.com/d60-Lab/fhe-content-hub/internal/directory"
	"github.com/d60-Lab/fhe-content-hub/internal/service"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/pkg/jwt"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
	"github.com/d60-Lab/fhe-content-hub/pkg/tracing"
)

// @title FHE Content Hub API
// @version 1.0
// @description Encrypted content directory gateway
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	s, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("open content store", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close content store", zap.Error(err))
		}
	}()

	dir := directory.NewClient(s, access.NewChecker(cfg.Access), cfg.Directory)
	defer dir.Close()
	dir.Refresh(ctx)

	syncer := service.NewSyncer(dir, 64)
	dir.OnOrphan(func(string) { syncer.EnqueueReconcile() })
	stopSync := syncer.Start(1, cfg.Directory.RefreshInterval)
	go func() {
		for {
			select {
			case d := <-syncer.Metrics():
				logger.Debug("sync job done", zap.Duration("latency", d), zap.Int("queued", syncer.QueueLen()))
			case <-ctx.Done():
				return
			}
		}
	}()

	if cfg.JWT.Secret == "" {
		logger.Warn("jwt.secret not set, signing session tokens with a random per-process key")
	}
	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	h := handler.NewHandler(dir, tokens, nil)
	engine := router.Setup(cfg, h, tokens, dir)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopSync(sctx); err != nil {
		logger.Warn("syncer shutdown", zap.Error(err))
	}
}
