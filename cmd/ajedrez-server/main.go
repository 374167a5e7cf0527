// Command ajedrez-server serves the session API over HTTP.
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/app"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/config"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/obslog"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("app_init_error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("store_close_error", zap.Error(err))
		}
	}()

	srv := server.New(deps.Repo, deps.Processor,
		server.WithLogger(logger),
		server.WithRenderer(deps.Renderer),
		server.WithListLimit(cfg.SessionListLimit),
		server.WithOriginPatterns(cfg.WSOriginPatterns...),
	)
	httpSrv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", zap.String("addr", cfg.ServerAddr), zap.String("store_driver", cfg.StoreDriver))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("server_shutdown")
	case err := <-errCh:
		if err != nil {
			logger.Error("server_error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_error", zap.Error(err))
	}
}
