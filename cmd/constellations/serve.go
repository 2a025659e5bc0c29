package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"constellations/infrastructure/config"
	"constellations/infrastructure/di"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		layoutPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diagram sessions over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.ServerAddress = addr
			}
			if cmd.Flags().Changed("layout") {
				cfg.LayoutConfigPath = layoutPath
			}
			if cfg.ServiceVersion == "dev" {
				cfg.ServiceVersion = version
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address (overrides SERVER_ADDRESS)")
	cmd.Flags().StringVar(&layoutPath, "layout", "", "layout tuning YAML file, reloaded on change (overrides LAYOUT_CONFIG_PATH)")
	return cmd
}

// serve runs the HTTP server, the websocket hub and the layout watcher until
// ctx is cancelled, then shuts them down within cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg *config.Config) error {
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	logger := container.Logger
	defer func() { _ = logger.Sync() }()

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           container.Handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return container.Hub.Run(gctx)
	})

	if container.Watcher != nil {
		g.Go(func() error {
			return container.Watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		if err := container.Shutdown(shutdownCtx); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
