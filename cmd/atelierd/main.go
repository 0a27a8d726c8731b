// Command atelierd runs the workspace state engine: the REST API, the
// persistence coordinator and the change feed behind the visual
// editor.
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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"atelier/infrastructure/config"
	"atelier/infrastructure/di"
	"atelier/interfaces/http/rest"
)

func main() {
	root := &cobra.Command{
		Use:          "atelierd",
		Short:        "Workspace state engine for the visual project editor",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), checkpointCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the workspace engine and serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func checkpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Load the workspace and write a fresh checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			container, err := di.NewContainer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer container.Shutdown(cmd.Context())

			if err := container.SaveCheckpoint(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "checkpoint saved to", cfg.CheckpointPath)
			return nil
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	logger := container.Logger

	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.EventBus,
		logger,
		cfg.EnableCORS,
		cfg.EnableMetrics,
	)
	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		container.Shutdown(ctx)
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	container.Shutdown(shutdownCtx)
	return nil
}
