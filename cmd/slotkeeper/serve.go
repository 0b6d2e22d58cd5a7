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

	"slotkeeper/internal/config"
	"slotkeeper/internal/database"
	"slotkeeper/internal/pkg/logging"
	"slotkeeper/internal/pkg/obs"
)

const shutdownTimeout = 10 * time.Second

func loadConfig(envFile string) (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func serveCmd(envFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracer, err := obs.InitTracer(ctx, "slotkeeper", cfg.OTLPEndpoint, cfg.AppEnv)
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownTracer(sctx); err != nil {
					log.WithError(err).Warn("tracer shutdown")
				}
			}()

			db, err := database.Connect(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			startupCtx, cancel := context.WithTimeout(ctx, time.Minute)
			err = database.Migrate(startupCtx, db)
			cancel()
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			a, err := buildApp(cfg, db, log)
			if err != nil {
				return err
			}
			defer a.Close()

			server := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           a.router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			srvErr := make(chan error, 1)
			go func() {
				log.WithField("addr", cfg.HTTPAddr).Info("api listening")
				srvErr <- server.ListenAndServe()
			}()

			select {
			case err := <-srvErr:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server: %w", err)
				}
			case <-ctx.Done():
				log.Info("shutdown signal received, stopping server")
			}

			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			if err := server.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("server shutdown")
			}
			log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
