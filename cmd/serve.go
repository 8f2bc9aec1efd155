package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/server"
)

const shutdownTimeout = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the brief generation API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		env.Executor.Start(ctx)

		if cfg.Jobs.TTLMinutes > 0 {
			ttl := time.Duration(cfg.Jobs.TTLMinutes) * time.Minute
			go env.Store.RunSweeper(ctx, sweepInterval(ttl), ttl)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := server.New(server.Options{
			Store:       env.Store,
			Executor:    env.Executor,
			Errors:      env.Errors,
			Breakers:    env.Breakers,
			Credentials: env.Credentials,
			CORSOrigins: cfg.Server.CORSOrigins,
		})
		srv := api.NewHTTPServer(fmt.Sprintf(":%d", port))

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("starting server", zap.Int("port", port), zap.Int("workers", cfg.Jobs.Workers))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			zap.L().Info("shutting down server")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server shutdown", zap.Error(err))
		}
		if err := env.Executor.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "executor shutdown")
		}
		return nil
	},
}

// sweepInterval runs the sweeper a few times per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
