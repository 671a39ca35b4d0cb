package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	errors "github.com/Laisky/errors/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	twitter "github.com/anatolykoptev/go-twitter-proxy"
	"github.com/anatolykoptev/go-twitter-proxy/internal/config"
	"github.com/anatolykoptev/go-twitter-proxy/internal/httpserver"
	"github.com/anatolykoptev/go-twitter-proxy/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Log in and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		container, err := BuildContainer()
		if err != nil {
			return err
		}
		return container.Invoke(func(
			cfg *config.Config,
			logger *logging.Logger,
			sessions *twitter.SessionStore,
			srv *httpserver.Server,
		) error {
			defer func() { _ = logger.Sync() }()
			defer func() {
				if err := sessions.Close(); err != nil {
					logger.Warn("close session store", slog.Any("error", err))
				}
			}()
			return serve(ctx, cfg, logger.Logger, srv)
		})
	},
}

// serve runs srv until ctx is cancelled, then drains it within the
// configured shutdown timeout.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, srv *httpserver.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown http server")
		}
		return nil
	})

	return g.Wait()
}
