package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"market_dashboard/internal/app"
	"market_dashboard/internal/httpapi"

	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := app.LoadConfig()
	sheetsClient, relayClient := app.InitializeClients(ctx, cfg)
	notifier := app.InitializeNotificationClient()

	service := newDashboardService(cfg, sheetsClient)

	log.Info().
		Dur("interval", cfg.Display.RefreshInterval).
		Msg("Starting market dashboard. Refreshing immediately and then on every interval...")
	go service.Run(ctx, cfg.Display.RefreshInterval)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewServer(service, relayClient, notifier).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server cleanly")
	}

	sent, failed := notifier.GetMetrics()
	log.Info().Int64("notifications_sent", sent).Int64("notifications_failed", failed).Msg("Stopped")
}
