package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"stockticker/internal/app"
	"stockticker/internal/config"
	"stockticker/internal/logging"
	"stockticker/internal/ticker"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tick *ticker.Handle
	if cfg.Ticker.Enabled {
		tick = a.Cycle.Start(ctx)
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info().Msg("shutting down")
	if tick != nil {
		if err := tick.Stop(); err != nil {
			logger.Error().Err(err).Msg("ticker stop")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}
