package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatd/internal/config"
	"chatd/internal/engine"
	"chatd/internal/httpapi"
	"chatd/internal/monitor"
	"chatd/internal/registry"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, gf *globalFlags) error {
	cfg, err := loadConfig(cmd, gf)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, log)
}

// serve runs the HTTP server until ctx is canceled.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	catalog, err := registry.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	eng := engine.New(cfg, catalog, engine.Options{Logger: &log})

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	httpapi.SetBaseContext(ctx)

	every, _ := cfg.HealthEvery()
	var mon *monitor.Monitor
	if every > 0 {
		mon = monitor.New(eng.Manager(), every, config.Seconds(cfg.Ollama.ProbeTimeoutSeconds), &log)
		mon.Check(ctx)
		mon.Start()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(eng),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("event", "listen").Str("addr", cfg.Addr).Str("ollama", cfg.Ollama.Host).
			Str("model", cfg.Behavior.DefaultModel).Msg("chatd listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if mon != nil {
			mon.Stop(context.Background())
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Str("event", "shutdown").Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if mon != nil {
		mon.Stop(sctx)
	}
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Str("event", "shutdown_failed").Msg("graceful shutdown error")
		return err
	}
	return nil
}
