package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/AntonStoeckl/typed-eventstore-go/config"
	"github.com/AntonStoeckl/typed-eventstore-go/events"
	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/httpapi"
	"github.com/AntonStoeckl/typed-eventstore-go/logging"
)

func runServe(ctx context.Context, cfg *config.Config, out io.Writer) error {
	listener, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	return serve(ctx, listener, cfg, out)
}

// serve runs the HTTP server on listener until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, listener net.Listener, cfg *config.Config, out io.Writer) error {
	logger := logging.New(out, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	tel, err := setupTelemetry(cfg.Telemetry, out)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("telemetry shutdown failed", logging.FieldError, shutdownErr)
		}
	}()

	in := instrumentation{
		logger:   logger,
		metrics:  tel.metrics,
		tracing:  tel.tracing,
		linkBase: cfg.Server.BaseURL + eventstore.DefaultLinkBase,
	}

	if tel.logger != nil {
		in.logger = tel.logger
	}

	repo, closer, err := openRepository(ctx, cfg.Storage, in)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			logger.Warn("closing storage failed", logging.FieldError, closeErr)
		}
	}()

	handler := httpapi.NewEventsHandler(
		repo,
		events.NewTypeRegistry(),
		httpapi.WithLogger(logger),
		httpapi.WithSource(cfg.Events.Source),
		httpapi.WithSpecVersion(cfg.Events.SpecVersion),
		httpapi.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	server := &http.Server{
		Handler:      httpapi.NewRouter(handler, tel.metricsHandler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	logger.Info("eventsd listening",
		"addr", listener.Addr().String(),
		"backend", cfg.Storage.Backend,
		"metrics", cfg.Telemetry.Metrics,
	)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err

	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	}
}
