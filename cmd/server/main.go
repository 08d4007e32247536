// Package main provides the ContextIQ HTTP and MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/contextiq/internal/api"
	"github.com/bull/contextiq/internal/app"
	"github.com/bull/contextiq/internal/config"
	mcpserver "github.com/bull/contextiq/internal/mcp"
	"github.com/bull/contextiq/internal/metrics"
	"github.com/bull/contextiq/internal/rag"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, rag.Explain(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout belongs to the MCP stdio transport when not in server mode
	logger := app.NewLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	metrics.Register()

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := mcpserver.NewServer(&mcpserver.Config{
		Service: a.Service,
		Fetcher: a.Fetcher,
		Version: version,
	})

	apiSrv := api.NewServer(a.Service, a.Store, api.Options{
		DemoQueryLimit: cfg.Server.DemoQueryLimit,
		MCP:            mcpserver.NewHTTPHandler(mcpSrv, &mcpserver.HTTPHandlerOptions{Stateless: true}),
		Logger:         logger,
	})

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           apiSrv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening",
			"addr", httpSrv.Addr,
			"index", cfg.Index.Name,
			"namespace", cfg.Index.Namespace,
			"version", version,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if !cfg.Server.ServerMode {
		// Stdio mode: MCP over stdin/stdout for local clients, HTTP alongside
		go func() {
			logger.Info("mcp server running on stdio")
			if err := mcpSrv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("mcp stdio: %w", err)
				return
			}
			cancel()
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		shutdown(httpSrv, logger)
		return err
	}

	shutdown(httpSrv, logger)
	return nil
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
