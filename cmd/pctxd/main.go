// Command pctxd is the main entry point for the code-mode sandbox server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lambdamechanic/pctxgo/internal/config"
	"github.com/lambdamechanic/pctxgo/internal/observe"
	"github.com/lambdamechanic/pctxgo/internal/restapi"
	"github.com/lambdamechanic/pctxgo/internal/session"
	"github.com/lambdamechanic/pctxgo/internal/sessionpg"
	"github.com/lambdamechanic/pctxgo/internal/wsbridge"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	configPath := flag.String("config", "pctxd.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ───────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "pctxd: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "pctxd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("pctxd starting",
		"config", *configPath,
		"name", cfg.Name,
		"version", cfg.Version,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"backend", cfg.Backend.Kind,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	// ── Session backend ───────────────────────────────────────────────────
	backend, closeBackend, err := buildBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to build session backend", "err", err)
		return 1
	}
	defer closeBackend()

	printStartupSummary(cfg)

	// ── HTTP server ───────────────────────────────────────────────────────
	wsManager := wsbridge.NewManager()
	api := restapi.New(backend, wsManager, metrics, logger)

	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.Handler(),
	}

	serveErrCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "listen_addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
	case err := <-serveErrCh:
		if err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Session backend wiring ──────────────────────────────────────────────────

// buildBackend constructs the session.Backend named by cfg.Backend.Kind. The
// returned close function must be called during shutdown; it is a no-op for
// the local backend.
func buildBackend(ctx context.Context, cfg *config.Config) (session.Backend, func(), error) {
	switch cfg.Backend.Kind {
	case "", "local":
		return session.NewLocalBackend(), func() {}, nil
	case "postgres":
		backend, err := sessionpg.NewBackend(ctx, cfg.Backend.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting postgres session backend: %w", err)
		}
		return backend, func() { backend.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend kind %q", cfg.Backend.Kind)
	}
}

// ── Startup summary ──────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           pctxd — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Name             : %-18s ║\n", truncate(cfg.Name, 18))
	fmt.Printf("║  Version          : %-18s ║\n", truncate(cfg.Version, 18))
	fmt.Printf("║  Backend          : %-18s ║\n", truncate(backendLabel(cfg.Backend), 18))
	fmt.Printf("║  MCP servers      : %-18d ║\n", len(cfg.MCP.Servers))
	fmt.Printf("║  Listen addr      : %-18s ║\n", truncate(cfg.Server.ListenAddr, 18))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func backendLabel(b config.BackendConfig) string {
	if b.Kind == "" {
		return "local"
	}
	return b.Kind
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
