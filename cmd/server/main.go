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

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raulk/clock"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/groupbuy/internal/auth"
	"github.com/mmynk/groupbuy/internal/config"
	"github.com/mmynk/groupbuy/internal/metrics"
	"github.com/mmynk/groupbuy/internal/middleware"
	"github.com/mmynk/groupbuy/internal/service"
	"github.com/mmynk/groupbuy/internal/storage"
	"github.com/mmynk/groupbuy/internal/storage/leveldb"
	"github.com/mmynk/groupbuy/internal/storage/memory"
	"github.com/mmynk/groupbuy/internal/storage/sqlite"
	"github.com/mmynk/groupbuy/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	issueToken := flag.String("issue-token", "", "print a bearer token for this caller ID and exit")
	role := flag.String("role", string(auth.RolePlatform), "role of the issued token: seller, buyer or platform")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level)

	if *issueToken != "" {
		if err := printToken(cfg, *issueToken, *role); err != nil {
			slog.Error("Failed to issue token", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func printToken(cfg config.Config, subject, roleName string) error {
	if !cfg.AuthEnabled() {
		return errors.New("auth secret not configured")
	}
	role, err := auth.ParseRole(roleName)
	if err != nil {
		return err
	}
	token, err := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.TokenTTL).Generate(subject, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func openBackend(cfg config.LedgerConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.New(cfg.Path)
	case config.BackendLevelDB:
		return leveldb.Open(cfg.Path)
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func run(cfg config.Config) error {
	backend, err := openBackend(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	ledger := storage.NewLedger(backend)
	defer ledger.Close()
	slog.Info("Storage initialized", "backend", cfg.Ledger.Backend, "path", cfg.Ledger.Path)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	svc := service.NewPromotionService(ledger, clock.New(), m)
	if h, ok := backend.(storage.Historian); ok {
		svc.WithHistory(h)
	}

	// Outermost first: metrics see every call, logging sees the caller.
	interceptors := []connect.Interceptor{middleware.MetricsInterceptor(m)}
	if cfg.AuthEnabled() {
		jwtManager := auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
		interceptors = append(interceptors, middleware.RequireAuth(jwtManager, service.AccessPolicy()))
		slog.Info("Bearer token auth enabled")
	} else {
		slog.Warn("Auth secret not set, serving without authentication")
	}
	interceptors = append(interceptors, middleware.LoggingInterceptor())

	mux := http.NewServeMux()
	path, handler := service.NewPromotionServiceHandler(svc, connect.WithInterceptors(interceptors...))
	mux.Handle(path, handler)
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.ListenAddress, "service", service.PromotionServiceName)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
