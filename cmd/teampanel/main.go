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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	boltadapter "github.com/ericfisherdev/teampanel/internal/adapter/driven/bolt"
	"github.com/ericfisherdev/teampanel/internal/adapter/driven/jsonfile"
	sqliteadapter "github.com/ericfisherdev/teampanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/teampanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/teampanel/internal/application"
	"github.com/ericfisherdev/teampanel/internal/config"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Seed the environment from .env when present.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	// 2. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store_backend", cfg.StoreBackend,
		"data_path", cfg.DataPath,
		"password_hashing", cfg.PasswordHashing,
		"metrics_addr", cfg.MetricsAddr,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open the credential store.
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			slog.Error("error closing credential store", "error", closeErr)
		}
	}()
	slog.Info("credential store opened", "backend", cfg.StoreBackend, "path", cfg.DataPath)

	// 5. Make sure the main admin account exists.
	if cfg.BootstrapAdmin {
		if err := bootstrapAdmin(ctx, cfg, store); err != nil {
			return err
		}
	}

	// 6. Wire the HTTP handler with metrics on a dedicated registry.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httphandler.NewMetrics(registry)
	apiHandler := httphandler.NewHandler(store, metrics, slog.Default())

	servers := []*http.Server{newServer(cfg.ListenAddr, httphandler.NewServeMux(apiHandler, slog.Default()))}
	if cfg.HasMetrics() {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", httphandler.MetricsHandler(registry))
		servers = append(servers, newServer(cfg.MetricsAddr, mux))
	}

	// 7. Serve until a signal arrives or a listener fails.
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("http server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	slog.Info("teampanel started", "listen_addr", cfg.ListenAddr, "backend", cfg.StoreBackend)

	// 8. Graceful shutdown with 10s timeout once the group context ends.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// openStore opens the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (driven.CredentialStore, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := sqliteadapter.NewDB(ctx, cfg.DataPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("database opened", "path", db.Path())
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		slog.Info("migrations complete")
		return sqliteadapter.NewCredentialRepo(db), db.Close, nil

	case config.BackendBolt:
		s, err := boltadapter.Open(cfg.DataPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		s, err := jsonfile.New(cfg.DataPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

// bootstrapAdmin creates the main admin account with the default password
// when the stored collection has none.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, store driven.CredentialStore) error {
	hasher, err := newHasher(cfg)
	if err != nil {
		return err
	}

	mgr := application.NewSessionManager(store, hasher, slog.Default())
	if err := mgr.Load(ctx); err != nil {
		// An unreadable document must not be overwritten with a fresh one.
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	created, err := mgr.EnsureAdminAccount(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		slog.Warn("created admin account with the default password; change it with teamctl passwd")
	}
	return nil
}

func newHasher(cfg *config.Config) (driven.PasswordHasher, error) {
	if cfg.PasswordHashing == config.HashingPlaintext {
		return application.PlaintextHasher{}, nil
	}
	return application.NewBcryptHasher(cfg.BcryptCost)
}
