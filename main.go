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

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/msomdec/stylist-users/internal/config"
	"github.com/msomdec/stylist-users/internal/domain"
	"github.com/msomdec/stylist-users/internal/handler"
	"github.com/msomdec/stylist-users/internal/metrics"
	"github.com/msomdec/stylist-users/internal/repository/memory"
	"github.com/msomdec/stylist-users/internal/repository/postgres"
	"github.com/msomdec/stylist-users/internal/repository/sqlite"
	"github.com/msomdec/stylist-users/internal/service"
	"github.com/msomdec/stylist-users/internal/view"
)

const serviceName = "user-service"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logOpts := &slog.HandlerOptions{Level: level}
	var logHandler slog.Handler = slog.NewTextHandler(os.Stdout, logOpts)
	if cfg.LogFormat == "json" {
		logHandler = slog.NewJSONHandler(os.Stdout, logOpts)
	}
	slog.SetDefault(slog.New(logHandler).With("service", serviceName))

	if cfg.InsecureSecret {
		slog.Warn("JWT_SECRET is not set; using the development secret", "env", cfg.Env)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, offline, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("store ready", "driver", db.Driver(), "offline", offline)

	m := metrics.New()

	vault, err := service.NewVault(cfg.BcryptCost)
	if err != nil {
		slog.Error("failed to initialise password vault", "error", err)
		os.Exit(1)
	}
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.JWTIssuer)

	verifiers, err := identityVerifiers(ctx, cfg)
	if err != nil {
		slog.Error("failed to configure identity providers", "error", err)
		os.Exit(1)
	}

	resolver := service.NewResolver(db.Accounts(), vault, tokens, verifiers, m)
	guard := service.NewGuard(tokens, db.Accounts(), m)

	var providers []string
	for _, p := range verifiers.Configured() {
		providers = append(providers, string(p))
	}
	slog.Info("identity providers configured", "providers", providers)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Resolver: resolver,
		Guard:    guard,
		Health:   handler.NewHealthHandler(serviceName, db.Driver(), offline, db),
		Home: view.HomeData{
			Service:   serviceName,
			Driver:    db.Driver(),
			Offline:   offline,
			Providers: providers,
		},
		Metrics: m.Handler(),
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handler.Chain(mux,
			handler.Recoverer,
			handler.RequestLogger,
			m.Instrument,
			handler.SecurityHeaders,
			handler.CORS(cfg.CORSOrigins),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore opens and migrates the configured store. With OFFLINE_FALLBACK
// set, a store that cannot be reached is replaced by the in-memory store and
// offline is reported as true.
func openStore(ctx context.Context, cfg *config.Config) (db domain.Database, offline bool, err error) {
	db, err = openConfiguredStore(ctx, cfg)
	if err == nil {
		if err = db.Migrate(ctx); err == nil {
			return db, false, nil
		}
		db.Close()
		err = fmt.Errorf("run migrations: %w", err)
	}

	if !cfg.OfflineFallback {
		return nil, false, err
	}
	slog.Warn("store unavailable; continuing with the in-memory store, data will not be persisted",
		"driver", cfg.StoreDriver, "error", err)
	return memory.New(), true, nil
}

func openConfiguredStore(ctx context.Context, cfg *config.Config) (domain.Database, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return sqlite.New(cfg.DatabasePath)
	}
}

// identityVerifiers builds a verifier for each provider with a client id.
// Signing keys are fetched lazily and cached by the remote key sets.
func identityVerifiers(ctx context.Context, cfg *config.Config) (*service.VerifierRegistry, error) {
	var list []service.IdentityVerifier

	if cfg.GoogleClientID != "" {
		keys := oidc.NewRemoteKeySet(ctx, service.GoogleJWKSURL)
		list = append(list, service.NewGoogleVerifier(keys, cfg.GoogleClientID))
	}

	if cfg.AppleClientID != "" {
		var opts []service.AppleOption
		if cfg.AppleCodeExchange() {
			secret, err := service.NewAppleClientSecret(cfg.AppleTeamID, cfg.AppleClientID, cfg.AppleKeyID, cfg.ApplePrivateKey)
			if err != nil {
				return nil, fmt.Errorf("apple client secret: %w", err)
			}
			opts = append(opts, service.WithAppleCodeExchange(secret))
		}
		keys := oidc.NewRemoteKeySet(ctx, service.AppleJWKSURL)
		list = append(list, service.NewAppleVerifier(keys, cfg.AppleClientID, opts...))
	}

	return service.NewVerifierRegistry(list...), nil
}
