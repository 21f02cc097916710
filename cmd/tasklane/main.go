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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/Strob0t/Tasklane/internal/adapter/http"
	"github.com/Strob0t/Tasklane/internal/adapter/memstore"
	cfnats "github.com/Strob0t/Tasklane/internal/adapter/nats"
	"github.com/Strob0t/Tasklane/internal/adapter/natskv"
	cfotel "github.com/Strob0t/Tasklane/internal/adapter/otel"
	"github.com/Strob0t/Tasklane/internal/adapter/postgres"
	cfredis "github.com/Strob0t/Tasklane/internal/adapter/redis"
	"github.com/Strob0t/Tasklane/internal/adapter/ristretto"
	"github.com/Strob0t/Tasklane/internal/adapter/tiered"
	"github.com/Strob0t/Tasklane/internal/config"
	"github.com/Strob0t/Tasklane/internal/logger"
	"github.com/Strob0t/Tasklane/internal/middleware"
	"github.com/Strob0t/Tasklane/internal/port/cache"
	"github.com/Strob0t/Tasklane/internal/port/database"
	"github.com/Strob0t/Tasklane/internal/port/messagequeue"
	"github.com/Strob0t/Tasklane/internal/resilience"
	"github.com/Strob0t/Tasklane/internal/secrets"
	"github.com/Strob0t/Tasklane/internal/service"
)

const minSigningKeyBytes = 32

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// storeHandle is a database.Store that can report health and release its
// connections.
type storeHandle interface {
	database.Store
	Ping(ctx context.Context) error
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"env", cfg.Server.Env,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Secrets ---

	vault, err := secrets.NewVault(secrets.EnvLoader(cfg.Auth.SecretEnv))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	if _, err := vault.Require(cfg.Auth.SecretEnv, minSigningKeyBytes); err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	// --- Telemetry ---

	shutdownOTEL, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	otelMetrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Storage ---

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Caches ---

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	idemLocal, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("idempotency cache: %w", err)
	}
	defer idemLocal.Close()
	var idemStore cache.Cache = idemLocal

	// --- Messaging ---

	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		q, err := cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.AuditStream)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := q.Drain(); err != nil {
				slog.Warn("nats drain", "error", err)
			}
		}()
		queue = q

		kv, err := q.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
		if err != nil {
			return fmt.Errorf("idempotency bucket: %w", err)
		}
		idemStore = tiered.New(idemLocal, natskv.New(kv), time.Minute)
		slog.Info("nats connected", "stream", cfg.NATS.AuditStream, "idempotency_bucket", cfg.Idempotency.Bucket)
	} else {
		slog.Warn("nats disabled: audit events are not published")
	}

	// --- Login throttle ---

	var counter middleware.AttemptCounter
	var windows *middleware.WindowCounter
	if cfg.Redis.Addr != "" {
		rc, err := cfredis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = rc.Close() }()
		counter = rc
		slog.Info("redis connected", "addr", cfg.Redis.Addr)
	} else {
		windows = middleware.NewWindowCounter()
		counter = windows
	}

	// --- Services ---

	breaker := resilience.NewBreaker("nats-audit", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	audit := service.NewAuditService(queue, breaker)
	audit.SetMetrics(otelMetrics)

	creds := service.NewCredentials(cfg.Auth.BcryptCost)
	tokens := service.NewTokenIssuer(vault, cfg.Auth)
	resolver := service.NewTenantResolver(store, l1, cfg.Cache.SubdomainTTL)
	quota := service.NewQuotaEnforcer(store)
	quota.SetMetrics(otelMetrics)

	authSvc := service.NewAuthService(store, resolver, tokens, creds, cfg.Plans, audit)
	authSvc.SetMetrics(otelMetrics)
	projectSvc := service.NewProjectService(store, quota)

	if cfg.Server.Development() {
		if err := service.NewAdminService(store, creds, cfg.Plans).SeedDemo(ctx); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	handlers := &cfhttp.Handlers{
		Auth:     authSvc,
		Tenants:  service.NewTenantService(store, quota, cfg.Plans, audit),
		Users:    service.NewUserService(store, quota, creds, audit),
		Projects: projectSvc,
		Tasks:    service.NewTaskService(store, projectSvc),
		DB:       store,
		Metrics:  otelMetrics,
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	httpMetrics := cfhttp.NewHTTPMetrics()

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(httpMetrics.Middleware)
	r.Use(limiter.Handler)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	cfhttp.MountRoutes(r, handlers, cfhttp.RouteOptions{
		LoginThrottle:    middleware.NewLoginThrottle(counter, cfg.Rate.LoginAttempts, cfg.Rate.LoginWindow),
		IdempotencyStore: idemStore,
		IdempotencyTTL:   cfg.Idempotency.TTL,
		Metrics:          httpMetrics.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Background workers ---

	stopSink, err := audit.StartLogSink(ctx)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	defer stopSink()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		authSvc.StartRevocationPurge(gctx, cfg.Auth.RevocationPurgeInterval)
		return nil
	})
	g.Go(func() error {
		limiter.StartCleanup(gctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		return nil
	})
	if windows != nil {
		g.Go(func() error {
			sweepEvery(gctx, cfg.Rate.LoginWindow, windows.Sweep)
			return nil
		})
	}
	g.Go(func() error {
		reloadOnHangup(gctx, vault)
		return nil
	})
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// openStore connects to PostgreSQL and applies migrations. Development mode
// without a DSN runs on the in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (storeHandle, func(), error) {
	if cfg.Postgres.DSN == "" && cfg.Server.Development() {
		slog.Warn("no postgres dsn: using in-memory store")
		return memstore.New(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	return postgres.NewStore(pool), pool.Close, nil
}

func sweepEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// reloadOnHangup re-reads the signing key on SIGHUP so it can be rotated
// without a restart.
func reloadOnHangup(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "version", vault.Version())
		}
	}
}
