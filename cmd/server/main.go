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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/handler"
	"github.com/aryan0dhankhar/serverhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/serverhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/serverhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/serverhub/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/serverhub/internal/render"
	"github.com/aryan0dhankhar/serverhub/internal/repository"
	"github.com/aryan0dhankhar/serverhub/internal/repository/memory"
	"github.com/aryan0dhankhar/serverhub/internal/security"
	"github.com/aryan0dhankhar/serverhub/internal/security/audit"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
	"github.com/aryan0dhankhar/serverhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/serverhub/internal/service"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
	"github.com/aryan0dhankhar/serverhub/internal/worker"
	"github.com/aryan0dhankhar/serverhub/pkg/config"
	"github.com/aryan0dhankhar/serverhub/pkg/database"
)

// memoryDatabaseURL selects the in-process store instead of PostgreSQL.
const memoryDatabaseURL = "memory"

type stores struct {
	users    domain.UserRepository
	servers  domain.ServerRepository
	sections domain.SectionRepository
	counter  worker.ServerCounter
	ping     handler.Pinger
	close    func() error
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	var log *slog.Logger
	if cfg.Environment == "development" {
		log = logger.NewDevelopmentLogger(cfg.LogLevel)
	} else {
		log = logger.NewLogger(cfg.LogLevel)
	}
	slog.SetDefault(log)
	log.Info("starting serverhub", slog.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, "serverhub", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Tenant directory storage
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	// 5. Session revocation
	var revocations auth.RevocationStore = repository.NewMemoryRevocationStore()
	var redisCheck handler.Pinger
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		revocations = repository.NewRedisRevocationStore(redisClient, log)
		redisCheck = redisClient
	} else {
		log.Warn("REDIS_URL not set, session revocations are kept in memory")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "serverhub-development-secret"
		log.Warn("JWT_SECRET not set, using development secret")
	}
	sessions := auth.NewSessions(auth.NewTokenManager(secret, "serverhub", cfg.SessionTTL), revocations, log)

	// 6. Services
	auditLog := audit.NewLogger(log)
	authService := service.NewAuthService(st.users, sessions, auditLog, log)
	serverService := service.NewServerService(st.servers, security.NewAuthorizer(log), auditLog, log)
	sectionService := service.NewSectionService(serverService, st.sections, auditLog, log)
	pageBreaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	pageService := service.NewPageService(st.servers, render.NewDefaultRegistry(log), pageBreaker, log)

	// 7. Handlers
	views, err := handler.NewViews(log)
	if err != nil {
		log.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	limiter := ratelimit.NewLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	defer limiter.Stop()

	directoryCheck := handler.PingFunc(func(context.Context) error {
		if pageService.BreakerState() == circuitbreaker.StateOpen {
			return circuitbreaker.ErrOpen
		}
		return nil
	})
	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database":         st.ping,
		"redis":            redisCheck,
		"tenant_directory": directoryCheck,
	}, log)

	router := handler.NewRouter(handler.RouterConfig{
		Auth:     handler.NewAuthHandler(authService, cfg.IsProduction(), log),
		Servers:  handler.NewServersHandler(serverService, log),
		Sections: handler.NewSectionsHandler(sectionService, log),
		Site: handler.NewSiteHandler(authService, serverService, views, handler.SiteOptions{
			RootDomain:    cfg.RootDomain,
			PathRouting:   cfg.DisableSubdomains,
			SecureCookies: cfg.IsProduction(),
		}, log),
		Page:           handler.NewPageHandler(pageService, views, log),
		Health:         health,
		Metrics:        promhttp.Handler(),
		Sessions:       sessions,
		Resolver:       tenancy.NewHostResolver(cfg.DisableSubdomains, cfg.LocalHosts),
		Gate:           tenancy.NewGatekeeper(cfg.ProtectedPrefix, cfg.LoginPath, nil),
		Audit:          auditLog,
		Limiter:        limiter,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Logger:         log,
	})

	// 8. Background directory stats
	go worker.NewStatsWorker(st.counter, log, time.Minute).Start(ctx)

	// 9. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           otelhttp.NewHandler(router, "serverhub"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("root_domain", cfg.RootDomain),
		slog.Bool("subdomains", !cfg.DisableSubdomains),
		slog.Int("auth_rate_limit", cfg.AuthRateLimit),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", slog.String("error", err.Error()))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// openStores connects to PostgreSQL and applies migrations, or falls back
// to the in-memory store when DATABASE_URL=memory.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.DatabaseURL == memoryDatabaseURL {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL=memory is not allowed in production")
		}
		log.Warn("using in-memory storage, data is lost on restart")
		mem := memory.NewStore()
		return &stores{
			users:    mem.Users(),
			servers:  mem.Servers(),
			sections: mem.Sections(),
			counter:  mem.Servers(),
			close:    func() error { return nil },
		}, nil
	}

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db := pool.GetDB()
	servers := repository.NewPostgresServerRepository(db, log)
	return &stores{
		users:    repository.NewPostgresUserRepository(db, log),
		servers:  servers,
		sections: repository.NewPostgresSectionRepository(db, log),
		counter:  servers,
		ping:     handler.PingFunc(pool.Health),
		close:    pool.Close,
	}, nil
}
