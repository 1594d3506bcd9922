package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/serverhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/serverhub/internal/security/audit"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
	"github.com/aryan0dhankhar/serverhub/internal/security/middleware"
	"github.com/aryan0dhankhar/serverhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
)

// RouterConfig wires handlers and middleware into one http.Handler
type RouterConfig struct {
	Auth     *AuthHandler
	Servers  *ServersHandler
	Sections *SectionsHandler
	Site     *SiteHandler
	Page     *PageHandler
	Health   *HealthHandler
	Metrics  http.Handler // nil disables /metrics

	Sessions *auth.Sessions
	Resolver *tenancy.HostResolver
	Gate     *tenancy.Gatekeeper
	Audit    *audit.Logger

	Limiter        *ratelimit.Limiter
	AuthRateLimit  int
	AuthRateWindow time.Duration
	CORSOrigins    []string

	Logger *slog.Logger
}

// NewRouter builds the request pipeline: request id, CORS, session,
// tenancy gatekeeper, metrics, then the route table.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", cfg.Health.Health)
	mux.HandleFunc("GET /readyz", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	mux.Handle("GET /static/", StaticHandler())
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api := func(h http.HandlerFunc) http.Handler {
		return chain(h,
			middleware.SanitizeInputs(log),
			middleware.ValidateJSONContentType(log),
			middleware.AuditMiddleware(cfg.Audit),
		)
	}
	authed := func(h http.HandlerFunc) http.Handler {
		return api(middleware.RequireAuth(h).ServeHTTP)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return chain(api(h), middleware.RateLimit(cfg.Limiter, cfg.AuthRateLimit, cfg.AuthRateWindow, log))
	}

	mux.Handle("POST /api/auth/register", limited(cfg.Auth.Register))
	mux.Handle("POST /api/auth/login", limited(cfg.Auth.Login))
	mux.Handle("POST /api/auth/logout", api(cfg.Auth.Logout))
	mux.Handle("GET /api/auth/me", authed(cfg.Auth.Me))

	mux.Handle("GET /api/servers", authed(cfg.Servers.List))
	mux.Handle("POST /api/servers", authed(cfg.Servers.Create))
	mux.Handle("GET /api/servers/{id}", authed(cfg.Servers.Get))
	mux.Handle("PATCH /api/servers/{id}", authed(cfg.Servers.Update))
	mux.Handle("DELETE /api/servers/{id}", authed(cfg.Servers.Delete))
	mux.Handle("POST /api/servers/{id}/publish", authed(cfg.Servers.Publish))
	mux.Handle("POST /api/servers/{id}/unpublish", authed(cfg.Servers.Unpublish))

	mux.Handle("GET /api/servers/{id}/sections", authed(cfg.Sections.List))
	mux.Handle("POST /api/servers/{id}/sections", authed(cfg.Sections.Create))
	mux.Handle("PUT /api/servers/{id}/sections/order", authed(cfg.Sections.Reorder))
	mux.Handle("PATCH /api/servers/{id}/sections/{sectionID}", authed(cfg.Sections.Update))
	mux.Handle("DELETE /api/servers/{id}/sections/{sectionID}", authed(cfg.Sections.Delete))

	mux.HandleFunc("GET /{$}", cfg.Site.Home)
	mux.HandleFunc("GET /login", cfg.Site.LoginForm)
	mux.Handle("POST /login", chain(http.HandlerFunc(cfg.Site.Login), middleware.RateLimit(cfg.Limiter, cfg.AuthRateLimit, cfg.AuthRateWindow, log)))
	mux.HandleFunc("GET /register", cfg.Site.RegisterForm)
	mux.Handle("POST /register", chain(http.HandlerFunc(cfg.Site.Register), middleware.RateLimit(cfg.Limiter, cfg.AuthRateLimit, cfg.AuthRateWindow, log)))
	mux.HandleFunc("POST /logout", cfg.Site.Logout)
	mux.HandleFunc("GET /dashboard", cfg.Site.Dashboard)

	mux.Handle("GET /{subdomain}", cfg.Page)
	mux.Handle("GET /{subdomain}/{rest...}", cfg.Page)

	return chain(metrics.HTTPMetricsMiddleware(mux),
		middleware.RequestID(uuid.NewString, log),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Session(cfg.Sessions, log),
		middleware.Tenancy(cfg.Resolver, cfg.Gate, log),
	)
}

// chain wraps h so that the first middleware listed runs first.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
