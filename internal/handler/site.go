package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/featureflags"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
	"github.com/aryan0dhankhar/serverhub/internal/security/middleware"
	"github.com/aryan0dhankhar/serverhub/internal/service"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
)

const defaultAfterLogin = "/dashboard"

// SiteHandler serves the apex HTML pages: home, login, registration and dashboard
type SiteHandler struct {
	auth          *service.AuthService
	servers       *service.ServerService
	views         *Views
	pageURL       func(subdomain string) string
	secureCookies bool
	logger        *slog.Logger
}

// SiteOptions configures a SiteHandler
type SiteOptions struct {
	// RootDomain is the apex domain tenant pages live under.
	RootDomain string
	// PathRouting links tenant pages as /{subdomain} instead of subdomain hosts.
	PathRouting   bool
	SecureCookies bool
}

// NewSiteHandler creates a new site handler
func NewSiteHandler(authService *service.AuthService, servers *service.ServerService, views *Views, opts SiteOptions, logger *slog.Logger) *SiteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	scheme := "http"
	if opts.SecureCookies {
		scheme = "https"
	}
	pageURL := func(sub string) string {
		if opts.PathRouting || opts.RootDomain == "" {
			return "/" + sub
		}
		return scheme + "://" + sub + "." + opts.RootDomain + "/"
	}
	return &SiteHandler{
		auth:          authService,
		servers:       servers,
		views:         views,
		pageURL:       pageURL,
		secureCookies: opts.SecureCookies,
		logger:        logger,
	}
}

type siteView struct {
	SignedIn bool
}

type formView struct {
	siteView
	Error       string
	Email       string
	CallbackURL string
	Closed      bool
}

type dashboardServer struct {
	Name      string
	Subdomain string
	Endpoint  string
	URL       string
	Published bool
	UpdatedAt time.Time
}

type dashboardView struct {
	siteView
	Email   string
	Servers []dashboardServer
}

func signedIn(r *http.Request) bool {
	return middleware.GetClaimsFromContext(r.Context()) != nil
}

// Home handles GET /{$}
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, "home", siteView{SignedIn: signedIn(r)})
}

// LoginForm handles GET /login
func (h *SiteHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	callback := SafeCallback(r.URL.Query().Get(tenancy.CallbackParam))
	if signedIn(r) {
		http.Redirect(w, r, callback, http.StatusSeeOther)
		return
	}
	h.views.render(w, r, http.StatusOK, "login", formView{CallbackURL: callback})
}

// Login handles POST /login
func (h *SiteHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.views.render(w, r, http.StatusBadRequest, "login", formView{Error: "Invalid form submission."})
		return
	}
	email := r.PostForm.Get("email")
	callback := SafeCallback(r.PostForm.Get(tenancy.CallbackParam))

	result, err := h.auth.Login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		view := formView{Email: email, CallbackURL: callback}
		if errors.Is(err, service.ErrInvalidCredentials) {
			view.Error = "Invalid email or password."
			h.views.render(w, r, http.StatusUnauthorized, "login", view)
			return
		}
		h.logger.Error("form login failed", slog.String("error", err.Error()))
		view.Error = "Something went wrong. Please try again."
		h.views.render(w, r, http.StatusInternalServerError, "login", view)
		return
	}

	auth.SetCookie(w, result.Token, result.ExpiresAt, h.secureCookies)
	http.Redirect(w, r, callback, http.StatusSeeOther)
}

// RegisterForm handles GET /register
func (h *SiteHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, "register", formView{
		siteView: siteView{SignedIn: signedIn(r)},
		Closed:   featureflags.Enabled(featureflags.RegistrationClosed),
	})
}

// Register handles POST /register and signs the new user in
func (h *SiteHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.views.render(w, r, http.StatusBadRequest, "register", formView{Error: "Invalid form submission."})
		return
	}
	email := r.PostForm.Get("email")
	password := r.PostForm.Get("password")

	if _, err := h.auth.Register(r.Context(), email, password); err != nil {
		view := formView{Email: email}
		var verr *domain.ValidationError
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &verr):
			status, view.Error = http.StatusBadRequest, capitalize(verr.Error())
		case errors.Is(err, domain.ErrConflict):
			status, view.Error = http.StatusConflict, "A user with this email already exists."
		case errors.Is(err, service.ErrRegistrationClosed):
			status, view.Closed = http.StatusForbidden, true
		default:
			h.logger.Error("form registration failed", slog.String("error", err.Error()))
			view.Error = "Something went wrong. Please try again."
		}
		h.views.render(w, r, status, "register", view)
		return
	}

	result, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	auth.SetCookie(w, result.Token, result.ExpiresAt, h.secureCookies)
	http.Redirect(w, r, defaultAfterLogin, http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *SiteHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.GetClaimsFromContext(r.Context())); err != nil {
		h.logger.Warn("form logout failed", slog.String("error", err.Error()))
	}
	auth.ClearCookie(w, h.secureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Dashboard handles GET /dashboard. The tenancy middleware has already
// redirected anonymous visitors; the check here covers direct mounting.
func (h *SiteHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		q := url.Values{tenancy.CallbackParam: {r.URL.Path}}
		http.Redirect(w, r, "/login?"+q.Encode(), http.StatusSeeOther)
		return
	}

	servers, err := h.servers.ListForOwner(r.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("failed to load dashboard",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		h.views.renderError(w, r, http.StatusInternalServerError)
		return
	}

	view := dashboardView{siteView: siteView{SignedIn: true}, Email: claims.Email}
	for _, s := range servers {
		view.Servers = append(view.Servers, dashboardServer{
			Name:      s.Name,
			Subdomain: s.Subdomain,
			Endpoint:  s.Endpoint(),
			URL:       h.pageURL(s.Subdomain),
			Published: s.Published,
			UpdatedAt: s.UpdatedAt,
		})
	}
	h.views.render(w, r, http.StatusOK, "dashboard", view)
}

// SafeCallback returns raw when it is a local absolute path, else the dashboard.
func SafeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return defaultAfterLogin
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultAfterLogin
	}
	return u.RequestURI()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
