package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
)

type seen struct {
	path      string
	escaped   string
	rawQuery  string
	subdomain string
	called    bool
}

func newTenancyHandler(disabled bool) (http.Handler, *seen) {
	s := &seen{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.path = r.URL.Path
		s.escaped = r.URL.EscapedPath()
		s.rawQuery = r.URL.RawQuery
		s.subdomain = GetSubdomainFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	resolver := tenancy.NewHostResolver(disabled, nil)
	gate := tenancy.NewGatekeeper("/dashboard", "/login", tenancy.DefaultExcludedPrefixes)
	return Tenancy(resolver, gate, slog.Default())(next), s
}

func TestTenancyRewritesSubdomainRequests(t *testing.T) {
	h, s := newTenancyHandler(false)
	req := httptest.NewRequest(http.MethodGet, "http://mc.example.com/?ref=discord", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !s.called || s.path != "/mc/" || s.rawQuery != "ref=discord" {
		t.Fatalf("expected rewrite to /mc/?ref=discord, got %q?%q", s.path, s.rawQuery)
	}
	if s.subdomain != "mc" {
		t.Fatalf("expected subdomain in context, got %q", s.subdomain)
	}
	if req.URL.Path != "/" {
		t.Fatalf("original request must not be mutated, got %q", req.URL.Path)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("rewrite must not be visible to the client")
	}
}

func TestTenancyRewriteKeepsEncodedSegments(t *testing.T) {
	h, s := newTenancyHandler(false)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://mc.example.com/files/a%2Fb", nil))

	if s.path != "/mc/files/a/b" {
		t.Fatalf("expected decoded path /mc/files/a/b, got %q", s.path)
	}
	if s.escaped != "/mc/files/a%2Fb" {
		t.Fatalf("expected escaped path /mc/files/a%%2Fb, got %q", s.escaped)
	}
}

func TestTenancyRewriteTakesPriorityOverProtection(t *testing.T) {
	h, s := newTenancyHandler(false)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://mc.example.com/dashboard", nil))

	if rec.Code != http.StatusOK || s.path != "/mc/dashboard" {
		t.Fatalf("expected rewrite, got status %d path %q", rec.Code, s.path)
	}
}

func TestTenancyRedirectsAnonymousDashboard(t *testing.T) {
	h, s := newTenancyHandler(false)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/dashboard/servers/1", nil))

	if s.called {
		t.Fatal("handler must not run for a redirect")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?callbackUrl=%2Fdashboard%2Fservers%2F1" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestTenancyPassesAuthenticatedDashboard(t *testing.T) {
	h, s := newTenancyHandler(false)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/dashboard", nil)
	req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: "u1"}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !s.called || s.path != "/dashboard" {
		t.Fatalf("expected pass through, got called=%v path=%q", s.called, s.path)
	}
}

func TestTenancySkipsExcludedPaths(t *testing.T) {
	h, s := newTenancyHandler(false)
	for _, path := range []string{"/api/servers", "/static/app.css", "/images/logo.png", "/favicon.ico", "/healthz"} {
		*s = seen{}
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://mc.example.com"+path, nil))
		if s.path != path || s.subdomain != "" {
			t.Errorf("%s: expected untouched request, got path %q subdomain %q", path, s.path, s.subdomain)
		}
	}
}

func TestTenancyLocalHostsBypassResolution(t *testing.T) {
	h, s := newTenancyHandler(false)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://mc.localhost:3000/", nil))
	if s.path != "/" {
		t.Fatalf("expected local host to pass through, got %q", s.path)
	}

	h, s = newTenancyHandler(true)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://mc.example.com/", nil))
	if s.path != "/" {
		t.Fatalf("expected disabled subdomains to pass through, got %q", s.path)
	}
}

func TestTenancyIgnoresReservedSubdomains(t *testing.T) {
	h, s := newTenancyHandler(false)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://www.example.com/about", nil))
	if s.path != "/about" {
		t.Fatalf("expected www to pass through, got %q", s.path)
	}
}
