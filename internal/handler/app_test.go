package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/render"
	"github.com/aryan0dhankhar/serverhub/internal/repository"
	"github.com/aryan0dhankhar/serverhub/internal/repository/memory"
	"github.com/aryan0dhankhar/serverhub/internal/security/audit"
	"github.com/aryan0dhankhar/serverhub/internal/security/auth"
	"github.com/aryan0dhankhar/serverhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/serverhub/internal/service"
	"github.com/aryan0dhankhar/serverhub/internal/tenancy"
)

type testApp struct {
	handler http.Handler
	store   *memory.Store
	servers *service.ServerService
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithServers(t, nil)
}

// newTestAppWithServers builds the full router over an in-memory store.
// pageRepo, when set, replaces the repository behind public pages.
func newTestAppWithServers(t *testing.T, pageRepo domain.ServerRepository) *testApp {
	t.Helper()

	store := memory.NewStore()
	sessions := auth.NewSessions(auth.NewTokenManager("test-secret", "serverhub", time.Hour), repository.NewMemoryRevocationStore(), nil)
	auditLog := audit.NewLogger(nil)
	authSvc := service.NewAuthService(store.Users(), sessions, auditLog, nil)
	serverSvc := service.NewServerService(store.Servers(), nil, auditLog, nil)
	sectionSvc := service.NewSectionService(serverSvc, store.Sections(), auditLog, nil)
	if pageRepo == nil {
		pageRepo = store.Servers()
	}
	pageSvc := service.NewPageService(pageRepo, render.NewDefaultRegistry(nil), nil, nil)

	views, err := NewViews(nil)
	require.NoError(t, err)

	limiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	h := NewRouter(RouterConfig{
		Auth:           NewAuthHandler(authSvc, false, nil),
		Servers:        NewServersHandler(serverSvc, nil),
		Sections:       NewSectionsHandler(sectionSvc, nil),
		Site:           NewSiteHandler(authSvc, serverSvc, views, SiteOptions{RootDomain: "example.com"}, nil),
		Page:           NewPageHandler(pageSvc, views, nil),
		Health:         NewHealthHandler(map[string]Pinger{"database": nil}, nil),
		Sessions:       sessions,
		Resolver:       tenancy.NewHostResolver(false, []string{"localhost"}),
		Gate:           tenancy.NewGatekeeper("/dashboard", "/login", tenancy.DefaultExcludedPrefixes),
		Audit:          auditLog,
		Limiter:        limiter,
		AuthRateLimit:  100,
		AuthRateWindow: time.Minute,
	})
	return &testApp{handler: h, store: store, servers: serverSvc}
}

// do sends a JSON request to the apex host with an optional bearer token
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, "http://example.com"+path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers and logs in, returning a bearer token
func (a *testApp) signup(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}

func serve(a *testApp, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}
