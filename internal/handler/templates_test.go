package handler

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/render"
	"github.com/aryan0dhankhar/serverhub/internal/service"
)

func TestViews_RenderError(t *testing.T) {
	views, err := NewViews(nil)
	require.NoError(t, err)

	tests := []struct {
		status int
		title  string
	}{
		{http.StatusNotFound, "Page not found"},
		{http.StatusServiceUnavailable, "Temporarily unavailable"},
		{http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec := httptest.NewRecorder()
			views.renderError(rec, httptest.NewRequest(http.MethodGet, "/nope", nil), tt.status)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, rec.Body.String(), tt.title)
			assert.Contains(t, rec.Body.String(), `href="/login"`)
		})
	}
}

func TestViews_RenderPage(t *testing.T) {
	views, err := NewViews(nil)
	require.NoError(t, err)

	page := &service.Page{
		Server: &domain.Server{Name: "Mine craft", Subdomain: "craft", Published: true},
		Tenant: render.Tenant{Name: "Mine craft", Description: "Survival"},
	}
	rec := httptest.NewRecorder()
	views.render(rec, httptest.NewRequest(http.MethodGet, "/craft", nil), http.StatusOK, "page", page)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Mine craft</title>")
	assert.Contains(t, body, "Survival")
	assert.Contains(t, body, `class="nav nav-tenant"`)
	assert.NotContains(t, body, `href="/login"`)

	page.Blocks = []render.Block{{SectionID: "s1", Type: "hero", HTML: template.HTML(`<section class="section">Hello</section>`)}}
	rec = httptest.NewRecorder()
	views.render(rec, httptest.NewRequest(http.MethodGet, "/craft", nil), http.StatusOK, "page", page)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello")
	assert.NotContains(t, rec.Body.String(), "Survival")
}

func TestTenantPage_UnknownTenantRendersNotFoundPage(t *testing.T) {
	app := newTestApp(t)

	rec := serve(app, newRequest(http.MethodGet, "http://nobody.example.com/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}
