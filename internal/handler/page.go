package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/serverhub/internal/service"
)

// PageHandler serves published server pages at /{subdomain}. Requests on a
// tenant host reach it through the tenancy rewrite.
type PageHandler struct {
	pages  *service.PageService
	views  *Views
	logger *slog.Logger
}

// NewPageHandler creates a new public page handler
func NewPageHandler(pages *service.PageService, views *Views, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{pages: pages, views: views, logger: logger}
}

// ServeHTTP handles GET /{subdomain} and GET /{subdomain}/. Deeper paths
// are not part of a page and answer 404.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("rest") != "" {
		h.views.renderError(w, r, http.StatusNotFound)
		return
	}
	page, err := h.pages.Published(r.Context(), r.PathValue("subdomain"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.views.renderError(w, r, http.StatusNotFound)
		case errors.Is(err, domain.ErrUnavailable):
			w.Header().Set("Retry-After", "30")
			h.views.renderError(w, r, http.StatusServiceUnavailable)
		default:
			h.logger.Error("failed to serve page",
				slog.String("request_id", logger.RequestID(r.Context())),
				slog.String("subdomain", r.PathValue("subdomain")),
				slog.String("error", err.Error()),
			)
			h.views.renderError(w, r, http.StatusInternalServerError)
		}
		return
	}
	h.views.render(w, r, http.StatusOK, "page", page)
}
