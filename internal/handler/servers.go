package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/security/middleware"
	"github.com/aryan0dhankhar/serverhub/internal/service"
)

// ServersHandler serves the tenant admin API for servers
type ServersHandler struct {
	servers *service.ServerService
	logger  *slog.Logger
}

// NewServersHandler creates a new servers handler
func NewServersHandler(servers *service.ServerService, logger *slog.Logger) *ServersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServersHandler{servers: servers, logger: logger}
}

// ServerResponse is the summary of a server returned by the API
type ServerResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Subdomain   string    `json:"subdomain"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Port        int       `json:"port,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ServerListResponse represents GET /api/servers
type ServerListResponse struct {
	Servers []ServerResponse `json:"servers"`
}

// CreateServerRequest represents POST /api/servers
type CreateServerRequest struct {
	Name        string `json:"name"`
	Subdomain   string `json:"subdomain"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Port        int    `json:"port"`
}

// UpdateServerRequest represents PATCH /api/servers/{id}; omitted fields are kept
type UpdateServerRequest struct {
	Name        *string `json:"name"`
	Subdomain   *string `json:"subdomain"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Port        *int    `json:"port"`
}

func toServerResponse(s *domain.Server) ServerResponse {
	return ServerResponse{
		ID:          s.ID,
		Name:        s.Name,
		Subdomain:   s.Subdomain,
		Description: s.Description,
		Address:     s.Address,
		Port:        s.Port,
		Published:   s.Published,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func ownerID(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

// List handles GET /api/servers
func (h *ServersHandler) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.servers.ListForOwner(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := ServerListResponse{Servers: make([]ServerResponse, 0, len(servers))}
	for _, s := range servers {
		resp.Servers = append(resp.Servers, toServerResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /api/servers
func (h *ServersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateServerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	server, err := h.servers.Create(r.Context(), ownerID(r), service.ServerInput{
		Name:        req.Name,
		Subdomain:   req.Subdomain,
		Description: req.Description,
		Address:     req.Address,
		Port:        req.Port,
	})
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toServerResponse(server))
}

// Get handles GET /api/servers/{id}
func (h *ServersHandler) Get(w http.ResponseWriter, r *http.Request) {
	server, err := h.servers.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toServerResponse(server))
}

// Update handles PATCH /api/servers/{id}
func (h *ServersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateServerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	server, err := h.servers.Update(r.Context(), ownerID(r), r.PathValue("id"), service.ServerPatch{
		Name:        req.Name,
		Subdomain:   req.Subdomain,
		Description: req.Description,
		Address:     req.Address,
		Port:        req.Port,
	})
	if err != nil {
		writeServerError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toServerResponse(server))
}

// Publish handles POST /api/servers/{id}/publish
func (h *ServersHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// Unpublish handles POST /api/servers/{id}/unpublish
func (h *ServersHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *ServersHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	server, err := h.servers.SetPublished(r.Context(), ownerID(r), r.PathValue("id"), published)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toServerResponse(server))
}

// Delete handles DELETE /api/servers/{id}
func (h *ServersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.servers.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeServerError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if isConflict(err) {
		writeErrorMessage(w, http.StatusConflict, "subdomain is already taken")
		return
	}
	writeError(w, r, log, err)
}
