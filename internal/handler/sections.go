package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/service"
)

// SectionsHandler serves the tenant admin API for sections
type SectionsHandler struct {
	sections *service.SectionService
	logger   *slog.Logger
}

// NewSectionsHandler creates a new sections handler
func NewSectionsHandler(sections *service.SectionService, logger *slog.Logger) *SectionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SectionsHandler{sections: sections, logger: logger}
}

// SectionResponse is a section as returned by the API
type SectionResponse struct {
	ID        string         `json:"id"`
	ServerID  string         `json:"serverId"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Subtitle  string         `json:"subtitle"`
	Settings  map[string]any `json:"settings"`
	Visible   bool           `json:"visible"`
	Order     int            `json:"order"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SectionListResponse wraps a list of sections
type SectionListResponse struct {
	Sections []SectionResponse `json:"sections"`
}

// CreateSectionRequest represents POST /api/servers/{id}/sections
type CreateSectionRequest struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Settings map[string]any `json:"settings"`
	Visible  *bool          `json:"visible"`
	Order    *int           `json:"order"`
}

// UpdateSectionRequest represents PATCH /api/servers/{id}/sections/{sectionID}
type UpdateSectionRequest struct {
	Title    *string        `json:"title"`
	Subtitle *string        `json:"subtitle"`
	Settings map[string]any `json:"settings"`
	Visible  *bool          `json:"visible"`
	Order    *int           `json:"order"`
}

// ReorderRequest represents PUT /api/servers/{id}/sections/order
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

func toSectionResponse(s *domain.Section) SectionResponse {
	settings := s.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return SectionResponse{
		ID:        s.ID,
		ServerID:  s.ServerID,
		Type:      s.Type,
		Title:     s.Title,
		Subtitle:  s.Subtitle,
		Settings:  settings,
		Visible:   s.Visible,
		Order:     s.Order,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toSectionList(sections []*domain.Section) SectionListResponse {
	resp := SectionListResponse{Sections: make([]SectionResponse, 0, len(sections))}
	for _, s := range sections {
		resp.Sections = append(resp.Sections, toSectionResponse(s))
	}
	return resp
}

// List handles GET /api/servers/{id}/sections
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sections, err := h.sections.List(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSectionList(sections))
}

// Create handles POST /api/servers/{id}/sections
func (h *SectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	section, err := h.sections.Create(r.Context(), ownerID(r), r.PathValue("id"), service.SectionInput{
		Type:     req.Type,
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Settings: req.Settings,
		Visible:  req.Visible,
		Order:    req.Order,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSectionResponse(section))
}

// Update handles PATCH /api/servers/{id}/sections/{sectionID}
func (h *SectionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	section, err := h.sections.Update(r.Context(), ownerID(r), r.PathValue("id"), r.PathValue("sectionID"), service.SectionPatch{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Settings: req.Settings,
		Visible:  req.Visible,
		Order:    req.Order,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSectionResponse(section))
}

// Delete handles DELETE /api/servers/{id}/sections/{sectionID}
func (h *SectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sections.Delete(r.Context(), ownerID(r), r.PathValue("id"), r.PathValue("sectionID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PUT /api/servers/{id}/sections/order
func (h *SectionsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sections, err := h.sections.Reorder(r.Context(), ownerID(r), r.PathValue("id"), req.IDs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSectionList(sections))
}
