// Package render turns a server's ordered sections into HTML blocks.
package render

import (
	"fmt"
	"html/template"
	"log/slog"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/observability/metrics"
)

// Tenant holds the display fields of the server a page belongs to
type Tenant struct {
	Name        string
	Description string
	Endpoint    string // address[:port], may be empty
}

// TenantFromServer copies the display fields out of s
func TenantFromServer(s *domain.Server) Tenant {
	return Tenant{Name: s.Name, Description: s.Description, Endpoint: s.Endpoint()}
}

// Renderer produces the markup of one section. Settings are untyped, so
// a renderer defaults every field it cannot read.
type Renderer func(t Tenant, s *domain.Section) (template.HTML, error)

// Block is one rendered section
type Block struct {
	SectionID string
	Type      string
	HTML      template.HTML
}

// UnknownType is the metrics label for every unregistered section type
const UnknownType = "unknown"

// Registry maps section type tags to renderers. It is populated at startup
// and read-only afterwards.
type Registry struct {
	renderers map[string]Renderer
	logger    *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{renderers: map[string]Renderer{}, logger: logger}
}

// NewDefaultRegistry creates a registry with every built-in section type
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(TypeHero, renderHero)
	r.Register(TypeStats, renderStats)
	r.Register(TypeFeatures, renderFeatures)
	r.Register(TypeGallery, renderGallery)
	return r
}

// Register binds tag to fn, replacing any previous renderer
func (r *Registry) Register(tag string, fn Renderer) {
	r.renderers[tag] = fn
}

// Lookup returns the renderer for tag, if any
func (r *Registry) Lookup(tag string) (Renderer, bool) {
	fn, ok := r.renderers[tag]
	return fn, ok
}

// Types lists the registered tags
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.renderers))
	for tag := range r.renderers {
		out = append(out, tag)
	}
	return out
}

// Render renders sections in the given order. Sections with an unknown
// type are skipped; a section whose renderer fails or panics is dropped
// without affecting its siblings.
func (r *Registry) Render(t Tenant, sections []*domain.Section) []Block {
	blocks := make([]Block, 0, len(sections))
	for _, s := range sections {
		if s == nil {
			continue
		}
		fn, ok := r.Lookup(s.Type)
		if !ok {
			// tags are tenant input; only registry keys become label values
			metrics.ObserveSectionRender(UnknownType, "skipped")
			continue
		}
		html, err := r.renderOne(fn, t, s)
		if err != nil {
			metrics.ObserveSectionRender(s.Type, "error")
			r.logger.Warn("section render failed",
				slog.String("section_id", s.ID),
				slog.String("type", s.Type),
				slog.String("error", err.Error()),
			)
			continue
		}
		metrics.ObserveSectionRender(s.Type, "ok")
		blocks = append(blocks, Block{SectionID: s.ID, Type: s.Type, HTML: html})
	}
	return blocks
}

func (r *Registry) renderOne(fn Renderer, t Tenant, s *domain.Section) (html template.HTML, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panic: %v", p)
		}
	}()
	return fn(t, s)
}
