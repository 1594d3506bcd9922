package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/security"
	"github.com/aryan0dhankhar/serverhub/internal/security/audit"
)

// SectionInput carries the fields of a new section. A nil Visible means true
// and a nil Order appends the section after the existing ones.
type SectionInput struct {
	Type     string
	Title    string
	Subtitle string
	Settings map[string]any
	Visible  *bool
	Order    *int
}

// SectionPatch carries a partial update; nil fields are left unchanged.
type SectionPatch struct {
	Title    *string
	Subtitle *string
	Settings map[string]any
	Visible  *bool
	Order    *int
}

// SectionService manages the sections of servers the caller owns
type SectionService struct {
	servers  *ServerService
	sections domain.SectionRepository
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewSectionService creates a new section service
func NewSectionService(
	servers *ServerService,
	sections domain.SectionRepository,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *SectionService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &SectionService{servers: servers, sections: sections, audit: auditLog, logger: logger}
}

// List returns every section of a server, hidden ones included, in display order
func (s *SectionService) List(ctx context.Context, ownerID, serverID string) ([]*domain.Section, error) {
	if _, err := s.servers.owned(ctx, ownerID, serverID, security.ActionRead); err != nil {
		return nil, err
	}
	sections, err := s.sections.ListByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// Create adds a section to a server
func (s *SectionService) Create(ctx context.Context, ownerID, serverID string, in SectionInput) (*domain.Section, error) {
	section := &domain.Section{
		ServerID: serverID,
		Type:     strings.ToLower(strings.TrimSpace(in.Type)),
		Title:    strings.TrimSpace(in.Title),
		Subtitle: strings.TrimSpace(in.Subtitle),
		Settings: in.Settings,
		Visible:  true,
	}
	if in.Visible != nil {
		section.Visible = *in.Visible
	}
	if in.Order != nil {
		section.Order = *in.Order
	}
	if err := validateSection(section); err != nil {
		return nil, err
	}

	if _, err := s.servers.owned(ctx, ownerID, serverID, security.ActionWrite); err != nil {
		return nil, err
	}

	if in.Order == nil {
		existing, err := s.sections.ListByServer(ctx, serverID)
		if err != nil {
			return nil, fmt.Errorf("list sections: %w", err)
		}
		for _, e := range existing {
			if e.Order >= section.Order {
				section.Order = e.Order + 1
			}
		}
	}

	if err := s.sections.Create(ctx, section); err != nil {
		return nil, err
	}
	s.audit.LogSectionChange(ctx, ownerID, "create", section.ID, audit.StatusSuccess, section.Type)
	return section, nil
}

// Update applies patch to a section of a server owned by ownerID
func (s *SectionService) Update(ctx context.Context, ownerID, serverID, sectionID string, patch SectionPatch) (*domain.Section, error) {
	section, err := s.owned(ctx, ownerID, serverID, sectionID, security.ActionWrite)
	if err != nil {
		return nil, err
	}

	updated := *section
	if patch.Title != nil {
		updated.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Subtitle != nil {
		updated.Subtitle = strings.TrimSpace(*patch.Subtitle)
	}
	if patch.Settings != nil {
		updated.Settings = patch.Settings
	}
	if patch.Visible != nil {
		updated.Visible = *patch.Visible
	}
	if patch.Order != nil {
		updated.Order = *patch.Order
	}
	if err := validateSection(&updated); err != nil {
		return nil, err
	}

	if err := s.sections.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.audit.LogSectionChange(ctx, ownerID, "update", updated.ID, audit.StatusSuccess, "")
	return &updated, nil
}

// Delete removes a section
func (s *SectionService) Delete(ctx context.Context, ownerID, serverID, sectionID string) error {
	section, err := s.owned(ctx, ownerID, serverID, sectionID, security.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.sections.Delete(ctx, section.ID); err != nil {
		return err
	}
	s.audit.LogSectionChange(ctx, ownerID, "delete", section.ID, audit.StatusSuccess, "")
	return nil
}

// Reorder sets the display order of a server's sections to the order of ids.
// ids must name each section of the server exactly once.
func (s *SectionService) Reorder(ctx context.Context, ownerID, serverID string, ids []string) ([]*domain.Section, error) {
	if len(ids) == 0 {
		return nil, domain.NewValidationError("ids", "is required")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, domain.NewValidationError("ids", "must not contain duplicates")
		}
		seen[id] = struct{}{}
	}

	if _, err := s.servers.owned(ctx, ownerID, serverID, security.ActionWrite); err != nil {
		return nil, err
	}
	existing, err := s.sections.ListByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	if len(existing) != len(ids) {
		return nil, domain.NewValidationError("ids", "must list every section of the server")
	}
	for _, e := range existing {
		if _, ok := seen[e.ID]; !ok {
			return nil, domain.NewValidationError("ids", "must list every section of the server")
		}
	}

	if err := s.sections.Reorder(ctx, serverID, ids); err != nil {
		return nil, err
	}
	s.audit.LogSectionChange(ctx, ownerID, "reorder", serverID, audit.StatusSuccess, "")
	return s.sections.ListByServer(ctx, serverID)
}

func (s *SectionService) owned(ctx context.Context, ownerID, serverID, sectionID string, action security.Action) (*domain.Section, error) {
	if _, err := s.servers.owned(ctx, ownerID, serverID, action); err != nil {
		return nil, err
	}
	if err := validID("section", sectionID); err != nil {
		return nil, err
	}
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.ServerID != serverID {
		return nil, fmt.Errorf("section %s: %w", sectionID, domain.ErrNotFound)
	}
	return section, nil
}
