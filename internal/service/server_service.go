package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/security"
	"github.com/aryan0dhankhar/serverhub/internal/security/audit"
)

// ServerInput carries the fields of a new server
type ServerInput struct {
	Name        string
	Subdomain   string
	Description string
	Address     string
	Port        int
}

// ServerPatch carries a partial update; nil fields are left unchanged.
type ServerPatch struct {
	Name        *string
	Subdomain   *string
	Description *string
	Address     *string
	Port        *int
}

var errSubdomainLocked = domain.NewValidationError("subdomain", "cannot be changed once the server has been published")

// ServerService manages servers on behalf of their owners
type ServerService struct {
	servers domain.ServerRepository
	authz   *security.Authorizer
	audit   *audit.Logger
	logger  *slog.Logger
}

// NewServerService creates a new server service
func NewServerService(
	servers domain.ServerRepository,
	authz *security.Authorizer,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *ServerService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizer(logger)
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &ServerService{servers: servers, authz: authz, audit: auditLog, logger: logger}
}

// ListForOwner returns the caller's servers, most recently updated first
func (s *ServerService) ListForOwner(ctx context.Context, ownerID string) ([]*domain.Server, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	servers, err := s.servers.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	return servers, nil
}

// Create validates in and stores a new unpublished server owned by ownerID
func (s *ServerService) Create(ctx context.Context, ownerID string, in ServerInput) (*domain.Server, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	server := &domain.Server{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Subdomain:   strings.ToLower(strings.TrimSpace(in.Subdomain)),
		Description: strings.TrimSpace(in.Description),
		Address:     strings.TrimSpace(in.Address),
		Port:        in.Port,
	}
	if err := validateServer(server); err != nil {
		return nil, err
	}
	if err := s.ensureSubdomainFree(ctx, server.Subdomain, ""); err != nil {
		return nil, err
	}

	if err := s.servers.Create(ctx, server); err != nil {
		s.audit.LogServerChange(ctx, ownerID, "create", "", audit.StatusFailure, err.Error())
		return nil, err
	}
	s.audit.LogServerChange(ctx, ownerID, "create", server.ID, audit.StatusSuccess, server.Subdomain)
	s.logger.Info("server created",
		slog.String("server_id", server.ID),
		slog.String("owner_id", ownerID),
		slog.String("subdomain", server.Subdomain),
	)
	return server, nil
}

// Get returns a server owned by ownerID
func (s *ServerService) Get(ctx context.Context, ownerID, id string) (*domain.Server, error) {
	return s.owned(ctx, ownerID, id, security.ActionRead)
}

// Update applies patch. The subdomain cannot change once the server has
// been published, even after it is unpublished again.
func (s *ServerService) Update(ctx context.Context, ownerID, id string, patch ServerPatch) (*domain.Server, error) {
	server, err := s.owned(ctx, ownerID, id, security.ActionWrite)
	if err != nil {
		return nil, err
	}

	updated := *server
	if patch.Name != nil {
		updated.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		updated.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Address != nil {
		updated.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.Port != nil {
		updated.Port = *patch.Port
	}
	if patch.Subdomain != nil {
		updated.Subdomain = strings.ToLower(strings.TrimSpace(*patch.Subdomain))
	}
	if err := validateServer(&updated); err != nil {
		return nil, err
	}
	if updated.Subdomain != server.Subdomain {
		if server.SubdomainLocked() {
			return nil, errSubdomainLocked
		}
		if err := s.ensureSubdomainFree(ctx, updated.Subdomain, server.ID); err != nil {
			return nil, err
		}
	}

	if err := s.servers.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrSubdomainLocked) {
			return nil, errSubdomainLocked
		}
		return nil, err
	}
	s.audit.LogServerChange(ctx, ownerID, "update", server.ID, audit.StatusSuccess, "")
	return &updated, nil
}

// SetPublished publishes or unpublishes a server
func (s *ServerService) SetPublished(ctx context.Context, ownerID, id string, published bool) (*domain.Server, error) {
	server, err := s.owned(ctx, ownerID, id, security.ActionWrite)
	if err != nil {
		return nil, err
	}
	if server.Published == published {
		return server, nil
	}
	server.Published = published
	if err := s.servers.SetPublished(ctx, server); err != nil {
		return nil, err
	}

	action := "unpublish"
	if published {
		action = "publish"
	}
	s.audit.LogServerChange(ctx, ownerID, action, server.ID, audit.StatusSuccess, server.Subdomain)
	s.logger.Info("server visibility changed",
		slog.String("server_id", server.ID),
		slog.String("subdomain", server.Subdomain),
		slog.Bool("published", published),
	)
	return server, nil
}

// Delete removes a server and, by cascade, its sections
func (s *ServerService) Delete(ctx context.Context, ownerID, id string) error {
	server, err := s.owned(ctx, ownerID, id, security.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.servers.Delete(ctx, server.ID); err != nil {
		return err
	}
	s.audit.LogServerChange(ctx, ownerID, "delete", server.ID, audit.StatusSuccess, server.Subdomain)
	return nil
}

// owned loads a server and checks that ownerID owns it. Callers map the
// forbidden case to the same response as not found.
func (s *ServerService) owned(ctx context.Context, ownerID, id string, action security.Action) (*domain.Server, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := validID("server", id); err != nil {
		return nil, err
	}
	server, err := s.servers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateResourceAccess(ownerID, security.ResourcePermission{
		ResourceType: security.ResourceServer,
		ResourceID:   server.ID,
		OwnerID:      server.OwnerID,
		Action:       action,
	}); err != nil {
		s.audit.LogDenied(ctx, ownerID, "server", server.ID, string(action))
		return nil, err
	}
	return server, nil
}

func (s *ServerService) ensureSubdomainFree(ctx context.Context, sub, selfID string) error {
	existing, err := s.servers.GetBySubdomain(ctx, sub)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check subdomain: %w", err)
	case existing.ID == selfID:
		return nil
	default:
		return fmt.Errorf("subdomain %s: %w", sub, domain.ErrConflict)
	}
}
