package security

import (
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

// ResourceType identifies the kind of resource being accessed
type ResourceType string

const (
	ResourceServer  ResourceType = "server"
	ResourceSection ResourceType = "section"
)

// Action identifies what operation is being performed
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// ResourcePermission describes one access to an owned resource
type ResourcePermission struct {
	ResourceType ResourceType
	ResourceID   string
	OwnerID      string
	Action       Action
}

// Authorizer enforces that tenants are only touched by their owner.
type Authorizer struct {
	logger *slog.Logger
}

// NewAuthorizer creates a new ownership authorizer
func NewAuthorizer(logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{logger: logger}
}

// ValidateResourceAccess returns an error wrapping domain.ErrForbidden unless
// userID owns the resource. An empty userID is never an owner.
func (a *Authorizer) ValidateResourceAccess(userID string, perm ResourcePermission) error {
	if userID != "" && perm.OwnerID == userID {
		return nil
	}
	a.logger.Warn("resource access denied",
		slog.String("user_id", userID),
		slog.String("resource_id", perm.ResourceID),
		slog.String("resource_type", string(perm.ResourceType)),
		slog.String("action", string(perm.Action)),
	)
	return fmt.Errorf("%s %s: %w", perm.Action, perm.ResourceType, domain.ErrForbidden)
}
