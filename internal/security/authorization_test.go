package security

import (
	"errors"
	"testing"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

func TestValidateResourceAccess(t *testing.T) {
	a := NewAuthorizer(nil)
	perm := ResourcePermission{ResourceType: ResourceServer, ResourceID: "srv-1", OwnerID: "user-1", Action: ActionWrite}

	if err := a.ValidateResourceAccess("user-1", perm); err != nil {
		t.Fatalf("owner should be allowed: %v", err)
	}
	if err := a.ValidateResourceAccess("user-2", perm); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	if err := a.ValidateResourceAccess("", ResourcePermission{ResourceType: ResourceServer}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous access to unowned resource, got %v", err)
	}
}
