package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestCreateServerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")

	cases := []struct {
		name  string
		in    ServerInput
		field string
	}{
		{"missing name", ServerInput{Subdomain: "valid"}, "name"},
		{"short subdomain", ServerInput{Name: "A", Subdomain: "ab"}, "subdomain"},
		{"bad characters", ServerInput{Name: "A", Subdomain: "my_server"}, "subdomain"},
		{"reserved", ServerInput{Name: "A", Subdomain: "dashboard"}, "subdomain"},
		{"port range", ServerInput{Name: "A", Subdomain: "valid", Port: 70000}, "port"},
		{"address with path", ServerInput{Name: "A", Subdomain: "valid", Address: "play.example.com/x"}, "address"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.servers.Create(ctx, owner, tc.in)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestCreateServerNormalizesAndRejectsTakenSubdomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	srv, err := f.servers.Create(ctx, alice, ServerInput{Name: " Blockville ", Subdomain: "BlockVille", Port: 25565})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if srv.Subdomain != "blockville" || srv.Name != "Blockville" || srv.Published {
		t.Fatalf("unexpected server: %+v", srv)
	}

	if _, err := f.servers.Create(ctx, bob, ServerInput{Name: "Other", Subdomain: "blockville"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServerOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	srv, err := f.servers.Create(ctx, alice, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := f.servers.Get(ctx, bob, srv.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
	if err := f.servers.Delete(ctx, bob, srv.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden delete for non-owner, got %v", err)
	}
	if _, err := f.servers.Get(ctx, alice, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}

	list, err := f.servers.ListForOwner(ctx, bob)
	if err != nil || len(list) != 0 {
		t.Fatalf("bob should see no servers, got %d (%v)", len(list), err)
	}
	if _, err := f.servers.ListForOwner(ctx, ""); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized without owner, got %v", err)
	}
}

func TestSubdomainLockedWhilePublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")

	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	renamed, err := f.servers.Update(ctx, owner, srv.ID, ServerPatch{Subdomain: strPtr("blockworld")})
	if err != nil || renamed.Subdomain != "blockworld" {
		t.Fatalf("draft rename should succeed: %+v %v", renamed, err)
	}

	if _, err := f.servers.SetPublished(ctx, owner, srv.ID, true); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	_, err = f.servers.Update(ctx, owner, srv.ID, ServerPatch{Subdomain: strPtr("elsewhere")})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "subdomain" {
		t.Fatalf("expected subdomain validation error, got %v", err)
	}

	updated, err := f.servers.Update(ctx, owner, srv.ID, ServerPatch{Name: strPtr("Blockworld"), Subdomain: strPtr("blockworld")})
	if err != nil || updated.Name != "Blockworld" {
		t.Fatalf("unchanged subdomain with new name should succeed: %+v %v", updated, err)
	}
}

func TestSubdomainStaysLockedAfterUnpublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")

	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.servers.SetPublished(ctx, owner, srv.ID, true); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	unpublished, err := f.servers.SetPublished(ctx, owner, srv.ID, false)
	if err != nil || unpublished.Published || !unpublished.SubdomainLocked() {
		t.Fatalf("unpublish should keep the lock: %+v %v", unpublished, err)
	}

	_, err = f.servers.Update(ctx, owner, srv.ID, ServerPatch{Subdomain: strPtr("elsewhere")})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "subdomain" {
		t.Fatalf("expected subdomain validation error, got %v", err)
	}
}

// publishDuringUpdate publishes the server between the service's read and
// its write, like a concurrent POST /publish.
type publishDuringUpdate struct {
	domain.ServerRepository
	publish func()
}

func (r *publishDuringUpdate) Update(ctx context.Context, server *domain.Server) error {
	r.publish()
	return r.ServerRepository.Update(ctx, server)
}

func TestUpdateRacingPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")

	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	racing := NewServerService(&publishDuringUpdate{
		ServerRepository: f.store.Servers(),
		publish: func() {
			if _, err := f.servers.SetPublished(ctx, owner, srv.ID, true); err != nil {
				t.Fatalf("publish failed: %v", err)
			}
		},
	}, nil, nil, nil)

	updated, err := racing.Update(ctx, owner, srv.ID, ServerPatch{Name: strPtr("Blockworld")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.Published {
		t.Fatal("a stale update must not unpublish the server")
	}
	stored, err := f.servers.Get(ctx, owner, srv.ID)
	if err != nil || !stored.Published || stored.Name != "Blockworld" {
		t.Fatalf("unexpected stored server: %+v %v", stored, err)
	}

	other, err := f.servers.Create(ctx, owner, ServerInput{Name: "Other", Subdomain: "otherville"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	racing = NewServerService(&publishDuringUpdate{
		ServerRepository: f.store.Servers(),
		publish: func() {
			if _, err := f.servers.SetPublished(ctx, owner, other.ID, true); err != nil {
				t.Fatalf("publish failed: %v", err)
			}
		},
	}, nil, nil, nil)

	_, err = racing.Update(ctx, owner, other.ID, ServerPatch{Subdomain: strPtr("renamed")})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "subdomain" {
		t.Fatalf("expected rename racing a publish to be refused, got %v", err)
	}
}

func TestDeleteServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")
	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.servers.Delete(ctx, owner, srv.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.servers.Get(ctx, owner, srv.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
