package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
	"github.com/aryan0dhankhar/serverhub/internal/reliability/circuitbreaker"
)

type failingServerRepo struct {
	domain.ServerRepository
	calls int
}

func (r *failingServerRepo) FindPublishedBySubdomain(context.Context, string) (*domain.Server, []*domain.Section, error) {
	r.calls++
	return nil, nil, errors.New("connection refused")
}

func TestPublishedPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")
	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville", Address: "play.blockville.net"})
	if err != nil {
		t.Fatalf("create server failed: %v", err)
	}
	order := func(n int) *int { return &n }
	hidden := false
	mustSection := func(in SectionInput) {
		t.Helper()
		if _, err := f.sections.Create(ctx, owner, srv.ID, in); err != nil {
			t.Fatalf("create section failed: %v", err)
		}
	}
	mustSection(SectionInput{Type: "stats", Order: order(2)})
	mustSection(SectionInput{Type: "carousel", Order: order(0)})
	mustSection(SectionInput{Type: "hero", Order: order(1)})
	mustSection(SectionInput{Type: "gallery", Order: order(3), Visible: &hidden})

	pages := NewPageService(f.store.Servers(), nil, nil, nil)

	if _, err := pages.Published(ctx, "blockville"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found while unpublished, got %v", err)
	}

	if _, err := f.servers.SetPublished(ctx, owner, srv.ID, true); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	page, err := pages.Published(ctx, "BlockVille")
	if err != nil {
		t.Fatalf("expected page, got %v", err)
	}
	if page.Tenant.Endpoint != "play.blockville.net" {
		t.Fatalf("unexpected tenant: %+v", page.Tenant)
	}
	if len(page.Blocks) != 2 || page.Blocks[0].Type != "hero" || page.Blocks[1].Type != "stats" {
		t.Fatalf("expected hero then stats, got %+v", page.Blocks)
	}

	if _, err := pages.Published(ctx, "www"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for invalid subdomain, got %v", err)
	}
}

func TestPublishedPageBreakerOpens(t *testing.T) {
	repo := &failingServerRepo{}
	breaker := circuitbreaker.NewCircuitBreaker(2, 1, time.Minute)
	pages := NewPageService(repo, nil, breaker, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := pages.Published(ctx, "blockville")
		if err == nil || errors.Is(err, domain.ErrUnavailable) {
			t.Fatalf("attempt %d: expected raw failure, got %v", i, err)
		}
	}

	if _, err := pages.Published(ctx, "blockville"); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable once the breaker is open, got %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("expected the open breaker to skip the repository, got %d calls", repo.calls)
	}
	if pages.BreakerState() != circuitbreaker.StateOpen {
		t.Fatalf("expected open state, got %s", pages.BreakerState())
	}
}
