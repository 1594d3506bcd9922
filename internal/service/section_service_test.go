package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

func TestSectionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")
	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create server failed: %v", err)
	}

	hero, err := f.sections.Create(ctx, owner, srv.ID, SectionInput{Type: "hero", Title: "Welcome"})
	if err != nil {
		t.Fatalf("create hero failed: %v", err)
	}
	stats, err := f.sections.Create(ctx, owner, srv.ID, SectionInput{Type: "stats"})
	if err != nil {
		t.Fatalf("create stats failed: %v", err)
	}
	if !hero.Visible || hero.Order != 0 || stats.Order != 1 {
		t.Fatalf("expected appended visible sections, got hero=%+v stats=%+v", hero, stats)
	}

	hidden := false
	updated, err := f.sections.Update(ctx, owner, srv.ID, hero.ID, SectionPatch{Visible: &hidden, Settings: map[string]any{"showAddress": false}})
	if err != nil || updated.Visible || updated.Settings["showAddress"] != false {
		t.Fatalf("unexpected update result: %+v %v", updated, err)
	}

	reordered, err := f.sections.Reorder(ctx, owner, srv.ID, []string{stats.ID, hero.ID})
	if err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	if reordered[0].ID != stats.ID || reordered[1].ID != hero.ID {
		t.Fatalf("unexpected order after reorder: %s, %s", reordered[0].Type, reordered[1].Type)
	}

	if err := f.sections.Delete(ctx, owner, srv.ID, hero.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	list, err := f.sections.List(ctx, owner, srv.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one section left, got %d (%v)", len(list), err)
	}
}

func TestSectionValidationRunsBeforeLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")

	_, err := f.sections.Create(ctx, owner, "00000000-0000-0000-0000-000000000000", SectionInput{Type: "Hero Banner!"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "type" {
		t.Fatalf("expected type validation error, got %v", err)
	}
}

func TestReorderRejectsBadLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")
	srv, err := f.servers.Create(ctx, owner, ServerInput{Name: "Blockville", Subdomain: "blockville"})
	if err != nil {
		t.Fatalf("create server failed: %v", err)
	}
	a, _ := f.sections.Create(ctx, owner, srv.ID, SectionInput{Type: "hero"})
	if _, err := f.sections.Create(ctx, owner, srv.ID, SectionInput{Type: "stats"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for name, ids := range map[string][]string{
		"empty":     nil,
		"duplicate": {a.ID, a.ID},
		"partial":   {a.ID},
		"foreign":   {a.ID, "11111111-1111-1111-1111-111111111111"},
	} {
		t.Run(name, func(t *testing.T) {
			var verr *domain.ValidationError
			if _, err := f.sections.Reorder(ctx, owner, srv.ID, ids); !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSectionOfOtherServerIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com")
	one, _ := f.servers.Create(ctx, owner, ServerInput{Name: "One", Subdomain: "server-one"})
	two, _ := f.servers.Create(ctx, owner, ServerInput{Name: "Two", Subdomain: "server-two"})
	sec, err := f.sections.Create(ctx, owner, one.ID, SectionInput{Type: "hero"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.sections.Delete(ctx, owner, two.ID, sec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found across servers, got %v", err)
	}
}

func TestSectionNonOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")
	srv, _ := f.servers.Create(ctx, alice, ServerInput{Name: "A", Subdomain: "alpha"})

	if _, err := f.sections.List(ctx, bob, srv.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
