package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

func steppingClock() func() time.Time {
	t := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func seedOwner(t *testing.T, s *Store) *domain.User {
	t.Helper()
	u := &domain.User{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUserEmailUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedOwner(t, s)

	err := s.Users().Create(ctx, &domain.User{Email: "owner@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindPublishedOnlyVisibleInOrder(t *testing.T) {
	s := NewStore()
	s.SetClock(steppingClock())
	ctx := context.Background()
	owner := seedOwner(t, s)

	srv := &domain.Server{OwnerID: owner.ID, Name: "Blockville", Subdomain: "blockville"}
	require.NoError(t, s.Servers().Create(ctx, srv))

	for _, sec := range []*domain.Section{
		{ServerID: srv.ID, Type: "stats", Order: 2, Visible: true},
		{ServerID: srv.ID, Type: "hero", Order: 0, Visible: true},
		{ServerID: srv.ID, Type: "gallery", Order: 1, Visible: false},
	} {
		require.NoError(t, s.Sections().Create(ctx, sec))
	}

	_, _, err := s.Servers().FindPublishedBySubdomain(ctx, "blockville")
	assert.ErrorIs(t, err, domain.ErrNotFound, "unpublished servers are not found")

	srv.Published = true
	require.NoError(t, s.Servers().SetPublished(ctx, srv))

	got, sections, err := s.Servers().FindPublishedBySubdomain(ctx, "blockville")
	require.NoError(t, err)
	assert.Equal(t, srv.ID, got.ID)
	require.Len(t, sections, 2)
	assert.Equal(t, "hero", sections[0].Type)
	assert.Equal(t, "stats", sections[1].Type)
}

func TestListByOwnerMostRecentFirst(t *testing.T) {
	s := NewStore()
	s.SetClock(steppingClock())
	ctx := context.Background()
	owner := seedOwner(t, s)

	a := &domain.Server{OwnerID: owner.ID, Name: "A", Subdomain: "alpha"}
	b := &domain.Server{OwnerID: owner.ID, Name: "B", Subdomain: "bravo"}
	require.NoError(t, s.Servers().Create(ctx, a))
	require.NoError(t, s.Servers().Create(ctx, b))
	require.NoError(t, s.Servers().Update(ctx, a))

	list, err := s.Servers().ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Subdomain)

	empty, err := s.Servers().ListByOwner(ctx, "someone-else")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdateKeepsPublicationState(t *testing.T) {
	s := NewStore()
	s.SetClock(steppingClock())
	ctx := context.Background()
	owner := seedOwner(t, s)

	srv := &domain.Server{OwnerID: owner.ID, Name: "Blockville", Subdomain: "blockville"}
	require.NoError(t, s.Servers().Create(ctx, srv))
	stale := *srv

	srv.Published = true
	require.NoError(t, s.Servers().SetPublished(ctx, srv))
	require.NotNil(t, srv.FirstPublishedAt)

	stale.Name = "Blockville 2"
	require.NoError(t, s.Servers().Update(ctx, &stale))
	assert.True(t, stale.Published, "a stale copy must not unpublish")

	got, err := s.Servers().GetByID(ctx, srv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blockville 2", got.Name)
	assert.True(t, got.Published)
}

func TestSubdomainLockedAfterFirstPublish(t *testing.T) {
	s := NewStore()
	s.SetClock(steppingClock())
	ctx := context.Background()
	owner := seedOwner(t, s)

	srv := &domain.Server{OwnerID: owner.ID, Name: "Blockville", Subdomain: "blockville"}
	require.NoError(t, s.Servers().Create(ctx, srv))

	srv.Published = true
	require.NoError(t, s.Servers().SetPublished(ctx, srv))
	first := *srv.FirstPublishedAt
	srv.Published = false
	require.NoError(t, s.Servers().SetPublished(ctx, srv))
	require.NotNil(t, srv.FirstPublishedAt)
	assert.Equal(t, first, *srv.FirstPublishedAt, "unpublishing keeps the first publish time")

	srv.Subdomain = "elsewhere"
	err := s.Servers().Update(ctx, srv)
	assert.ErrorIs(t, err, domain.ErrSubdomainLocked)

	got, err := s.Servers().GetByID(ctx, srv.ID)
	require.NoError(t, err)
	assert.Equal(t, "blockville", got.Subdomain)
}

func TestDeleteServerCascadesSections(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := seedOwner(t, s)
	srv := &domain.Server{OwnerID: owner.ID, Name: "A", Subdomain: "alpha"}
	require.NoError(t, s.Servers().Create(ctx, srv))
	sec := &domain.Section{ServerID: srv.ID, Type: "hero", Visible: true}
	require.NoError(t, s.Sections().Create(ctx, sec))

	require.NoError(t, s.Servers().Delete(ctx, srv.ID))

	_, err := s.Sections().GetByID(ctx, sec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReorderRejectsForeignSections(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := seedOwner(t, s)
	a := &domain.Server{OwnerID: owner.ID, Name: "A", Subdomain: "alpha"}
	b := &domain.Server{OwnerID: owner.ID, Name: "B", Subdomain: "bravo"}
	require.NoError(t, s.Servers().Create(ctx, a))
	require.NoError(t, s.Servers().Create(ctx, b))
	mine := &domain.Section{ServerID: a.ID, Type: "hero"}
	theirs := &domain.Section{ServerID: b.ID, Type: "hero"}
	require.NoError(t, s.Sections().Create(ctx, mine))
	require.NoError(t, s.Sections().Create(ctx, theirs))

	err := s.Sections().Reorder(ctx, a.ID, []string{theirs.ID, mine.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.Sections().GetByID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Order)
}

func TestSettingsAreCopied(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	owner := seedOwner(t, s)
	srv := &domain.Server{OwnerID: owner.ID, Name: "A", Subdomain: "alpha"}
	require.NoError(t, s.Servers().Create(ctx, srv))
	sec := &domain.Section{ServerID: srv.ID, Type: "hero", Settings: map[string]any{"buttonText": "Join"}}
	require.NoError(t, s.Sections().Create(ctx, sec))

	sec.Settings["buttonText"] = "changed"

	got, err := s.Sections().GetByID(ctx, sec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Join", got.Settings["buttonText"])
}
