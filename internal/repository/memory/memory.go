// Package memory provides in-process repositories for DATABASE_URL=memory
// and for tests. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

// Store holds users, servers and sections behind one lock so that server
// deletes cascade to sections like the SQL schema does.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	servers  map[string]domain.Server
	sections map[string]domain.Section
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    map[string]domain.User{},
		servers:  map[string]domain.Server{},
		sections: map[string]domain.Section{},
		now:      time.Now,
	}
}

// SetClock replaces the time source, for deterministic ordering in tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns a domain.UserRepository backed by s
func (s *Store) Users() *UserRepository { return &UserRepository{s} }

// Servers returns a domain.ServerRepository backed by s
func (s *Store) Servers() *ServerRepository { return &ServerRepository{s} }

// Sections returns a domain.SectionRepository backed by s
func (s *Store) Sections() *SectionRepository { return &SectionRepository{s} }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, domain.ErrConflict)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

type ServerRepository struct{ s *Store }

func (r *ServerRepository) Create(_ context.Context, server *domain.Server) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[server.OwnerID]; !ok {
		return fmt.Errorf("owner %s: %w", server.OwnerID, domain.ErrNotFound)
	}
	if r.subdomainTaken(server.Subdomain, "") {
		return fmt.Errorf("subdomain %s: %w", server.Subdomain, domain.ErrConflict)
	}
	server.ID = uuid.NewString()
	server.CreatedAt = r.s.now()
	server.UpdatedAt = server.CreatedAt
	if server.Published {
		at := server.CreatedAt
		server.FirstPublishedAt = &at
	}
	r.s.servers[server.ID] = *server
	return nil
}

func (r *ServerRepository) GetByID(_ context.Context, id string) (*domain.Server, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	srv, ok := r.s.servers[id]
	if !ok {
		return nil, fmt.Errorf("server %s: %w", id, domain.ErrNotFound)
	}
	return &srv, nil
}

func (r *ServerRepository) GetBySubdomain(_ context.Context, subdomain string) (*domain.Server, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, srv := range r.s.servers {
		if srv.Subdomain == subdomain {
			return &srv, nil
		}
	}
	return nil, fmt.Errorf("server %s: %w", subdomain, domain.ErrNotFound)
}

func (r *ServerRepository) FindPublishedBySubdomain(_ context.Context, subdomain string) (*domain.Server, []*domain.Section, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, srv := range r.s.servers {
		if srv.Subdomain != subdomain || !srv.Published {
			continue
		}
		sections := r.s.sectionsOf(srv.ID, true)
		return &srv, sections, nil
	}
	return nil, nil, fmt.Errorf("server %s: %w", subdomain, domain.ErrNotFound)
}

func (r *ServerRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Server, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Server, 0)
	for _, srv := range r.s.servers {
		if srv.OwnerID == ownerID {
			out = append(out, &srv)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Server) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *ServerRepository) CountServers(context.Context) (total, published int, err error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, srv := range r.s.servers {
		if srv.Published {
			published++
		}
	}
	return len(r.s.servers), published, nil
}

// Update keeps the stored publication state, like the SQL repository
func (r *ServerRepository) Update(_ context.Context, server *domain.Server) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.servers[server.ID]
	if !ok {
		return fmt.Errorf("server %s: %w", server.ID, domain.ErrNotFound)
	}
	if cur.SubdomainLocked() && cur.Subdomain != server.Subdomain {
		return fmt.Errorf("server %s: %w", server.ID, domain.ErrSubdomainLocked)
	}
	if r.subdomainTaken(server.Subdomain, server.ID) {
		return fmt.Errorf("subdomain %s: %w", server.Subdomain, domain.ErrConflict)
	}
	server.Published = cur.Published
	server.FirstPublishedAt = cur.FirstPublishedAt
	server.UpdatedAt = r.s.now()
	r.s.servers[server.ID] = *server
	return nil
}

func (r *ServerRepository) SetPublished(_ context.Context, server *domain.Server) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.servers[server.ID]
	if !ok {
		return fmt.Errorf("server %s: %w", server.ID, domain.ErrNotFound)
	}
	now := r.s.now()
	cur.Published = server.Published
	if cur.Published && cur.FirstPublishedAt == nil {
		cur.FirstPublishedAt = &now
	}
	cur.UpdatedAt = now
	r.s.servers[server.ID] = cur
	*server = cur
	return nil
}

func (r *ServerRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.servers[id]; !ok {
		return fmt.Errorf("server %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.servers, id)
	maps.DeleteFunc(r.s.sections, func(_ string, sec domain.Section) bool {
		return sec.ServerID == id
	})
	return nil
}

// caller holds the lock
func (r *ServerRepository) subdomainTaken(subdomain, selfID string) bool {
	for _, srv := range r.s.servers {
		if srv.Subdomain == subdomain && srv.ID != selfID {
			return true
		}
	}
	return false
}

type SectionRepository struct{ s *Store }

func (r *SectionRepository) ListByServer(_ context.Context, serverID string) ([]*domain.Section, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sectionsOf(serverID, false), nil
}

func (r *SectionRepository) GetByID(_ context.Context, id string) (*domain.Section, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sec, ok := r.s.sections[id]
	if !ok {
		return nil, fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
	}
	return cloneSection(sec), nil
}

func (r *SectionRepository) Create(_ context.Context, section *domain.Section) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.servers[section.ServerID]; !ok {
		return fmt.Errorf("server %s: %w", section.ServerID, domain.ErrNotFound)
	}
	section.ID = uuid.NewString()
	section.CreatedAt = r.s.now()
	section.UpdatedAt = section.CreatedAt
	r.s.sections[section.ID] = *cloneSection(*section)
	return nil
}

func (r *SectionRepository) Update(_ context.Context, section *domain.Section) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sections[section.ID]; !ok {
		return fmt.Errorf("section %s: %w", section.ID, domain.ErrNotFound)
	}
	section.UpdatedAt = r.s.now()
	r.s.sections[section.ID] = *cloneSection(*section)
	return nil
}

func (r *SectionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sections[id]; !ok {
		return fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
	}
	delete(r.s.sections, id)
	return nil
}

func (r *SectionRepository) Reorder(_ context.Context, serverID string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		sec, ok := r.s.sections[id]
		if !ok || sec.ServerID != serverID {
			return fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
		}
	}
	now := r.s.now()
	for i, id := range ids {
		sec := r.s.sections[id]
		sec.Order = i
		sec.UpdatedAt = now
		r.s.sections[id] = sec
	}
	return nil
}

// sectionsOf returns the sections of serverID in display order. Caller holds the lock.
func (s *Store) sectionsOf(serverID string, visibleOnly bool) []*domain.Section {
	out := make([]*domain.Section, 0)
	for _, sec := range s.sections {
		if sec.ServerID != serverID || (visibleOnly && !sec.Visible) {
			continue
		}
		out = append(out, cloneSection(sec))
	}
	slices.SortFunc(out, func(a, b *domain.Section) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func cloneSection(sec domain.Section) *domain.Section {
	sec.Settings = maps.Clone(sec.Settings)
	return &sec
}
