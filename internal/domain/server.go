package domain

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Server is a user-owned tenant addressable by a unique subdomain
type Server struct {
	ID          string // UUID
	OwnerID     string // UUID of the owning user
	Name        string
	Subdomain   string // Unique, lowercase
	Description string
	Address     string // Optional host players connect to
	Port        int    // 0 when unset
	Published   bool

	// FirstPublishedAt is set by the first publish and never cleared. The
	// subdomain is immutable from then on.
	FirstPublishedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SubdomainLocked reports whether the server has ever been published
func (s *Server) SubdomainLocked() bool {
	return s.FirstPublishedAt != nil
}

// Endpoint returns the address with the port appended when one is set.
func (s *Server) Endpoint() string {
	if s.Address == "" {
		return ""
	}
	if s.Port == 0 {
		return s.Address
	}
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// Section is an ordered, typed content block belonging to a server
type Section struct {
	ID        string
	ServerID  string
	Type      string // hero, stats, features, gallery; other values are stored but not rendered
	Title     string
	Subtitle  string
	Settings  map[string]any
	Visible   bool
	Order     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServerRepository defines data access for servers
type ServerRepository interface {
	Create(ctx context.Context, server *Server) error
	GetByID(ctx context.Context, id string) (*Server, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*Server, error)
	// FindPublishedBySubdomain returns the published server and its visible
	// sections ordered by Order ascending.
	FindPublishedBySubdomain(ctx context.Context, subdomain string) (*Server, []*Section, error)
	// ListByOwner returns the owner's servers, most recently updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Server, error)
	// Update writes the profile fields. Publication state is left untouched
	// and a locked subdomain yields ErrSubdomainLocked.
	Update(ctx context.Context, server *Server) error
	// SetPublished writes server.Published and stamps FirstPublishedAt on
	// the first publish.
	SetPublished(ctx context.Context, server *Server) error
	Delete(ctx context.Context, id string) error
}

// SectionRepository defines data access for sections
type SectionRepository interface {
	ListByServer(ctx context.Context, serverID string) ([]*Section, error)
	GetByID(ctx context.Context, id string) (*Section, error)
	Create(ctx context.Context, section *Section) error
	Update(ctx context.Context, section *Section) error
	Delete(ctx context.Context, id string) error
	// Reorder assigns Order = index for each id, all within serverID.
	Reorder(ctx context.Context, serverID string, ids []string) error
}
