package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

const serverColumns = `id, owner_id, name, subdomain, description, address, port, published, first_published_at, created_at, updated_at`

// PostgresServerRepository implements domain.ServerRepository using PostgreSQL
type PostgresServerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresServerRepository creates a new server repository
func NewPostgresServerRepository(db *sql.DB, logger *slog.Logger) *PostgresServerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresServerRepository{db: db, logger: logger}
}

// Create creates a new server. A taken subdomain yields domain.ErrConflict.
func (r *PostgresServerRepository) Create(ctx context.Context, server *domain.Server) error {
	query := `
		INSERT INTO servers (owner_id, name, subdomain, description, address, port, published, first_published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $7 THEN now() END)
		RETURNING id, first_published_at, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		server.OwnerID,
		server.Name,
		server.Subdomain,
		server.Description,
		server.Address,
		server.Port,
		server.Published,
	).Scan(&server.ID, &server.FirstPublishedAt, &server.CreatedAt, &server.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subdomain %s: %w", server.Subdomain, domain.ErrConflict)
		}
		r.logger.Error("failed to create server",
			slog.String("owner_id", server.OwnerID),
			slog.String("subdomain", server.Subdomain),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create server: %w", err)
	}
	return nil
}

// GetByID retrieves a server by ID regardless of owner or published state
func (r *PostgresServerRepository) GetByID(ctx context.Context, id string) (*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1`
	s, err := scanServer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("server %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	return s, nil
}

// GetBySubdomain retrieves a server by subdomain regardless of published state
func (r *PostgresServerRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE subdomain = $1`
	s, err := scanServer(r.db.QueryRowContext(ctx, query, subdomain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("server %s: %w", subdomain, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get server by subdomain: %w", err)
	}
	return s, nil
}

// FindPublishedBySubdomain loads a published server with its visible sections.
// Filtering and ordering happen in SQL.
func (r *PostgresServerRepository) FindPublishedBySubdomain(ctx context.Context, subdomain string) (*domain.Server, []*domain.Section, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE subdomain = $1 AND published = true`
	s, err := scanServer(r.db.QueryRowContext(ctx, query, subdomain))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("published server %s: %w", subdomain, domain.ErrNotFound)
		}
		r.logger.Error("failed to find published server",
			slog.String("subdomain", subdomain),
			slog.String("error", err.Error()),
		)
		return nil, nil, fmt.Errorf("failed to find published server: %w", err)
	}

	sectionsQuery := `
		SELECT ` + sectionColumns + `
		FROM sections
		WHERE server_id = $1 AND visible = true
		ORDER BY sort_order ASC, created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, sectionsQuery, s.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list visible sections: %w", err)
	}
	defer rows.Close()

	sections, err := scanSections(rows, r.logger)
	if err != nil {
		return nil, nil, err
	}
	return s, sections, nil
}

// ListByOwner lists the owner's servers, most recently updated first
func (r *PostgresServerRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Server, error) {
	query := `
		SELECT ` + serverColumns + `
		FROM servers
		WHERE owner_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("failed to list servers by owner",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	out := []*domain.Server{}
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountServers returns the number of servers and how many of them are published
func (r *PostgresServerRepository) CountServers(ctx context.Context) (total, published int, err error) {
	query := `SELECT count(*), count(*) FILTER (WHERE published) FROM servers`
	if err := r.db.QueryRowContext(ctx, query).Scan(&total, &published); err != nil {
		return 0, 0, fmt.Errorf("failed to count servers: %w", err)
	}
	return total, published, nil
}

// Update writes the profile columns and refreshes UpdatedAt. Publication
// state is owned by SetPublished. A subdomain change on a server that has
// been published matches no row and yields domain.ErrSubdomainLocked.
func (r *PostgresServerRepository) Update(ctx context.Context, server *domain.Server) error {
	query := `
		UPDATE servers
		SET name = $1, subdomain = $2, description = $3, address = $4, port = $5, updated_at = now()
		WHERE id = $6 AND (subdomain = $2 OR first_published_at IS NULL)
		RETURNING published, first_published_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		server.Name,
		server.Subdomain,
		server.Description,
		server.Address,
		server.Port,
		server.ID,
	).Scan(&server.Published, &server.FirstPublishedAt, &server.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.updateMiss(ctx, server.ID)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("subdomain %s: %w", server.Subdomain, domain.ErrConflict)
		}
		return fmt.Errorf("failed to update server: %w", err)
	}
	return nil
}

// updateMiss tells a missing server apart from a locked subdomain
func (r *PostgresServerRepository) updateMiss(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM servers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to update server: %w", err)
	}
	if !exists {
		return fmt.Errorf("server %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("server %s: %w", id, domain.ErrSubdomainLocked)
}

// SetPublished writes the published flag. The first publish stamps
// first_published_at, which later unpublishes keep.
func (r *PostgresServerRepository) SetPublished(ctx context.Context, server *domain.Server) error {
	query := `
		UPDATE servers
		SET published = $1,
			first_published_at = CASE WHEN $1 THEN COALESCE(first_published_at, now()) ELSE first_published_at END,
			updated_at = now()
		WHERE id = $2
		RETURNING first_published_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, server.Published, server.ID).
		Scan(&server.FirstPublishedAt, &server.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("server %s: %w", server.ID, domain.ErrNotFound)
		}
		r.logger.Error("failed to set published",
			slog.String("server_id", server.ID),
			slog.Bool("published", server.Published),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to set published: %w", err)
	}
	return nil
}

// Delete removes a server; its sections go with it (ON DELETE CASCADE)
func (r *PostgresServerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("server %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanServer(row rowScanner) (*domain.Server, error) {
	s := &domain.Server{}
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Subdomain,
		&s.Description,
		&s.Address,
		&s.Port,
		&s.Published,
		&s.FirstPublishedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
