package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/serverhub/internal/domain"
)

const sectionColumns = `id, server_id, type, title, subtitle, settings, visible, sort_order, created_at, updated_at`

// PostgresSectionRepository implements domain.SectionRepository using PostgreSQL
type PostgresSectionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSectionRepository creates a new section repository
func NewPostgresSectionRepository(db *sql.DB, logger *slog.Logger) *PostgresSectionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSectionRepository{db: db, logger: logger}
}

// ListByServer returns all sections of a server, hidden ones included, in display order
func (r *PostgresSectionRepository) ListByServer(ctx context.Context, serverID string) ([]*domain.Section, error) {
	query := `
		SELECT ` + sectionColumns + `
		FROM sections
		WHERE server_id = $1
		ORDER BY sort_order ASC, created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()
	return scanSections(rows, r.logger)
}

// GetByID retrieves a section by ID
func (r *PostgresSectionRepository) GetByID(ctx context.Context, id string) (*domain.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1`
	s, err := scanSection(r.db.QueryRowContext(ctx, query, id), r.logger)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	return s, nil
}

// Create creates a new section
func (r *PostgresSectionRepository) Create(ctx context.Context, section *domain.Section) error {
	settings, err := encodeSettings(section.Settings)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sections (server_id, type, title, subtitle, settings, visible, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		section.ServerID,
		section.Type,
		section.Title,
		section.Subtitle,
		settings,
		section.Visible,
		section.Order,
	).Scan(&section.ID, &section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create section",
			slog.String("server_id", section.ServerID),
			slog.String("type", section.Type),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

// Update writes every mutable column and refreshes UpdatedAt
func (r *PostgresSectionRepository) Update(ctx context.Context, section *domain.Section) error {
	settings, err := encodeSettings(section.Settings)
	if err != nil {
		return err
	}
	query := `
		UPDATE sections
		SET type = $1, title = $2, subtitle = $3, settings = $4, visible = $5,
			sort_order = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		section.Type,
		section.Title,
		section.Subtitle,
		settings,
		section.Visible,
		section.Order,
		section.ID,
	).Scan(&section.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("section %s: %w", section.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update section: %w", err)
	}
	return nil
}

// Delete removes a section
func (r *PostgresSectionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Reorder sets sort_order to each id's index in a single statement.
// Every id must belong to serverID, otherwise nothing changes.
func (r *PostgresSectionRepository) Reorder(ctx context.Context, serverID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE sections AS s
		SET sort_order = o.ord - 1, updated_at = now()
		FROM unnest($1::uuid[]) WITH ORDINALITY AS o(id, ord)
		WHERE s.id = o.id AND s.server_id = $2
	`
	res, err := tx.ExecContext(ctx, query, pq.Array(ids), serverID)
	if err != nil {
		return fmt.Errorf("failed to reorder sections: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows != int64(len(ids)) {
		return fmt.Errorf("reorder matched %d of %d sections: %w", rows, len(ids), domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

func encodeSettings(settings map[string]any) ([]byte, error) {
	if settings == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode section settings: %w", err)
	}
	return b, nil
}

func scanSection(row rowScanner, logger *slog.Logger) (*domain.Section, error) {
	s := &domain.Section{}
	var settings []byte
	err := row.Scan(
		&s.ID,
		&s.ServerID,
		&s.Type,
		&s.Title,
		&s.Subtitle,
		&settings,
		&s.Visible,
		&s.Order,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &s.Settings); err != nil {
			// Renderers default missing fields, so a broken payload degrades
			// to an empty one instead of failing the whole page.
			logger.Warn("ignoring malformed section settings",
				slog.String("section_id", s.ID),
				slog.String("error", err.Error()),
			)
			s.Settings = nil
		}
	}
	return s, nil
}

func scanSections(rows *sql.Rows, logger *slog.Logger) ([]*domain.Section, error) {
	out := []*domain.Section{}
	for rows.Next() {
		s, err := scanSection(rows, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
