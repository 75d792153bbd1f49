package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devprep-hub/devprep-engine/internal/domain/learningpath"
	"github.com/devprep-hub/devprep-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING PATH REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PathRepository implements learningpath.Repository for PostgreSQL.
// Path documents are validated on load so an invalid definition never
// reaches DeriveProgress.
type PathRepository struct {
	conn *Connection
}

// NewPathRepository creates a new PathRepository.
func NewPathRepository(conn *Connection) *PathRepository {
	return &PathRepository{conn: conn}
}

// GetPath returns a path definition.
func (r *PathRepository) GetPath(ctx context.Context, id string) (*learningpath.Path, error) {
	query := `SELECT doc FROM learning_paths WHERE id = $1`

	var docJSON []byte
	err := r.conn.QueryRow(ctx, query, id).Scan(&docJSON)
	if IsNoRows(err) {
		return nil, shared.ErrPathNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load learning path: %w", err)
	}

	return decodePath(docJSON)
}

// ListPaths returns all published paths.
func (r *PathRepository) ListPaths(ctx context.Context) ([]*learningpath.Path, error) {
	query := `SELECT doc FROM learning_paths ORDER BY id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list learning paths: %w", err)
	}
	defer rows.Close()

	var paths []*learningpath.Path
	for rows.Next() {
		var docJSON []byte
		if err := rows.Scan(&docJSON); err != nil {
			return nil, fmt.Errorf("failed to scan learning path row: %w", err)
		}

		path, err := decodePath(docJSON)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// SavePath persists a path definition, replacing any existing one.
func (r *PathRepository) SavePath(ctx context.Context, path *learningpath.Path) error {
	if err := path.Validate(); err != nil {
		return err
	}

	docJSON, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("failed to encode learning path: %w", err)
	}

	query := `
		INSERT INTO learning_paths (id, title, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, doc = EXCLUDED.doc
	`
	_, err = r.conn.Exec(ctx, query, path.ID, path.Title, docJSON)
	if err != nil {
		return fmt.Errorf("failed to save learning path: %w", err)
	}

	return nil
}

func decodePath(docJSON []byte) (*learningpath.Path, error) {
	var path learningpath.Path
	if err := json.Unmarshal(docJSON, &path); err != nil {
		return nil, fmt.Errorf("failed to decode learning path: %w", err)
	}
	if err := path.Validate(); err != nil {
		return nil, fmt.Errorf("stored learning path %s is invalid: %w", path.ID, err)
	}
	return &path, nil
}
