package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/blogem/content-api/jsondoc"
	"github.com/blogem/content-api/models"
)

// DefinitionRepository interface defines dynamic endpoint database operations
type DefinitionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Definition, error)
	GetActiveByRoute(ctx context.Context, path, method string) (*models.Definition, error)
	ExistsRoute(ctx context.Context, path, method string, excludeID int64) (bool, error)
	List(ctx context.Context, filter models.DefinitionFilter) ([]models.Definition, int, error)
	Create(ctx context.Context, def *models.Definition) error
	Update(ctx context.Context, def *models.Definition) error
	UpdateContent(ctx context.Context, id int64, content any) (time.Time, error)
	Delete(ctx context.Context, id int64) error
}

// definitionRepository implements DefinitionRepository interface
type definitionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDefinitionRepository creates a new definition repository
func NewDefinitionRepository(db *sql.DB) DefinitionRepository {
	return &definitionRepository{db: db, now: time.Now}
}

const definitionColumns = `id, name, path, method, requires_auth, content, description, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*models.Definition, error) {
	var def models.Definition
	var content string
	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Path,
		&def.Method,
		&def.RequiresAuth,
		&content,
		&def.Description,
		&def.Status,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Content, err = jsondoc.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("definition %d has corrupt content: %w", def.ID, err)
	}
	return &def, nil
}

// GetByID retrieves a definition with its content
func (r *definitionRepository) GetByID(ctx context.Context, id int64) (*models.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM custom_apis WHERE id = ?`

	def, err := scanDefinition(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("definition %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get definition: %w", err)
	}
	return def, nil
}

// GetActiveByRoute retrieves the active definition registered for (path, method)
func (r *definitionRepository) GetActiveByRoute(ctx context.Context, path, method string) (*models.Definition, error) {
	query := `SELECT ` + definitionColumns + `
		FROM custom_apis
		WHERE path = ? AND method = ? AND status = ?`

	def, err := scanDefinition(r.db.QueryRowContext(ctx, query, path, method, models.StatusActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route %s %s: %w", method, path, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to match definition: %w", err)
	}
	return def, nil
}

// ExistsRoute reports whether any definition other than excludeID, whatever
// its status, is registered for (path, method).
func (r *definitionRepository) ExistsRoute(ctx context.Context, path, method string, excludeID int64) (bool, error) {
	query := `SELECT COUNT(*) FROM custom_apis WHERE path = ? AND method = ? AND id != ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, path, method, excludeID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check route: %w", err)
	}
	return count > 0, nil
}

// List returns one page of definitions, newest first, without content.
func (r *definitionRepository) List(ctx context.Context, filter models.DefinitionFilter) ([]models.Definition, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Method != "" {
		where = append(where, "method = ?")
		args = append(args, models.NormalizeMethod(filter.Method))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_apis`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count definitions: %w", err)
	}

	query := `
		SELECT id, name, path, method, requires_auth, description, status, created_at, updated_at
		FROM custom_apis` + clause + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer rows.Close()

	defs := []models.Definition{}
	for rows.Next() {
		var def models.Definition
		err := rows.Scan(
			&def.ID,
			&def.Name,
			&def.Path,
			&def.Method,
			&def.RequiresAuth,
			&def.Description,
			&def.Status,
			&def.CreatedAt,
			&def.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan definition: %w", err)
		}
		defs = append(defs, def)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating definitions: %w", err)
	}

	return defs, total, nil
}

// Create inserts a new definition and sets its ID and timestamps
func (r *definitionRepository) Create(ctx context.Context, def *models.Definition) error {
	query := `
		INSERT INTO custom_apis (name, path, method, requires_auth, content, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		def.Name,
		def.Path,
		def.Method,
		def.RequiresAuth,
		jsondoc.Canonical(def.Content),
		def.Description,
		def.Status,
		now,
		now,
	)
	if err != nil {
		return mapWriteError("failed to create definition", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get definition ID: %w", err)
	}

	def.ID = id
	def.CreatedAt = now
	def.UpdatedAt = now
	return nil
}

// Update rewrites every mutable column of def
func (r *definitionRepository) Update(ctx context.Context, def *models.Definition) error {
	query := `
		UPDATE custom_apis
		SET name = ?, path = ?, method = ?, requires_auth = ?, content = ?,
		    description = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		def.Name,
		def.Path,
		def.Method,
		def.RequiresAuth,
		jsondoc.Canonical(def.Content),
		def.Description,
		def.Status,
		now,
		def.ID,
	)
	if err != nil {
		return mapWriteError("failed to update definition", err)
	}
	if err := expectOneRow(result, def.ID); err != nil {
		return err
	}

	def.UpdatedAt = now
	return nil
}

// UpdateContent replaces the stored document and refreshes updated_at.
// Concurrent writers are not serialized; the last write wins.
func (r *definitionRepository) UpdateContent(ctx context.Context, id int64, content any) (time.Time, error) {
	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE custom_apis SET content = ?, updated_at = ? WHERE id = ?`,
		jsondoc.Canonical(content), now, id,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update content: %w", err)
	}
	if err := expectOneRow(result, id); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

// Delete removes a definition. Its audit records are kept.
func (r *definitionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM custom_apis WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete definition: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("definition %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// mapWriteError turns a UNIQUE(path, method) violation into models.ErrConflict.
func mapWriteError(msg string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w", msg, models.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
