package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blogem/content-api/models"
)

// AuditRepository handles audit record persistence. Records are append-only:
// they are inserted, listed, and pruned whole, never edited.
type AuditRepository interface {
	Create(ctx context.Context, rec *models.AuditRecord) error
	ListByDefinition(ctx context.Context, apiID int64, paging models.Paging) ([]models.AuditRecord, int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type sqliteAuditRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &sqliteAuditRepository{db: db, now: time.Now}
}

// Create inserts a new audit record
func (r *sqliteAuditRepository) Create(ctx context.Context, rec *models.AuditRecord) error {
	query := `
		INSERT INTO custom_api_logs (
			api_id, request_id, request_method, request_path, request_headers, request_query,
			request_body, response_status, response_body, response_time_ms, ip_address,
			user_agent, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	result, err := r.db.ExecContext(ctx, query,
		rec.DefinitionID,
		rec.RequestID,
		rec.RequestMethod,
		rec.RequestPath,
		rec.RequestHeaders,
		rec.RequestQuery,
		rec.RequestBody,
		rec.ResponseStatus,
		rec.ResponseBody,
		rec.ResponseTimeMs,
		rec.IPAddress,
		rec.UserAgent,
		rec.ErrorMessage,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit record ID: %w", err)
	}
	return nil
}

// ListByDefinition returns one page of a definition's audit records, newest first.
func (r *sqliteAuditRepository) ListByDefinition(ctx context.Context, apiID int64, paging models.Paging) ([]models.AuditRecord, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_api_logs WHERE api_id = ?`, apiID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	query := `
		SELECT id, api_id, request_id, request_method, request_path, request_headers, request_query,
		       request_body, response_status, response_body, response_time_ms, ip_address,
		       user_agent, error_message, created_at
		FROM custom_api_logs
		WHERE api_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, apiID, paging.Limit, paging.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	records := []models.AuditRecord{}
	for rows.Next() {
		var rec models.AuditRecord
		err := rows.Scan(
			&rec.ID,
			&rec.DefinitionID,
			&rec.RequestID,
			&rec.RequestMethod,
			&rec.RequestPath,
			&rec.RequestHeaders,
			&rec.RequestQuery,
			&rec.RequestBody,
			&rec.ResponseStatus,
			&rec.ResponseBody,
			&rec.ResponseTimeMs,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.ErrorMessage,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit record: %w", err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit records: %w", err)
	}

	return records, total, nil
}

// DeleteOlderThan prunes every record created before cutoff.
func (r *sqliteAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM custom_api_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}
	return result.RowsAffected()
}
