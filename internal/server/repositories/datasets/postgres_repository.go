package datasets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements dataset storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save upserts on (subject_id, source_key). On conflict the existing id and
// created_at are kept and returned.
func (r *PostgresRepository) Save(ctx context.Context, d *models.Dataset) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	columns, err := json.Marshal(nonNil(d.Columns))
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	rows, err := json.Marshal(nonNilRows(d.Rows))
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}

	query := `
		INSERT INTO datasets (id, subject_id, source, source_key, name, file_id, sheet_id, tab_id, storage_key, size_bytes, mime_type, columns, rows, row_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		ON CONFLICT (subject_id, source_key)
		DO UPDATE SET
			name = EXCLUDED.name,
			storage_key = EXCLUDED.storage_key,
			size_bytes = EXCLUDED.size_bytes,
			mime_type = EXCLUDED.mime_type,
			columns = EXCLUDED.columns,
			rows = EXCLUDED.rows,
			row_count = EXCLUDED.row_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		d.ID, d.SubjectID, string(d.Source), d.SourceKey, d.Name,
		nullString(d.FileID), nullString(d.SheetID), nullString(d.TabID), nullString(d.StorageKey),
		d.SizeBytes, nullString(d.MimeType), columns, rows, d.RowCount, time.Now(),
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Dataset, error) {
	query := `
		SELECT id, subject_id, source, source_key, name, file_id, sheet_id, tab_id, storage_key, size_bytes, mime_type, columns, rows, row_count, created_at, updated_at
		FROM datasets
		WHERE id = $1
	`
	var (
		d                                            models.Dataset
		source                                       string
		fileID, sheetID, tabID, storageKey, mimeType sql.NullString
		columns, rows                                []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.SubjectID, &source, &d.SourceKey, &d.Name,
		&fileID, &sheetID, &tabID, &storageKey, &d.SizeBytes, &mimeType,
		&columns, &rows, &d.RowCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	d.Source = models.DatasetSource(source)
	d.FileID, d.SheetID, d.TabID = fileID.String, sheetID.String, tabID.String
	d.StorageKey, d.MimeType = storageKey.String, mimeType.String

	if err := json.Unmarshal(columns, &d.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}
	if err := json.Unmarshal(rows, &d.Rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRows(r [][]string) [][]string {
	if r == nil {
		return [][]string{}
	}
	return r
}
