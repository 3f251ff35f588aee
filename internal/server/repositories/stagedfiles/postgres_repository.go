package stagedfiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// PostgresRepository implements staged-file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.UploadedFile) error {
	query := `
		INSERT INTO staged_files (file_id, subject_id, original_name, storage_path, size_bytes, declared_mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		file.FileID, file.SubjectID, file.OriginalName, file.StoragePath, file.SizeBytes, file.DeclaredMimeType, file.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, fileID string) (*models.UploadedFile, error) {
	query := `
		SELECT file_id, subject_id, original_name, storage_path, size_bytes, declared_mime_type, created_at, imported_at
		FROM staged_files
		WHERE file_id = $1
	`
	f := &models.UploadedFile{}
	var importedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(
		&f.FileID, &f.SubjectID, &f.OriginalName, &f.StoragePath, &f.SizeBytes, &f.DeclaredMimeType, &f.CreatedAt, &importedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if importedAt.Valid {
		f.ImportedAt = &importedAt.Time
	}
	return f, nil
}

// MarkImported sets imported_at. Exactly one row must be affected.
func (r *PostgresRepository) MarkImported(ctx context.Context, fileID string, at time.Time) error {
	query := `update staged_files set imported_at=$2 where file_id=$1`
	result, err := r.db.ExecContext(ctx, query, fileID, at)
	if err != nil {
		return fmt.Errorf("failed to mark imported: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *PostgresRepository) SelectStale(ctx context.Context, before time.Time) ([]*models.UploadedFile, error) {
	query := ` SELECT file_id, subject_id, storage_path, created_at from staged_files 
		WHERE imported_at IS NULL and created_at<$1
		`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to select staged files: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadedFile
	for rows.Next() {
		var item models.UploadedFile
		if err := rows.Scan(&item.FileID, &item.SubjectID, &item.StoragePath, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, fileID string) error {
	query := `
		DELETE FROM staged_files
		WHERE file_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, fileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
