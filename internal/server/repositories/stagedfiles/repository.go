// Package stagedfiles stores metadata about spreadsheets accepted by the
// upload gate and waiting to be imported.
package stagedfiles

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// Repository defines the staged-file metadata store.
type Repository interface {
	// Create records a newly staged file.
	Create(ctx context.Context, file *models.UploadedFile) error
	// Get returns the staged file or common.ErrorNotFound.
	Get(ctx context.Context, fileID string) (*models.UploadedFile, error)
	// MarkImported stamps the file as imported at the given time.
	MarkImported(ctx context.Context, fileID string, at time.Time) error
	// SelectStale returns files created before the cutoff that were never imported.
	SelectStale(ctx context.Context, before time.Time) ([]*models.UploadedFile, error)
	// Delete removes the metadata row. Deleting a missing row is not an error.
	Delete(ctx context.Context, fileID string) error
}
