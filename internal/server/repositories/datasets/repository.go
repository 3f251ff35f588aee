// Package datasets persists the datasets produced by imports.
package datasets

import (
	"context"

	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// Repository is the dataset persistence store.
type Repository interface {
	// Save creates the dataset or replaces the one with the same
	// (SubjectID, SourceKey). The stored ID and timestamps are written back to d.
	Save(ctx context.Context, d *models.Dataset) error

	// Get returns the dataset or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Dataset, error)
}
