// Package sessions declares the repository contract for external provider
// sessions (OAuth tokens) and its storage implementations.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// Repository stores at most one external session per subject.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns the subject's session or common.ErrorNotFound.
	Get(ctx context.Context, subjectID string) (*models.ExternalSession, error)

	// Upsert creates or replaces the subject's session.
	Upsert(ctx context.Context, s *models.ExternalSession) error

	// Delete removes the subject's session. Deleting a missing session
	// is not an error.
	Delete(ctx context.Context, subjectID string) error
}
