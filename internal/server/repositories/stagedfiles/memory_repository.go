package stagedfiles

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// MemoryRepository keeps staged-file metadata in process memory.
// It is used when no database DSN is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	files map[string]models.UploadedFile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{files: make(map[string]models.UploadedFile)}
}

func (r *MemoryRepository) Create(ctx context.Context, file *models.UploadedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[file.FileID] = *file
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, fileID string) (*models.UploadedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[fileID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &f, nil
}

func (r *MemoryRepository) MarkImported(ctx context.Context, fileID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[fileID]
	if !ok {
		return common.ErrorNotFound
	}
	f.ImportedAt = &at
	r.files[fileID] = f
	return nil
}

func (r *MemoryRepository) SelectStale(ctx context.Context, before time.Time) ([]*models.UploadedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.UploadedFile
	for _, f := range r.files {
		if f.ImportedAt == nil && f.CreatedAt.Before(before) {
			item := f
			result = append(result, &item)
		}
	}
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, fileID)
	return nil
}
