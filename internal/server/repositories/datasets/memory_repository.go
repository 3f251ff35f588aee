package datasets

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps datasets in process memory with the same upsert
// semantics as the Postgres implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]models.Dataset
	byKey map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]models.Dataset),
		byKey: make(map[string]string),
	}
}

func (r *MemoryRepository) Save(ctx context.Context, d *models.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	key := d.SubjectID + "\x00" + d.SourceKey
	if id, ok := r.byKey[key]; ok {
		d.ID = id
		d.CreatedAt = r.byID[id].CreatedAt
	} else {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.CreatedAt = now
		r.byKey[key] = d.ID
	}
	d.UpdatedAt = now
	r.byID[d.ID] = *d
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}
