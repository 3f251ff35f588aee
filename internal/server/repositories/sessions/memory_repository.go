package sessions

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// MemoryRepository keeps sessions in process memory. Safe for concurrent use.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.ExternalSession
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]models.ExternalSession)}
}

func (r *MemoryRepository) Get(ctx context.Context, subjectID string) (*models.ExternalSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[subjectID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

// Upsert keeps an existing refresh token when the new one is empty, as
// providers usually omit it on refresh.
func (r *MemoryRepository) Upsert(ctx context.Context, s *models.ExternalSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := *s
	if prev, ok := r.sessions[s.SubjectID]; ok && next.RefreshToken == "" {
		next.RefreshToken = prev.RefreshToken
	}
	r.sessions[s.SubjectID] = next
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, subjectID)
	return nil
}
