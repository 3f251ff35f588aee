package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/datasets"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/stagedfiles"
)

// InMemoryRepositoryManager serves process-local repositories. The DBTX
// argument is ignored; every call returns the same shared instance.
type InMemoryRepositoryManager struct {
	stagedFiles *stagedfiles.MemoryRepository
	sessions    *sessions.MemoryRepository
	datasets    *datasets.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) StagedFiles(dbx.DBTX) stagedfiles.Repository {
	return m.stagedFiles
}

func (m *InMemoryRepositoryManager) Sessions(dbx.DBTX) sessions.Repository {
	return m.sessions
}

func (m *InMemoryRepositoryManager) Datasets(dbx.DBTX) datasets.Repository {
	return m.datasets
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{
		stagedFiles: stagedfiles.NewMemoryRepository(),
		sessions:    sessions.NewMemoryRepository(),
		datasets:    datasets.NewMemoryRepository(),
	}
}
