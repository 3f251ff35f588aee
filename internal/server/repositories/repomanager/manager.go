// Package repomanager vends repository implementations for the server and
// runs schema migrations. Repositories take a dbx.DBTX so callers can bind
// them to a *sql.DB or to a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/datasets"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/stagedfiles"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	StagedFiles(db dbx.DBTX) stagedfiles.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Datasets(db dbx.DBTX) datasets.Repository
}
