package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dataimport/internal/cryptox"
	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/server/migrations"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/datasets"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/stagedfiles"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	sealer *cryptox.Sealer
}

// StagedFiles returns a stagedfiles.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) StagedFiles(db dbx.DBTX) stagedfiles.Repository {
	return stagedfiles.NewPostgresRepository(db)
}

// Sessions returns a sessions.Repository bound to the provided DBTX. Tokens
// are sealed with the manager's sealer.
func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db, m.sealer)
}

// Datasets returns a datasets.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Datasets(db dbx.DBTX) datasets.Repository {
	return datasets.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(sealer *cryptox.Sealer) (RepositoryManager, error) {
	if sealer == nil {
		return nil, fmt.Errorf("sealer is required")
	}
	return &PostgresRepositoryManager{sealer: sealer}, nil
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// OpenPostgres opens a pgx connection pool for dsn and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}
