// Package server wires the import service together: storage backends,
// the OAuth session manager, the import orchestrator and the HTTP edge.
// It also owns process lifecycle (signals, staged-file sweeping, shutdown).
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/dataimport/internal/cryptox"
	"github.com/dmitrijs2005/dataimport/internal/dbx"
	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/dmitrijs2005/dataimport/internal/netx"
	"github.com/dmitrijs2005/dataimport/internal/server/blob"
	"github.com/dmitrijs2005/dataimport/internal/server/config"
	"github.com/dmitrijs2005/dataimport/internal/server/httpapi"
	"github.com/dmitrijs2005/dataimport/internal/server/imports"
	"github.com/dmitrijs2005/dataimport/internal/server/metrics"
	"github.com/dmitrijs2005/dataimport/internal/server/notify"
	"github.com/dmitrijs2005/dataimport/internal/server/oauth"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dataimport/internal/server/sheets"
	"github.com/dmitrijs2005/dataimport/internal/server/uploads"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dataimport"

type App struct {
	config *config.Config
	logger logging.Logger

	db    *sql.DB
	redis *redis.Client

	gate     *uploads.Gate
	notifier notify.Notifier
	server   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	sealer, err := cryptox.NewSealerFromSecret(c.SecretKey)
	if err != nil {
		return fmt.Errorf("sealer init error: %w", err)
	}

	var (
		rm repomanager.RepositoryManager
		db dbx.DBTX
	)
	if c.DatabaseDSN != "" {
		app.db, err = repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		rm, err = repomanager.NewPostgresRepositoryManager(sealer)
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		if err := rm.RunMigrations(ctx, app.db); err != nil {
			return fmt.Errorf("migrations error: %w", err)
		}
		db = app.db
	} else {
		app.logger.Warn(ctx, "no database configured, keeping all state in memory")
		rm = repomanager.NewInMemoryRepositoryManager()
	}

	m := metrics.New()

	var grants oauth.GrantStore = oauth.NewMemoryGrants()
	app.notifier = notify.Noop{}
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis init error: %w", err)
		}
		grants = oauth.NewRedisGrants(app.redis, redisKeyPrefix)
		app.notifier = notify.NewRedisNotifier(app.redis, c.RedisChannel, c.UpstreamTimeout, app.logger)
	}

	app.gate = uploads.NewGate(c.UploadDir, c.MaxUploadSize, c.StagedFileTTL, rm.StagedFiles(db), app.logger, m)

	provider := oauth.NewGoogleProvider(oauth.GoogleConfig{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURL,
		AuthURL:      c.GoogleAuthURL,
		TokenURL:     c.GoogleTokenURL,
		RevokeURL:    c.GoogleRevokeURL,
	}, netx.NewClient(c.UpstreamTimeout))

	signer, err := oauth.NewStateSigner(c.SecretKey, c.OAuthStateTTL)
	if err != nil {
		return fmt.Errorf("state signer init error: %w", err)
	}
	sessions := oauth.NewManager(provider, rm.Sessions(db), grants, signer, c.UpstreamTimeout, app.logger, m)

	fetcher := sheets.NewFetcher(sessions, c.SheetsBaseURL, c.UpstreamTimeout, app.logger)

	var archiver imports.Archiver
	if c.ArchiveEnabled() {
		a, err := blob.NewS3Archiver(ctx, blob.Settings{
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
		})
		if err != nil {
			return fmt.Errorf("s3 init error: %w", err)
		}
		archiver = a
	}

	importer := imports.NewService(app.gate, sessions, fetcher, rm.Datasets(db), app.notifier, archiver,
		c.UpstreamTimeout, app.logger, m)

	gin.SetMode(gin.ReleaseMode)
	app.server = httpapi.NewServer(httpapi.Options{
		Address:            c.EndpointAddrHTTP,
		SecretKey:          c.SecretKey,
		SuccessRedirectURL: c.SuccessRedirectURL,
		ErrorRedirectURL:   c.ErrorRedirectURL,
	}, app.logger, app.gate, importer, sessions, m)

	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.gate.RunSweeper(ctx, app.config.SweepInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if n, ok := app.notifier.(*notify.RedisNotifier); ok {
		n.Wait()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err.Error())
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close error", "error", err.Error())
		}
	}
}
