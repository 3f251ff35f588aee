// Package httpapi is the public HTTP edge. It authenticates subjects,
// accepts uploads, runs imports and drives the browser side of the OAuth
// handshake, translating every result into a stable JSON shape.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/dmitrijs2005/dataimport/internal/server/imports"
	"github.com/dmitrijs2005/dataimport/internal/server/metrics"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/dmitrijs2005/dataimport/internal/server/uploads"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type Stager interface {
	Stage(ctx context.Context, subjectID string, files []uploads.RawFile) (*models.UploadedFile, error)
	MaxSize() int64
}

type Importer interface {
	Import(ctx context.Context, req imports.Request, subjectID string) (imports.Outcome, error)
	Dataset(ctx context.Context, subjectID, id string) (*models.Dataset, error)
}

type Sessions interface {
	AuthorizationURL(ctx context.Context, subjectID string) string
	ExchangeCode(ctx context.Context, code, state string) (*models.ExternalSession, error)
	Logout(ctx context.Context, subjectID string) error
	State(ctx context.Context, subjectID string) (models.SessionState, error)
}

// Options carries the edge's own settings.
type Options struct {
	Address            string
	SecretKey          string
	SuccessRedirectURL string
	ErrorRedirectURL   string
}

type Server struct {
	opts      Options
	jwtSecret []byte
	logger    logging.Logger
	stager    Stager
	importer  Importer
	sessions  Sessions
	metrics   *metrics.Metrics
	router    *gin.Engine
}

func NewServer(opts Options, l logging.Logger, stager Stager, importer Importer, sessions Sessions, m *metrics.Metrics) *Server {
	s := &Server{
		opts:      opts,
		jwtSecret: []byte(opts.SecretKey),
		logger:    l.With("module", "http_server"),
		stager:    stager,
		importer:  importer,
		sessions:  sessions,
		metrics:   m,
	}
	s.router = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.requestLogger(), s.recoverer())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// the callback is reached by the provider's redirect; the signed state
	// identifies the subject.
	r.GET("/api/oauth/google/callback", s.oauthCallback)

	api := r.Group("/api", s.requireSubject())
	{
		api.POST("/uploads", s.upload)
		api.POST("/imports", s.runImport)
		api.GET("/datasets/:id", s.getDataset)

		api.GET("/oauth/google/authorize", s.oauthAuthorize)
		api.POST("/oauth/google/logout", s.oauthLogout)
		api.GET("/oauth/google/status", s.oauthStatus)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
