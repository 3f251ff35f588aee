// Package imports turns an import request into a persisted dataset, or
// into a request for the caller to authorize first.
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/dmitrijs2005/dataimport/internal/server/metrics"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/dmitrijs2005/dataimport/internal/server/notify"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/datasets"
	"github.com/dmitrijs2005/dataimport/internal/server/sheets"
)

type Authorizer interface {
	IsAuthorized(ctx context.Context, subjectID string) (bool, error)
	AuthorizationURL(ctx context.Context, subjectID string) string
}

type SheetFetcher interface {
	Fetch(ctx context.Context, subjectID, sheetID, tabID string) (*sheets.Table, error)
}

type StagedFiles interface {
	Lookup(ctx context.Context, subjectID, fileID string) (*models.UploadedFile, error)
	MarkImported(ctx context.Context, fileID string) error
}

// Archiver copies a staged file to long-term storage and returns its key.
type Archiver interface {
	Put(ctx context.Context, body io.Reader, size int64, contentType string) (string, error)
}

type Service struct {
	files    StagedFiles
	auth     Authorizer
	fetcher  SheetFetcher
	datasets datasets.Repository
	notifier notify.Notifier
	archiver Archiver
	timeout  time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// NewService wires the orchestrator. archiver may be nil; notifier may be
// nil, in which case events are dropped.
func NewService(files StagedFiles, auth Authorizer, fetcher SheetFetcher, repo datasets.Repository,
	notifier notify.Notifier, archiver Archiver, timeout time.Duration, logger logging.Logger, m *metrics.Metrics) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		files:    files,
		auth:     auth,
		fetcher:  fetcher,
		datasets: repo,
		notifier: notifier,
		archiver: archiver,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
	}
}

// Import runs req for subjectID. The returned error is non-nil only when
// ctx was cancelled; every other result, including failures, is an Outcome.
func (s *Service) Import(ctx context.Context, req Request, subjectID string) (Outcome, error) {
	source := req.source()

	var (
		out Outcome
		err error
	)
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		err = ctx.Err()
	case source == string(models.SourceFile):
		out, err = s.importFile(ctx, subjectID, req.File)
	case source == string(models.SourceSheet):
		out, err = s.importSheet(ctx, subjectID, req.Sheet)
	default:
		out = Failed(common.KindInvalidRequest, "exactly one of fileId or sheetId is required")
	}

	if err != nil {
		s.metrics.ObserveImport(source, "cancelled")
		s.logger.Info(ctx, "import cancelled", "subject", subjectID, "source", source)
		return Outcome{}, err
	}

	s.metrics.ObserveImport(source, out.label())
	switch {
	case out.Failure != nil:
		s.logger.Warn(ctx, "import failed", "subject", subjectID, "source", source, "kind", string(out.Failure.Kind))
	case out.AuthURL != "":
		s.logger.Info(ctx, "import requires authorization", "subject", subjectID, "source", source)
	default:
		s.logger.Info(ctx, "import completed", "subject", subjectID, "source", source, "dataset", out.Dataset.ID)
	}
	return out, nil
}

// Dataset returns a dataset owned by subjectID. Foreign datasets are
// reported as common.ErrorNotFound.
func (s *Service) Dataset(ctx context.Context, subjectID, id string) (*models.Dataset, error) {
	d, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.SubjectID != subjectID {
		return nil, fmt.Errorf("%w: dataset %s", common.ErrorNotFound, id)
	}
	return d, nil
}

func (s *Service) importFile(ctx context.Context, subjectID string, ref *FileRef) (Outcome, error) {
	if ref.FileID == "" {
		return Failed(common.KindInvalidRequest, "fileId is required"), nil
	}

	f, err := s.files.Lookup(ctx, subjectID, ref.FileID)
	if err != nil {
		return s.fail(ctx, "lookup staged file", err)
	}

	d := &models.Dataset{
		SubjectID: subjectID,
		Source:    models.SourceFile,
		SourceKey: models.FileSourceKey(f.FileID),
		Name:      f.OriginalName,
		FileID:    f.FileID,
		SizeBytes: f.SizeBytes,
		MimeType:  f.DeclaredMimeType,
	}

	if s.archiver != nil {
		key, err := s.archive(ctx, f)
		if err != nil {
			return s.fail(ctx, "archive staged file", err)
		}
		d.StorageKey = key
	}

	if err := s.datasets.Save(ctx, d); err != nil {
		return s.fail(ctx, "save dataset", err)
	}

	if err := s.files.MarkImported(ctx, f.FileID); err != nil {
		s.logger.Warn(ctx, "failed to mark staged file imported", "file", f.FileID, "error", err.Error())
	}

	s.publish(ctx, d)
	return Imported(d), nil
}

func (s *Service) archive(ctx context.Context, f *models.UploadedFile) (string, error) {
	file, err := os.Open(f.StoragePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: staged copy of %s is gone", common.ErrorNotFound, f.FileID)
		}
		return "", err
	}
	defer file.Close()

	return s.archiver.Put(ctx, file, f.SizeBytes, f.DeclaredMimeType)
}

func (s *Service) importSheet(ctx context.Context, subjectID string, ref *SheetRef) (Outcome, error) {
	if ref.SheetID == "" {
		return Failed(common.KindInvalidRequest, "sheetId is required"), nil
	}

	ok, err := s.auth.IsAuthorized(ctx, subjectID)
	if err != nil {
		return s.fail(ctx, "check authorization", err)
	}
	if !ok {
		return AuthRequired(s.auth.AuthorizationURL(ctx, subjectID)), nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	table, err := s.fetcher.Fetch(fctx, subjectID, ref.SheetID, ref.TabID)
	if err != nil {
		if errors.Is(err, common.ErrUpstreamUnauthorized) && ctx.Err() == nil {
			s.logger.Info(ctx, "external session rejected, asking to re-authorize", "subject", subjectID, "error", err.Error())
			return AuthRequired(s.auth.AuthorizationURL(ctx, subjectID)), nil
		}
		return s.fail(ctx, "fetch sheet", err)
	}

	d := &models.Dataset{
		SubjectID: subjectID,
		Source:    models.SourceSheet,
		SourceKey: models.SheetSourceKey(ref.SheetID, table.TabID),
		Name:      sheetName(table),
		SheetID:   ref.SheetID,
		TabID:     table.TabID,
		Columns:   table.Columns,
		Rows:      table.Rows,
		RowCount:  len(table.Rows),
	}
	if err := s.datasets.Save(ctx, d); err != nil {
		return s.fail(ctx, "save dataset", err)
	}

	s.publish(ctx, d)
	return Imported(d), nil
}

// fail converts err into a Failed outcome, or into an AuthRequired one when
// err carries an authorization URL. Caller cancellation is returned as is.
func (s *Service) fail(ctx context.Context, op string, err error) (Outcome, error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return Outcome{}, ctx.Err()
	}
	if url, ok := common.AuthURLFromError(err); ok {
		return AuthRequired(url), nil
	}

	kind := common.KindOf(err)
	if kind == common.KindInternal {
		s.logger.Error(ctx, op+" failed", "error", err.Error())
	} else {
		s.logger.Debug(ctx, op+" failed", "kind", string(kind), "error", err.Error())
	}
	return Failed(kind, SafeMessage(kind)), nil
}

func (s *Service) publish(ctx context.Context, d *models.Dataset) {
	s.notifier.Publish(ctx, notify.Event{
		Type:      notify.EventDatasetImported,
		SubjectID: d.SubjectID,
		DatasetID: d.ID,
		Source:    string(d.Source),
		Name:      d.Name,
	})
}

func sheetName(t *sheets.Table) string {
	switch {
	case t.Title == "":
		return t.TabTitle
	case t.TabTitle == "":
		return t.Title
	default:
		return t.Title + " / " + t.TabTitle
	}
}
