package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/filex"
	"github.com/dmitrijs2005/dataimport/internal/logging"
	"github.com/dmitrijs2005/dataimport/internal/server/metrics"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/dmitrijs2005/dataimport/internal/server/repositories/stagedfiles"
	"github.com/google/uuid"
)

// Gate validates and stages uploaded spreadsheets.
type Gate struct {
	dir     string
	maxSize int64
	ttl     time.Duration
	repo    stagedfiles.Repository
	logger  logging.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	lastMillis int64

	now func() time.Time
}

// NewGate builds a gate that stages files under dir. maxSize <= 0 falls
// back to common.MaxUploadSize.
func NewGate(dir string, maxSize int64, ttl time.Duration, repo stagedfiles.Repository, logger logging.Logger, m *metrics.Metrics) *Gate {
	if maxSize <= 0 {
		maxSize = common.MaxUploadSize
	}
	return &Gate{
		dir:     dir,
		maxSize: maxSize,
		ttl:     ttl,
		repo:    repo,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// MaxSize is the per-file byte ceiling.
func (g *Gate) MaxSize() int64 {
	return g.maxSize
}

// Stage validates files and writes the single accepted file to the staging
// directory. The returned metadata is already persisted.
func (g *Gate) Stage(ctx context.Context, subjectID string, files []RawFile) (*models.UploadedFile, error) {
	f, err := g.stage(ctx, subjectID, files)
	if err != nil {
		g.metrics.ObserveUpload(string(common.KindOf(err)))
		g.logger.Warn(ctx, "upload rejected", "subject", subjectID, "error", err.Error())
		return nil, err
	}
	g.metrics.ObserveUpload("ok")
	g.logger.Info(ctx, "upload staged", "subject", subjectID, "file_id", f.FileID, "size", f.SizeBytes)
	return f, nil
}

func (g *Gate) stage(ctx context.Context, subjectID string, files []RawFile) (*models.UploadedFile, error) {
	switch {
	case len(files) == 0:
		return nil, fmt.Errorf("%w: no file provided", common.ErrInvalidRequest)
	case len(files) > 1:
		return nil, fmt.Errorf("%w: got %d files, only one is allowed", common.ErrTooManyFiles, len(files))
	}
	in := files[0]

	ext, ok := acceptedExtension(in.Name, in.ContentType)
	if !ok {
		return nil, fmt.Errorf("%w: declared type %q", common.ErrInvalidFileType, in.ContentType)
	}
	if in.Size > g.maxSize {
		return nil, g.tooLarge()
	}
	if in.Body == nil {
		return nil, fmt.Errorf("%w: empty body", common.ErrInvalidRequest)
	}

	dir, err := filex.EnsureDir(g.dir)
	if err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}

	rnd, err := common.MakeRandHexString(8)
	if err != nil {
		return nil, fmt.Errorf("random name: %w", err)
	}
	now := g.now()
	path := filepath.Join(dir, fmt.Sprintf("%d-%s-%s%s", g.nextMillis(now), rnd, sanitizeBase(in.Name), ext))

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	n, copyErr := io.Copy(out, io.LimitReader(in.Body, g.maxSize+1))
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		g.discard(ctx, path)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if n > g.maxSize {
		g.discard(ctx, path)
		return nil, g.tooLarge()
	}
	if err := ctx.Err(); err != nil {
		g.discard(ctx, path)
		return nil, err
	}

	meta := &models.UploadedFile{
		FileID:           uuid.NewString(),
		SubjectID:        subjectID,
		OriginalName:     in.Name,
		StoragePath:      path,
		SizeBytes:        n,
		DeclaredMimeType: in.ContentType,
		CreatedAt:        now,
	}
	if err := g.repo.Create(ctx, meta); err != nil {
		g.discard(ctx, path)
		return nil, fmt.Errorf("save staged file: %w", err)
	}
	return meta, nil
}

func (g *Gate) tooLarge() error {
	return fmt.Errorf("%w: limit is %d MB", common.ErrFileTooLarge, g.maxSize>>20)
}

// nextMillis returns a strictly increasing millisecond stamp even when
// several uploads land in the same millisecond.
func (g *Gate) nextMillis(now time.Time) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= g.lastMillis {
		ms = g.lastMillis + 1
	}
	g.lastMillis = ms
	return ms
}

func (g *Gate) discard(ctx context.Context, path string) {
	if err := filex.RemoveIfExists(path); err != nil {
		g.logger.Error(ctx, "failed to remove staged file", "path", path, "error", err.Error())
	}
}

// Lookup returns the staged file if it belongs to subjectID and is still on
// disk. Every other case is common.ErrorNotFound.
func (g *Gate) Lookup(ctx context.Context, subjectID, fileID string) (*models.UploadedFile, error) {
	f, err := g.repo.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.SubjectID != subjectID {
		return nil, fmt.Errorf("%w: file %s", common.ErrorNotFound, fileID)
	}
	if _, err := os.Stat(f.StoragePath); err != nil {
		return nil, fmt.Errorf("%w: staged copy of %s is gone", common.ErrorNotFound, fileID)
	}
	return f, nil
}

// MarkImported exempts the file from sweeping.
func (g *Gate) MarkImported(ctx context.Context, fileID string) error {
	return g.repo.MarkImported(ctx, fileID, g.now())
}

// Sweep deletes staged files older than the TTL that were never imported
// and returns how many were removed.
func (g *Gate) Sweep(ctx context.Context, now time.Time) (int, error) {
	if g.ttl <= 0 {
		return 0, nil
	}
	stale, err := g.repo.SelectStale(ctx, now.Add(-g.ttl))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, f := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := filex.RemoveIfExists(f.StoragePath); err != nil {
			g.logger.Error(ctx, "sweep: remove file", "file_id", f.FileID, "error", err.Error())
			continue
		}
		if err := g.repo.Delete(ctx, f.FileID); err != nil {
			g.logger.Error(ctx, "sweep: delete metadata", "file_id", f.FileID, "error", err.Error())
			continue
		}
		removed++
	}
	g.metrics.ObserveSwept(removed)
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (g *Gate) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := g.Sweep(ctx, g.now())
			if err != nil {
				g.logger.Error(ctx, "sweep failed", "error", err.Error())
				continue
			}
			if n > 0 {
				g.logger.Info(ctx, "swept staged files", "count", n)
			}
		}
	}
}
