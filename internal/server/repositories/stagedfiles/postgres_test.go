package stagedfiles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+staged_files\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`
	getQ    = `(?s)^SELECT\s+file_id,.*FROM\s+staged_files\s+WHERE\s+file_id\s*=\s*\$1\s*$`
	markQ   = `update staged_files set imported_at=\$2 where file_id=\$1`
	staleQ  = `SELECT file_id, subject_id, storage_path, created_at from staged_files\s+WHERE imported_at IS NULL and created_at<\$1`
	deleteQ = `(?s)^DELETE\s+FROM\s+staged_files\s+WHERE\s+file_id\s*=\s*\$1\s*$`
)

func sample(now time.Time) *models.UploadedFile {
	return &models.UploadedFile{
		FileID:           "f1",
		SubjectID:        "s1",
		OriginalName:     "report.csv",
		StoragePath:      "/tmp/uploads/1-abc-report.csv",
		SizeBytes:        42,
		DeclaredMimeType: "text/csv",
		CreatedAt:        now,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(insertQ).
		WithArgs("f1", "s1", "report.csv", "/tmp/uploads/1-abc-report.csv", int64(42), "text/csv", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), sample(now)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sample(time.Now()))
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	imported := now.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"file_id", "subject_id", "original_name", "storage_path", "size_bytes", "declared_mime_type", "created_at", "imported_at"}).
		AddRow("f1", "s1", "report.csv", "/p", int64(42), "text/csv", now, imported)

	mock.ExpectQuery(getQ).WithArgs("f1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FileID != "f1" || got.SubjectID != "s1" || got.SizeBytes != 42 || got.ImportedAt == nil || !got.ImportedAt.Equal(imported) {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGet_NotImported(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"file_id", "subject_id", "original_name", "storage_path", "size_bytes", "declared_mime_type", "created_at", "imported_at"}).
		AddRow("f1", "s1", "report.csv", "/p", int64(42), "text/csv", time.Now(), nil)

	mock.ExpectQuery(getQ).WithArgs("f1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ImportedAt != nil {
		t.Fatalf("expected nil ImportedAt, got %v", got.ImportedAt)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("f1").WillReturnError(errors.New("db err"))

	_, err := repo.Get(context.Background(), "f1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMarkImported_OK(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(markQ).WithArgs("f1", at).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkImported(context.Background(), "f1", at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkImported_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(markQ).WithArgs("nope", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkImported(context.Background(), "nope", time.Now()); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestMarkImported_DBErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(markQ).WithArgs("f1", sqlmock.AnyArg()).WillReturnError(errors.New("db err"))

	err := repo.MarkImported(context.Background(), "f1", time.Now())
	if err == nil || !regexp.MustCompile(`failed to mark imported: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMarkImported_RowsAffectedErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(markQ).WithArgs("f1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))

	err := repo.MarkImported(context.Background(), "f1", time.Now())
	if err == nil || !regexp.MustCompile(`failed to get rows affected: .*rows-err`).MatchString(err.Error()) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
}

func TestSelectStale_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cutoff := time.Now()
	rows := sqlmock.NewRows([]string{"file_id", "subject_id", "storage_path", "created_at"}).
		AddRow("f1", "s1", "/p1", cutoff.Add(-48*time.Hour)).
		AddRow("f2", "s2", "/p2", cutoff.Add(-25*time.Hour))

	mock.ExpectQuery(staleQ).WithArgs(cutoff).WillReturnRows(rows)

	got, err := repo.SelectStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].FileID != "f1" || got[1].StoragePath != "/p2" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestSelectStale_QueryErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(staleQ).WillReturnError(errors.New("db err"))

	_, err := repo.SelectStale(context.Background(), time.Now())
	if err == nil || !regexp.MustCompile(`failed to select staged files: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped select error, got %v", err)
	}
}

func TestSelectStale_RowsErr(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"file_id", "subject_id", "storage_path", "created_at"}).
		AddRow("f1", "s1", "/p1", time.Now()).
		AddRow("f2", "s1", "/p2", time.Now()).
		RowError(1, errors.New("row-err"))

	mock.ExpectQuery(staleQ).WillReturnRows(rows)

	_, err := repo.SelectStale(context.Background(), time.Now())
	if err == nil || err.Error() != "row-err" {
		t.Fatalf("expected rows.Err 'row-err', got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "f1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("f1").WillReturnError(errors.New("db err"))

	err := repo.Delete(context.Background(), "f1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
