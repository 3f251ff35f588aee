package models

import (
	"fmt"
	"time"
)

// DatasetSource tells where a dataset's rows came from.
type DatasetSource string

const (
	SourceFile  DatasetSource = "file"
	SourceSheet DatasetSource = "sheet"
)

// Dataset is the persisted result of a successful import.
type Dataset struct {
	ID        string
	SubjectID string
	Source    DatasetSource
	// SourceKey identifies the origin for upserts; see FileSourceKey and SheetSourceKey.
	SourceKey string
	Name      string

	FileID     string
	SheetID    string
	TabID      string
	StorageKey string
	SizeBytes  int64
	MimeType   string

	Columns  []string
	Rows     [][]string
	RowCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func FileSourceKey(fileID string) string {
	return "file:" + fileID
}

func SheetSourceKey(sheetID, tabID string) string {
	return fmt.Sprintf("sheet:%s/%s", sheetID, tabID)
}
