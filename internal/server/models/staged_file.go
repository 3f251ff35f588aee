// Package models defines server-side data models persisted in the database.
package models

import "time"

// UploadedFile describes a spreadsheet accepted by the upload gate and
// written to the staging directory. It is immutable apart from ImportedAt.
type UploadedFile struct {
	// FileID is the opaque identifier handed back to the client.
	FileID string
	// SubjectID is the owner; only this subject may import the file.
	SubjectID string
	// OriginalName is the client-supplied filename, stored verbatim.
	OriginalName string
	// StoragePath is the absolute path of the staged copy.
	StoragePath string
	// SizeBytes is the number of bytes actually written.
	SizeBytes int64
	// DeclaredMimeType is the content type the client declared.
	DeclaredMimeType string

	CreatedAt time.Time
	// ImportedAt is set once a dataset has been created from the file.
	ImportedAt *time.Time
}
