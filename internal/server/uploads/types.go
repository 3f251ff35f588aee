// Package uploads implements the upload gate: it validates untrusted
// spreadsheet uploads, writes them under collision-free names and keeps
// their metadata until they are imported or swept.
package uploads

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// RawFile is one file part as received from the client.
type RawFile struct {
	Name        string
	ContentType string
	// Size is the declared size; zero or negative means unknown.
	Size int64
	Body io.Reader
}

var allowedExtensions = map[string]bool{
	".csv":  true,
	".xls":  true,
	".xlsx": true,
}

// mimeAliases maps every known declared type for a spreadsheet format to
// the canonical extension used when naming the staged copy.
var mimeAliases = map[string]string{
	"text/csv":                            ".csv",
	"text/x-csv":                          ".csv",
	"application/csv":                     ".csv",
	"application/x-csv":                   ".csv",
	"text/comma-separated-values":         ".csv",
	"text/x-comma-separated-values":       ".csv",
	"application/vnd.ms-excel":            ".xls",
	"application/msexcel":                 ".xls",
	"application/x-msexcel":               ".xls",
	"application/x-ms-excel":              ".xls",
	"application/x-excel":                 ".xls",
	"application/x-dos_ms_excel":          ".xls",
	"application/xls":                     ".xls",
	"application/x-xls":                   ".xls",

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

// acceptedExtension returns the extension to stage the file under, or
// false when neither the filename nor the declared type is allowed.
// The filename extension wins when it is itself allowed.
func acceptedExtension(name, contentType string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if allowedExtensions[ext] {
		return ext, true
	}
	if ext, ok := mimeAliases[normalizeMediaType(contentType)]; ok {
		return ext, true
	}
	return "", false
}

func normalizeMediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

const maxSanitizedLen = 32

// sanitizeBase keeps only ASCII letters and digits of the filename stem.
func sanitizeBase(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range stem {
		if b.Len() >= maxSanitizedLen {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
