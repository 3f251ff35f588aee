package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/imports"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
	"github.com/gin-gonic/gin"
)

// statusClientClosedRequest is reported when the caller went away mid-import.
const statusClientClosedRequest = 499

var kindStatus = map[common.ErrorKind]int{
	common.KindNotFound:            http.StatusNotFound,
	common.KindInvalidRequest:      http.StatusBadRequest,
	common.KindInvalidFileType:     http.StatusBadRequest,
	common.KindTooManyFiles:        http.StatusBadRequest,
	common.KindInvalidGrant:        http.StatusBadRequest,
	common.KindStateMismatch:       http.StatusBadRequest,
	common.KindFileTooLarge:        http.StatusRequestEntityTooLarge,
	common.KindPermissionDenied:    http.StatusForbidden,
	common.KindRateLimited:         http.StatusTooManyRequests,
	common.KindUpstreamUnavailable: http.StatusServiceUnavailable,
	common.KindUnauthorized:        http.StatusUnauthorized,
	common.KindInternal:            http.StatusInternalServerError,
}

func statusFor(kind common.ErrorKind) int {
	if st, ok := kindStatus[kind]; ok {
		return st
	}
	return http.StatusInternalServerError
}

func writeFailure(c *gin.Context, kind common.ErrorKind, message string) {
	c.JSON(statusFor(kind), gin.H{
		"success": false,
		"error":   kind,
		"message": message,
	})
}

func writeAuthRequired(c *gin.Context, authURL string) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"authRequired": true,
		"authUrl":      authURL,
	})
}

// writeError handles errors that escaped the outcome mapping. An error
// carrying an authorization URL still produces the auth-required shape.
func writeError(c *gin.Context, err error) {
	if url, ok := common.AuthURLFromError(err); ok {
		writeAuthRequired(c, url)
		return
	}
	kind := common.KindOf(err)
	writeFailure(c, kind, imports.SafeMessage(kind))
}

func writeOutcome(c *gin.Context, out imports.Outcome) {
	switch {
	case out.Failure != nil:
		writeFailure(c, out.Failure.Kind, out.Failure.Message)
	case out.IsAuthRequired():
		writeAuthRequired(c, out.AuthURL)
	case out.Dataset != nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": toDatasetResponse(out.Dataset)})
	default:
		writeFailure(c, common.KindInternal, imports.SafeMessage(common.KindInternal))
	}
}

type datasetResponse struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Name       string     `json:"name"`
	FileID     string     `json:"fileId,omitempty"`
	SheetID    string     `json:"sheetId,omitempty"`
	TabID      string     `json:"tabId,omitempty"`
	StorageKey string     `json:"storageKey,omitempty"`
	SizeBytes  int64      `json:"sizeBytes,omitempty"`
	MimeType   string     `json:"mimeType,omitempty"`
	Columns    []string   `json:"columns,omitempty"`
	Rows       [][]string `json:"rows,omitempty"`
	RowCount   int        `json:"rowCount"`
	CreatedAt  string     `json:"createdAt"`
	UpdatedAt  string     `json:"updatedAt"`
}

func toDatasetResponse(d *models.Dataset) datasetResponse {
	return datasetResponse{
		ID:         d.ID,
		Source:     string(d.Source),
		Name:       d.Name,
		FileID:     d.FileID,
		SheetID:    d.SheetID,
		TabID:      d.TabID,
		StorageKey: d.StorageKey,
		SizeBytes:  d.SizeBytes,
		MimeType:   d.MimeType,
		Columns:    d.Columns,
		Rows:       d.Rows,
		RowCount:   d.RowCount,
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
