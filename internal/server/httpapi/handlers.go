package httpapi

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/imports"
	"github.com/dmitrijs2005/dataimport/internal/server/uploads"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is the allowance for boundaries and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

func (s *Server) upload(c *gin.Context) {
	ctx := c.Request.Context()
	limit := s.stager.MaxSize() + multipartOverhead

	if c.Request.ContentLength > limit {
		writeFailure(c, common.KindFileTooLarge, common.ErrFileTooLarge.Error())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeFailure(c, common.KindFileTooLarge, common.ErrFileTooLarge.Error())
			return
		}
		writeFailure(c, common.KindInvalidRequest, "expected a multipart form with a file field")
		return
	}
	defer form.RemoveAll()

	var headers []*multipart.FileHeader
	for _, fhs := range form.File {
		headers = append(headers, fhs...)
	}

	files := make([]uploads.RawFile, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.logger.Error(ctx, "failed to open multipart file", "error", err.Error())
			writeFailure(c, common.KindInternal, imports.SafeMessage(common.KindInternal))
			return
		}
		defer f.Close()

		files = append(files, uploads.RawFile{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Body:        f,
		})
	}

	staged, err := s.stager.Stage(ctx, subjectID(c), files)
	if err != nil {
		kind := common.KindOf(err)
		msg := err.Error()
		if kind == common.KindInternal {
			msg = imports.SafeMessage(kind)
		}
		writeFailure(c, kind, msg)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileId":       staged.FileID,
		"originalName": staged.OriginalName,
		"path":         filepath.Base(staged.StoragePath),
		"size":         staged.SizeBytes,
		"mimeType":     staged.DeclaredMimeType,
	})
}

type importBody struct {
	FileID  string `json:"fileId"`
	SheetID string `json:"sheetId"`
	TabID   string `json:"tabId"`
}

func (s *Server) runImport(c *gin.Context) {
	var body importBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeFailure(c, common.KindInvalidRequest, "malformed request body")
		return
	}

	var req imports.Request
	if body.FileID != "" {
		req.File = &imports.FileRef{FileID: body.FileID}
	}
	if body.SheetID != "" {
		req.Sheet = &imports.SheetRef{SheetID: body.SheetID, TabID: body.TabID}
	}

	out, err := s.importer.Import(c.Request.Context(), req, subjectID(c))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.AbortWithStatus(statusClientClosedRequest)
			return
		}
		writeError(c, err)
		return
	}
	writeOutcome(c, out)
}

func (s *Server) getDataset(c *gin.Context) {
	d, err := s.importer.Dataset(c.Request.Context(), subjectID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": toDatasetResponse(d)})
}
