package imports

import (
	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/server/models"
)

// Request names exactly one import source.
type Request struct {
	File  *FileRef
	Sheet *SheetRef
}

type FileRef struct {
	FileID string
}

// SheetRef points at a spreadsheet tab. An empty TabID means the first tab.
type SheetRef struct {
	SheetID string
	TabID   string
}

func (r Request) source() string {
	switch {
	case r.File != nil && r.Sheet == nil:
		return string(models.SourceFile)
	case r.Sheet != nil && r.File == nil:
		return string(models.SourceSheet)
	default:
		return "invalid"
	}
}

// Outcome is the result of an import: exactly one of Dataset, AuthURL or
// Failure is set.
type Outcome struct {
	Dataset *models.Dataset
	AuthURL string
	Failure *Failure
}

// Failure is what a client may learn about a failed import.
type Failure struct {
	Kind    common.ErrorKind
	Message string
}

func Imported(d *models.Dataset) Outcome {
	return Outcome{Dataset: d}
}

func AuthRequired(authURL string) Outcome {
	return Outcome{AuthURL: authURL}
}

func Failed(kind common.ErrorKind, message string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: message}}
}

func (o Outcome) IsAuthRequired() bool {
	return o.Failure == nil && o.Dataset == nil && o.AuthURL != ""
}

// label is the metric value for o.
func (o Outcome) label() string {
	switch {
	case o.Failure != nil:
		return string(o.Failure.Kind)
	case o.AuthURL != "":
		return "auth_required"
	default:
		return "imported"
	}
}

var safeMessages = map[common.ErrorKind]string{
	common.KindNotFound:            "the requested file or sheet was not found",
	common.KindInvalidRequest:      "the import request is invalid",
	common.KindRateLimited:         "the provider is rate limiting requests, try again later",
	common.KindPermissionDenied:    "access to the spreadsheet was denied",
	common.KindUpstreamUnavailable: "the provider is temporarily unavailable",
	common.KindUnauthorized:        "authorization is required",
}

// SafeMessage is the client-facing text for kind. Raw errors never reach clients.
func SafeMessage(kind common.ErrorKind) string {
	if m, ok := safeMessages[kind]; ok {
		return m
	}
	return "internal error"
}
