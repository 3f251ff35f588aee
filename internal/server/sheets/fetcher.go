// Package sheets reads a single tab of a Google spreadsheet through the
// Sheets v4 API on behalf of an authorized subject.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/logging"
)

// metaFields limits the spreadsheet read to what tab resolution needs.
const metaFields googleapi.Field = "properties(title),sheets(properties(sheetId,title))"

// ClientSource vends HTTP clients that carry a subject's credentials.
type ClientSource interface {
	HTTPClient(ctx context.Context, subjectID string) (*http.Client, error)
}

// Table is one tab of a spreadsheet. The first row becomes Columns.
type Table struct {
	Title    string
	TabID    string
	TabTitle string
	Columns  []string
	Rows     [][]string
}

type Fetcher struct {
	clients  ClientSource
	endpoint string
	timeout  time.Duration
	logger   logging.Logger
}

// NewFetcher builds a fetcher against endpoint, normally
// https://sheets.googleapis.com.
func NewFetcher(clients ClientSource, endpoint string, timeout time.Duration, logger logging.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		clients:  clients,
		endpoint: strings.TrimRight(endpoint, "/") + "/",
		timeout:  timeout,
		logger:   logger,
	}
}

// Fetch reads tabID of sheetID. An empty tabID selects the first tab; a
// non-empty one matches either the numeric sheet id or the tab title.
//
// Errors are classified with the common sentinels: ErrUpstreamUnauthorized
// for rejected or unrefreshable credentials, ErrPermissionDenied,
// ErrRateLimited, ErrorNotFound, ErrInvalidRequest and
// ErrUpstreamUnavailable for timeouts and transport failures.
func (f *Fetcher) Fetch(ctx context.Context, subjectID, sheetID, tabID string) (*Table, error) {
	if strings.TrimSpace(sheetID) == "" {
		return nil, fmt.Errorf("%w: sheet id is required", common.ErrInvalidRequest)
	}

	client, err := f.clients.HTTPClient(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(f.endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: sheets client: %v", common.ErrUpstreamUnavailable, err)
	}

	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	meta, err := svc.Spreadsheets.Get(sheetID).Fields(metaFields).Context(cctx).Do()
	if err != nil {
		return nil, classify(ctx, err)
	}

	resolvedID, tabTitle, err := resolveTab(meta, tabID)
	if err != nil {
		return nil, err
	}

	vr, err := svc.Spreadsheets.Values.Get(sheetID, quoteRange(tabTitle)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(cctx).
		Do()
	if err != nil {
		return nil, classify(ctx, err)
	}

	t := &Table{TabID: resolvedID, TabTitle: tabTitle}
	if meta.Properties != nil {
		t.Title = meta.Properties.Title
	}
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		if i == 0 {
			t.Columns = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	f.logger.Debug(ctx, "sheet fetched", "subject", subjectID, "sheet", sheetID, "tab", resolvedID, "rows", len(t.Rows))
	return t, nil
}

// classify maps an SDK error onto the common sentinels. A cancelled caller
// context wins over whatever the transport reported.
func classify(parent context.Context, err error) error {
	if errors.Is(err, common.ErrUpstreamUnauthorized) || errors.Is(err, common.ErrUpstreamUnavailable) {
		return err
	}
	if parent.Err() != nil {
		return parent.Err()
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}

	msg := gerr.Message
	if msg == "" {
		msg = http.StatusText(gerr.Code)
	}
	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrUpstreamUnauthorized, msg)
	case gerr.Code == http.StatusForbidden && isQuotaError(gerr):
		return fmt.Errorf("%w: %s", common.ErrRateLimited, msg)
	case gerr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", common.ErrPermissionDenied, msg)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: spreadsheet: %s", common.ErrorNotFound, msg)
	case gerr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrRateLimited, msg)
	case gerr.Code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrInvalidRequest, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", common.ErrUpstreamUnavailable, gerr.Code, msg)
	}
}

// isQuotaError recognises quota exhaustion that Google reports as 403.
func isQuotaError(gerr *googleapi.Error) bool {
	for _, e := range gerr.Errors {
		r := strings.ToLower(e.Reason)
		if strings.Contains(r, "ratelimit") || strings.Contains(r, "quota") {
			return true
		}
	}
	return strings.Contains(gerr.Body, "RESOURCE_EXHAUSTED")
}

func resolveTab(meta *sheetsapi.Spreadsheet, tabID string) (string, string, error) {
	var tabs []*sheetsapi.SheetProperties
	for _, s := range meta.Sheets {
		if s != nil && s.Properties != nil {
			tabs = append(tabs, s.Properties)
		}
	}
	if len(tabs) == 0 {
		return "", "", fmt.Errorf("%w: spreadsheet has no tabs", common.ErrInvalidRequest)
	}
	if tabID == "" {
		return strconv.FormatInt(tabs[0].SheetId, 10), tabs[0].Title, nil
	}
	for _, p := range tabs {
		id := strconv.FormatInt(p.SheetId, 10)
		if id == tabID || p.Title == tabID {
			return id, p.Title, nil
		}
	}
	return "", "", fmt.Errorf("%w: tab %q not found", common.ErrInvalidRequest, tabID)
}

// quoteRange turns a tab title into an A1 range covering the whole tab.
func quoteRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
