// Package api is a thin client for the import server's HTTP edge.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/netx"
	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type UploadResult struct {
	FileID       string `json:"fileId"`
	OriginalName string `json:"originalName"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

type Dataset struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Name       string     `json:"name"`
	FileID     string     `json:"fileId"`
	SheetID    string     `json:"sheetId"`
	TabID      string     `json:"tabId"`
	StorageKey string     `json:"storageKey"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	RowCount   int        `json:"rowCount"`
}

// ImportResult is either a dataset or a request to authorize at AuthURL.
type ImportResult struct {
	Success      bool     `json:"success"`
	AuthRequired bool     `json:"authRequired"`
	AuthURL      string   `json:"authUrl"`
	Data         *Dataset `json:"data"`
}

type Status struct {
	Authorized bool   `json:"authorized"`
	State      string `json:"state"`
}

type Client struct {
	token string
	rc    *resty.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	rc := resty.NewWithClient(netx.NewClient(timeout)).
		SetBaseURL(strings.TrimRight(baseURL, "/"))
	return &Client{token: token, rc: rc}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) HasToken() bool {
	return c.token != ""
}

// request starts a call carrying the current token. Successful bodies are
// decoded into out whatever content type the server declared.
func (c *Client) request(ctx context.Context, out any) *resty.Request {
	r := c.rc.R().SetContext(ctx).SetAuthToken(c.token)
	if out != nil {
		r.SetResult(out).ForceContentType("application/json")
	}
	return r
}

// Upload streams the file at path as the single "file" part.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	var out UploadResult
	resp, err := c.request(ctx, &out).
		SetHeader("Content-Type", mw.FormDataContentType()).
		SetBody(io.Reader(pr)).
		Post("/api/uploads")
	if err = check(resp, err); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	return &out, nil
}

// Import starts an import of a staged file (fileID) or a sheet tab.
func (c *Client) Import(ctx context.Context, fileID, sheetID, tabID string) (*ImportResult, error) {
	var out ImportResult
	resp, err := c.request(ctx, &out).
		SetBody(map[string]string{"fileId": fileID, "sheetId": sheetID, "tabId": tabID}).
		Post("/api/imports")
	if err = check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Dataset(ctx context.Context, id string) (*Dataset, error) {
	var out struct {
		Data *Dataset `json:"data"`
	}
	resp, err := c.request(ctx, &out).
		SetPathParam("id", id).
		Get("/api/datasets/{id}")
	if err = check(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Authorize returns the consent URL to open in a browser.
func (c *Client) Authorize(ctx context.Context) (string, error) {
	var out struct {
		AuthURL string `json:"authUrl"`
	}
	resp, err := c.request(ctx, &out).Get("/api/oauth/google/authorize")
	if err = check(resp, err); err != nil {
		return "", err
	}
	return out.AuthURL, nil
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	resp, err := c.request(ctx, &out).Get("/api/oauth/google/status")
	if err = check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.request(ctx, nil).Post("/api/oauth/google/logout")
	return check(resp, err)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return decodeError(resp.StatusCode(), resp.Body())
	}
	return nil
}

func decodeError(status int, body []byte) error {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &e)

	apiErr := &APIError{Status: status, Kind: e.Error, Message: e.Message}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", common.ErrorUnauthorized, apiErr)
	}
	return apiErr
}
