// Package cli is an interactive operator console for the import server:
// stage files, start imports and manage the Google connection.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/dataimport/internal/client/api"
	"github.com/dmitrijs2005/dataimport/internal/client/config"
	"github.com/dmitrijs2005/dataimport/internal/common"
)

type App struct {
	config *config.Config
	api    *api.Client
	out    io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    api.New(c.ServerURL, c.AccessToken, c.RequestTimeout),
		out:    os.Stdout,
	}
}

func (a *App) hasToken() bool {
	return a.api.HasToken()
}

func (a *App) statusLine() string {
	if a.hasToken() {
		return "(" + a.config.ServerURL + ")"
	}
	return "(no token)"
}

// Root runs the console on stdin until EOF or exit.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to the dataimport console (type 'help' for commands)")
	if !a.hasToken() {
		if err := a.Token(ctx); err != nil {
			printlnFn("Error:", err.Error())
		}
	}
	runREPL(ctx, a, a.statusLine, bufio.NewScanner(os.Stdin))
}

func (a *App) Token(ctx context.Context) error {
	secret, err := GetSecret("Access token", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	token := strings.TrimSpace(string(secret))
	if token == "" {
		return fmt.Errorf("%w: empty token", common.ErrInvalidRequest)
	}
	a.api.SetToken(token)
	return nil
}

func (a *App) Upload(ctx context.Context, path string) error {
	res, err := a.api.Upload(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "staged %s as %s (%d bytes)\n", res.OriginalName, res.FileID, res.Size)
	return nil
}

func (a *App) ImportFile(ctx context.Context, fileID string) error {
	res, err := a.api.Import(ctx, fileID, "", "")
	if err != nil {
		return err
	}
	a.printImport(res)
	return nil
}

func (a *App) ImportSheet(ctx context.Context, sheetID, tabID string) error {
	res, err := a.api.Import(ctx, "", sheetID, tabID)
	if err != nil {
		return err
	}
	a.printImport(res)
	return nil
}

func (a *App) printImport(res *api.ImportResult) {
	switch {
	case res.AuthRequired:
		fmt.Fprintf(a.out, "Google authorization required. Open this URL, then run the import again:\n%s\n", res.AuthURL)
	case res.Data != nil:
		fmt.Fprintf(a.out, "imported dataset %s %q (%d rows)\n", res.Data.ID, res.Data.Name, res.Data.RowCount)
	default:
		fmt.Fprintln(a.out, "import returned no dataset")
	}
}

func (a *App) Dataset(ctx context.Context, id string) error {
	d, err := a.api.Dataset(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %q source=%s rows=%d\n", d.ID, d.Name, d.Source, d.RowCount)
	if len(d.Columns) > 0 {
		fmt.Fprintf(a.out, "columns: %s\n", strings.Join(d.Columns, ", "))
	}
	return nil
}

func (a *App) Authorize(ctx context.Context) error {
	u, err := a.api.Authorize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Open this URL to connect Google:\n%s\n", u)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st, err := a.api.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "google: %s\n", st.State)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "google disconnected")
	return nil
}
