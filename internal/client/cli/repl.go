package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives.
type execIface interface {
	hasToken() bool
	Token(ctx context.Context) error
	Upload(ctx context.Context, path string) error
	ImportFile(ctx context.Context, fileID string) error
	ImportSheet(ctx context.Context, sheetID, tabID string) error
	Dataset(ctx context.Context, id string) error
	Authorize(ctx context.Context) error
	Status(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from scanner until EOF or "exit"/"quit".
//
//	token                       enter a bearer token (hidden input)
//	upload <path>               stage a csv/xls/xlsx file
//	import-file <fileId>        import a staged file
//	import-sheet <id> [tab]     import a Google Sheets tab
//	dataset <id>                show a dataset
//	authorize                   print the Google consent URL
//	status                      show the Google authorization state
//	logout                      disconnect Google
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("dataimport %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.hasToken() {
				printlnFn("Available commands: upload, import-file, import-sheet, dataset, authorize, status, logout, token, exit")
			} else {
				printlnFn("Available commands: token, exit")
			}
			continue
		}
		if cmd != "token" && !a.hasToken() {
			printlnFn("Enter a token first (type 'token')")
			continue
		}

		var err error
		switch cmd {
		case "token":
			err = a.Token(ctx)
		case "upload":
			if len(args) != 1 {
				printlnFn("usage: upload <path>")
				continue
			}
			err = a.Upload(ctx, args[0])
		case "import-file":
			if len(args) != 1 {
				printlnFn("usage: import-file <fileId>")
				continue
			}
			err = a.ImportFile(ctx, args[0])
		case "import-sheet":
			if len(args) < 1 || len(args) > 2 {
				printlnFn("usage: import-sheet <sheetId> [tab]")
				continue
			}
			tab := ""
			if len(args) == 2 {
				tab = args[1]
			}
			err = a.ImportSheet(ctx, args[0], tab)
		case "dataset":
			if len(args) != 1 {
				printlnFn("usage: dataset <id>")
				continue
			}
			err = a.Dataset(ctx, args[0])
		case "authorize":
			err = a.Authorize(ctx)
		case "status":
			err = a.Status(ctx)
		case "logout":
			err = a.Logout(ctx)
		default:
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
