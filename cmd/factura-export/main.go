package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/factura-export/internal/invoice"
	"github.com/zombor/factura-export/internal/source"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	rootFlags := ff.NewFlagSet("factura-export")
	var (
		workers     = rootFlags.IntLong("workers", runtime.NumCPU(), "Number of documents extracted in parallel")
		missingPart = rootFlags.StringLong("missing-part", invoice.DefaultMissingPart, "Text used for an absent invoice number component")
	)

	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	var (
		port       = serveFlags.IntLong("port", 8080, "HTTP server port")
		authUser   = serveFlags.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass   = serveFlags.StringLong("auth-pass", "", "Basic auth password (optional)")
		gmailLimit = serveFlags.IntLong("gmail-limit", 50, "Maximum number of Gmail messages inspected per import")
	)
	serveCmd := &ff.Command{
		Name:      "serve",
		Usage:     "factura-export serve [FLAGS]",
		ShortHelp: "run the HTTP API",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, args []string) error {
			extractor := invoice.NewExtractor(invoice.WithMissingPart(*missingPart))
			mail := source.NewGmail(source.WithMessageLimit(*gmailLimit))
			service := invoice.NewService(mail, extractor, *workers)
			basicAuth := invoice.BasicAuth{
				Username: *authUser,
				Password: *authPass,
			}
			return runServe(ctx, invoice.NewServer(service, basicAuth), *port, basicAuth)
		},
	}

	exportFlags := ff.NewFlagSet("export").SetParent(rootFlags)
	var (
		dir    = exportFlags.StringLong("dir", "", "Directory of XML invoices to read")
		out    = exportFlags.StringLong("out", "", "Output directory (writes to stdout when empty)")
		format = exportFlags.StringLong("format", "csv", "Export format: 'csv' or 'xlsx'")
	)
	exportCmd := &ff.Command{
		Name:      "export",
		Usage:     "factura-export export [FLAGS] [FILE...]",
		ShortHelp: "extract local XML invoices and write a spreadsheet",
		Flags:     exportFlags,
		Exec: func(ctx context.Context, args []string) error {
			extractor := invoice.NewExtractor(invoice.WithMissingPart(*missingPart))
			service := invoice.NewService(nil, extractor, *workers)
			return runExport(ctx, service, exportConfig{
				Dir:    *dir,
				Files:  args,
				Out:    *out,
				Format: *format,
			}, os.Stdout)
		},
	}

	root := &ff.Command{
		Name:        "factura-export",
		Usage:       "factura-export <SUBCOMMAND> [FLAGS]",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{serveCmd, exportCmd},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix("FACTURA_EXPORT"))
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp), errors.Is(err, ff.ErrNoExec):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
	default:
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, server *invoice.Server, port int, basicAuth invoice.BasicAuth) error {
	addr := fmt.Sprintf(":%d", port)
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if basicAuth.Username != "" || basicAuth.Password != "" {
		slog.Info("Basic auth enabled", "user", basicAuth.Username)
	}

	select {
	case err := <-errc:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	return nil
}
