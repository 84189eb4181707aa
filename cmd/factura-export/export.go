package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zombor/factura-export/internal/invoice"
	"github.com/zombor/factura-export/internal/source"
)

var (
	errNoInput    = errors.New("no XML files given: use --dir or pass file paths")
	errNoInvoices = errors.New("no se pudieron procesar los archivos o no contenían datos de factura válidos")
)

// exportConfig holds the inputs of one export run
type exportConfig struct {
	Dir    string
	Files  []string
	Out    string
	Format string
}

// runExport extracts the configured documents and writes the spreadsheet to
// cfg.Out, or to stdout when no output directory is set.
func runExport(ctx context.Context, service *invoice.Service, cfg exportConfig, stdout io.Writer) error {
	format, err := invoice.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	local := source.NewLocal()
	var docs []source.Document
	if cfg.Dir != "" {
		dirDocs, err := local.ReadDir(cfg.Dir)
		if err != nil {
			return err
		}
		docs = append(docs, dirDocs...)
	}
	if len(cfg.Files) > 0 {
		fileDocs, err := local.ReadFiles(cfg.Files)
		if err != nil {
			return err
		}
		docs = append(docs, fileDocs...)
	}
	if len(docs) == 0 {
		return errNoInput
	}

	batch := service.ProcessDocuments(ctx, docs)
	slog.Info("Invoices processed",
		"succeeded", batch.Succeeded,
		"failed", batch.Failed,
	)
	if batch.Empty() {
		return errNoInvoices
	}

	var buf bytes.Buffer
	if err := service.Export(&buf, batch.Records, format); err != nil {
		return fmt.Errorf("exporting invoices: %w", err)
	}

	if cfg.Out == "" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		return nil
	}

	store, err := invoice.NewLocalStorage(cfg.Out)
	if err != nil {
		return err
	}
	path, err := store.Save(format.FileName(), buf.Bytes())
	if err != nil {
		return err
	}
	slog.Info("Export written", "path", path, "records", len(batch.Records))
	return nil
}
