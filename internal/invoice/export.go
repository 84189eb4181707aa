package invoice

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column is one column of the tabular export
type Column struct {
	Label   string
	Value   func(*Record) string
	Numeric bool
}

// Columns defines the export layout. Order and labels are fixed.
var Columns = []Column{
	{Label: "Fecha", Value: func(r *Record) string { return r.Date }},
	{Label: "Nº de Boleta", Value: func(r *Record) string { return r.InvoiceNumber }},
	{Label: "Ruc", Value: func(r *Record) string { return r.TaxID }},
	{Label: "Nombre", Value: func(r *Record) string { return r.IssuerName }},
	{Label: "Monto", Value: func(r *Record) string { return r.Amount }, Numeric: true},
	{Label: "Iva 10 %", Value: func(r *Record) string { return r.VAT10 }, Numeric: true},
	{Label: "Iva 5%", Value: func(r *Record) string { return r.VAT5 }, Numeric: true},
	{Label: "Total Iva", Value: func(r *Record) string { return r.VATTotal }, Numeric: true},
	{Label: "Timbrado", Value: func(r *Record) string { return r.StampNumber }},
}

const xlsxSheet = "Facturas"

// Format is a tabular export format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for an unsupported export format
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat parses a format name; an empty name means CSV
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FileName returns the download name for the format
func (f Format) FileName() string {
	return "facturas." + string(f)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Export writes records to w in the given format
func Export(w io.Writer, records []*Record, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

func headerRow() []string {
	header := make([]string, len(Columns))
	for i, c := range Columns {
		header[i] = c.Label
	}
	return header
}

// WriteCSV writes a header row and one row per record.
// Fields are quoted only when needed and every row ends with CRLF.
// Line feeds inside a field are written as CRLF; extracted text never carries a bare \r.
func WriteCSV(w io.Writer, records []*Record) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(headerRow()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	row := make([]string, len(Columns))
	for _, r := range records {
		for i, c := range Columns {
			row[i] = c.Value(r)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the records as a single-sheet workbook.
// Money columns are stored as numbers formatted with two decimals.
func WriteXLSX(w io.Writer, records []*Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, label := range headerRow() {
		header[i] = label
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing xlsx header: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("creating number style: %w", err)
	}
	for i, c := range Columns {
		if !c.Numeric {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("naming column: %w", err)
		}
		if err := f.SetColStyle(xlsxSheet, col, moneyStyle); err != nil {
			return fmt.Errorf("styling column %s: %w", col, err)
		}
	}

	for n, r := range records {
		row := make([]interface{}, len(Columns))
		for i, c := range Columns {
			value := c.Value(r)
			row[i] = value
			if c.Numeric {
				if d, err := decimal.NewFromString(value); err == nil {
					row[i] = d.InexactFloat64()
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", n+2, err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("writing xlsx row %s: %w", r.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}
	return nil
}
