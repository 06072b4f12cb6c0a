// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest parses uploaded anomaly spreadsheets into ordered,
// header-keyed rows. Parsing is tolerant per row: a malformed row is
// emitted with an error marker, and only a whole-file failure (unreadable
// encoding, unopenable archive, missing header) aborts the parse.
package ingest

import (
	"fmt"

	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// Format declares how the raw bytes should be parsed.
type Format string

const (
	// FormatCSV is comma-delimited text with a header row.
	FormatCSV Format = "csv"

	// FormatXLSX is the spreadsheet-binary (OOXML workbook) format.
	FormatXLSX Format = "xlsx"
)

// Row is one parsed data row. Values is keyed by the source header label
// exactly as it appeared in the file; header drift is resolved later by
// RowView, not here.
type Row struct {
	// Number is the 1-based row number in the source file, counting the
	// header as row 1.
	Number int

	// Values maps source header label to cell value.
	Values map[string]string

	// Err is non-empty when the row was malformed and carries no values.
	Err string
}

// Output holds the ordered rows and the header labels in file order.
type Output struct {
	Headers []string
	Rows    []Row
}

// IngestionError is the fatal, whole-file failure class. Anything wrapped
// in it aborts the run before any record is written.
type IngestionError struct {
	File string
	Err  error
}

func (e *IngestionError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("ingestion failed: %v", e.Err)
	}
	return fmt.Sprintf("ingestion of %s failed: %v", e.File, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Parse converts raw bytes into ordered rows according to the declared
// format. The returned error, when non-nil, is always an *IngestionError.
func Parse(data []byte, format Format, cfg types.IngestionConfig) (*Output, error) {
	switch format {
	case FormatCSV:
		return parseCSV(data)
	case FormatXLSX:
		return parseXLSX(data, cfg.SheetName)
	default:
		return nil, &IngestionError{Err: fmt.Errorf("unsupported format %q", format)}
	}
}
