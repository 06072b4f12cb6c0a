// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseCSV reads comma-delimited bytes into header-keyed rows. Variable
// column counts are tolerated: short rows are padded with empty values,
// long rows keep only the headed columns. Blank lines are skipped and a
// malformed row becomes a Row with its Err marker set.
func parseCSV(data []byte) (*Output, error) {
	decoded, err := decodeToUTF8(data)
	if err != nil {
		return nil, &IngestionError{Err: err}
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &IngestionError{Err: fmt.Errorf("empty file: no header row")}
		}
		return nil, &IngestionError{Err: fmt.Errorf("reading header row: %w", err)}
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	out := &Output{Headers: headers}
	rowNum := 1 // the header is row 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			out.Rows = append(out.Rows, Row{Number: rowNum, Err: err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}

		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				values[h] = record[i]
			} else {
				values[h] = ""
			}
		}
		out.Rows = append(out.Rows, Row{Number: rowNum, Values: values})
	}

	return out, nil
}

// isBlank reports whether every cell of the record is empty or whitespace.
func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
