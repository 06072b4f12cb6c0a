// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the named worksheet (or the first one) of a workbook
// into header-keyed rows. The first non-blank row is the header. Cell
// values arrive as already-formatted strings, so row-level parse errors
// cannot occur here; an unopenable archive or missing sheet is fatal.
func parseXLSX(data []byte, sheetName string) (*Output, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &IngestionError{Err: fmt.Errorf("opening workbook: %w", err)}
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &IngestionError{Err: fmt.Errorf("workbook has no sheets")}
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, &IngestionError{Err: fmt.Errorf("reading sheet %q: %w", sheetName, err)}
	}

	out := &Output{}
	rowNum := 0

	for _, record := range rows {
		rowNum++
		if isBlank(record) {
			continue
		}

		if out.Headers == nil {
			headers := make([]string, len(record))
			for i, h := range record {
				headers[i] = strings.TrimSpace(h)
			}
			out.Headers = headers
			continue
		}

		values := make(map[string]string, len(out.Headers))
		for i, h := range out.Headers {
			if i < len(record) {
				values[h] = record[i]
			} else {
				values[h] = ""
			}
		}
		out.Rows = append(out.Rows, Row{Number: rowNum, Values: values})
	}

	if out.Headers == nil {
		return nil, &IngestionError{Err: fmt.Errorf("sheet %q has no header row", sheetName)}
	}
	return out, nil
}
