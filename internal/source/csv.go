package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeToUTF8 strips a UTF-8 BOM and falls back to Latin-1 when the bytes
// are not valid UTF-8. HR exports from Brazilian payroll systems routinely
// arrive in ISO 8859-1.
func decodeToUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode latin-1 input: %w", err)
	}
	return decoded, nil
}

// parseCSV parses CSV bytes into a header slice and rows of named fields.
// Headerless files take their column names from spec.ColumnNames; a
// non-headerless spec with ColumnNames set has its header row replaced
// (some exports ship wrong or absent labels). Mismatched column counts are
// padded or truncated with a warning rather than rejected; real-world
// exports are rarely perfectly rectangular.
func parseCSV(data []byte, spec Spec) (headers []string, rows []Row, warnings []string, err error) {
	decoded, err := decodeToUTF8(data)
	if err != nil {
		return nil, nil, nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if spec.Headerless {
		if len(spec.ColumnNames) == 0 {
			return nil, nil, nil, fmt.Errorf("headerless source %s has no column names configured", spec.Name)
		}
		headers = spec.ColumnNames
	} else {
		headers, err = reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, nil, fmt.Errorf("empty file: no header row found")
			}
			return nil, nil, nil, fmt.Errorf("failed to read header row: %w", err)
		}
		if len(spec.ColumnNames) > 0 {
			headers = spec.ColumnNames
		}
		for i, h := range headers {
			headers[i] = strings.TrimSpace(h)
		}
	}

	rowNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: parse error: %v", rowNum, err))
			continue
		}

		if len(record) != len(headers) {
			if len(record) < len(headers) {
				warnings = append(warnings,
					fmt.Sprintf("row %d: %d columns, expected %d; padding", rowNum, len(record), len(headers)))
				padded := make([]string, len(headers))
				copy(padded, record)
				record = padded
			} else {
				warnings = append(warnings,
					fmt.Sprintf("row %d: %d columns, expected %d; truncating", rowNum, len(record), len(headers)))
				record = record[:len(headers)]
			}
		}

		if blankRecord(record) {
			continue
		}

		row := make(Row, len(headers))
		for i, h := range headers {
			row[h] = record[i]
		}
		rows = append(rows, row)
	}

	return headers, rows, warnings, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
