package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the named sheet (or the first sheet when sheetName is empty)
// and converts it like a CSV table: first row is the header.
func ReadXLSX(r io.Reader, sheetName string) ([]string, []RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, &SourceUnavailableError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, &SourceUnavailableError{Err: fmt.Errorf("workbook has no sheets")}
	}
	sheet := sheets[0]
	if sheetName != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, nil, &SourceUnavailableError{Err: fmt.Errorf("sheet %q not found; available sheets: %s",
				sheetName, strings.Join(sheets, ", "))}
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, &SourceUnavailableError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, nil, &SchemaMismatchError{Missing: append([]string(nil), Columns...)}
	}
	header := trimHeader(rows[0])
	idx, err := indexHeader(header)
	if err != nil {
		return nil, nil, err
	}
	var out []RawRecord
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec, err := idx.record(row, i+1)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}
	return header, out, nil
}
