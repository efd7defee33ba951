package adapters

import (
	"context"
	"fmt"
	"io"
	"strings"

	"course-importer/core/adapter"
	"course-importer/core/record"

	"github.com/xuri/excelize/v2"
)

// XLSXID identifies the spreadsheet adapter.
const XLSXID = "xlsx_v1"

// XLSX reads Excel workbooks. Each sheet holds one entity type named by the
// sheet ("Courses", "Users"); the first row of a sheet is the header.
type XLSX struct{}

// NewXLSX creates the spreadsheet adapter.
func NewXLSX() adapter.Adapter {
	return &XLSX{}
}

func (a *XLSX) Info() adapter.Info {
	return adapter.Info{ID: XLSXID, SupportedFormats: []string{".xlsx", ".xlsm"}}
}

func (a *XLSX) Parse(ctx context.Context, r io.Reader) ([]record.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var records []record.RawRecord
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		headers := rows[0]
		for i := 1; i < len(rows); i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fields := rowFields(headers, rows[i])
			if fields == nil {
				continue
			}
			records = append(records, record.RawRecord{
				EntityType: strings.TrimSpace(sheet),
				Row:        i + 1,
				Fields:     fields,
			})
		}
	}
	return records, nil
}

// rowFields maps headers to cells. Cells under blank headers are dropped;
// a row with no non-blank cell yields nil so it can be skipped.
func rowFields(headers, cells []string) map[string]any {
	fields := make(map[string]any, len(headers))
	blank := true
	for col, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			continue
		}
		var val string
		if col < len(cells) {
			val = cells[col]
		}
		if strings.TrimSpace(val) != "" {
			blank = false
		}
		fields[header] = val
	}
	if blank {
		return nil
	}
	return fields
}
