package adapters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"course-importer/core/adapter"
	"course-importer/core/record"
)

// CSVID identifies the CSV adapter.
const CSVID = "csv_v1"

// entityTypeColumn selects the entity type per row; rows without it are courses.
const entityTypeColumn = "entity_type"

// CSV reads comma-separated files with a header row.
type CSV struct {
	// DefaultEntityType is used when the file has no entity_type column.
	DefaultEntityType string
}

// NewCSV creates the CSV adapter.
func NewCSV() adapter.Adapter {
	return &CSV{DefaultEntityType: "course"}
}

func (a *CSV) Info() adapter.Info {
	return adapter.Info{ID: CSVID, SupportedFormats: []string{".csv"}}
}

func (a *CSV) Parse(ctx context.Context, r io.Reader) ([]record.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	typeCol := -1
	for i, h := range headers {
		if record.CanonicalName(h) == entityTypeColumn {
			typeCol = i
			headers[i] = ""
		}
	}

	var records []record.RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		fields := rowFields(headers, cells)
		if fields == nil {
			continue
		}

		entityType := a.DefaultEntityType
		if typeCol >= 0 && typeCol < len(cells) && strings.TrimSpace(cells[typeCol]) != "" {
			entityType = strings.TrimSpace(cells[typeCol])
		}
		records = append(records, record.RawRecord{EntityType: entityType, Row: line, Fields: fields})
	}
	return records, nil
}
