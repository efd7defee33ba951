package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"

	"course-importer/core/adapter"
	"course-importer/core/record"

	"gopkg.in/yaml.v3"
)

// YAMLID identifies the YAML adapter.
const YAMLID = "yaml_v1"

// YAML reads documents shaped as a mapping from entity type to a list of records:
//
//	courses:
//	  - course_number: CS101
//	    course_title: Intro to CS
//	users:
//	  - email: ada@example.edu
type YAML struct{}

// NewYAML creates the YAML adapter.
func NewYAML() adapter.Adapter {
	return &YAML{}
}

func (a *YAML) Info() adapter.Info {
	return adapter.Info{ID: YAMLID, SupportedFormats: []string{".yaml", ".yml"}}
}

func (a *YAML) Parse(ctx context.Context, r io.Reader) ([]record.RawRecord, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of entity type to records", root.Line)
	}

	// Walk the mapping node directly so records keep document order.
	var records []record.RawRecord
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, listNode := root.Content[i], root.Content[i+1]
		if listNode.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: %q must be a list of records", listNode.Line, keyNode.Value)
		}

		for _, item := range listNode.Content {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var fields map[string]any
			if err := item.Decode(&fields); err != nil {
				return nil, fmt.Errorf("line %d: %w", item.Line, err)
			}
			records = append(records, record.RawRecord{
				EntityType: keyNode.Value,
				Row:        item.Line,
				Fields:     fields,
			})
		}
	}
	return records, nil
}
