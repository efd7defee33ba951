package adapter

import (
	"context"
	"fmt"
	"strings"

	"course-importer/core/record"

	"github.com/cockroachdb/errors"
)

// Batch is the outcome of parsing and validating one document.
// Failures never abort the batch; the caller decides whether partial
// data is acceptable.
type Batch struct {
	// Records are the canonical records that passed validation, in source order.
	Records []record.CanonicalRecord

	// Failures are the records that did not, in source order.
	Failures []record.ValidationFailure

	// Warnings are non-fatal observations such as ignored columns.
	Warnings []string

	// Total is the number of raw records the adapter produced.
	Total int
}

// Dispatcher resolves adapters and runs parse + validate for a document.
// It has no persistence access.
type Dispatcher struct {
	registry  *Registry
	validator *record.Validator
}

// NewDispatcher creates a dispatcher over a registry and a validator.
func NewDispatcher(registry *Registry, validator *record.Validator) *Dispatcher {
	return &Dispatcher{registry: registry, validator: validator}
}

// Adapters lists the registered adapter descriptors.
func (d *Dispatcher) Adapters() []Info {
	return d.registry.List()
}

// Resolve returns the adapter for id after checking that it is usable
// for the document. It never opens the document.
func (d *Dispatcher) Resolve(adapterID string, doc Document) (Adapter, error) {
	a, ok := d.registry.Get(adapterID)
	if !ok {
		return nil, d.dispatchError(adapterID, "not registered")
	}
	if a == nil {
		return nil, d.dispatchError(adapterID, "registered without an implementation")
	}

	info := a.Info()
	if info.ID != adapterID {
		return nil, d.dispatchError(adapterID, fmt.Sprintf("implementation reports id %q", info.ID))
	}
	if doc != nil && !info.Supports(doc.Name()) {
		err := &DispatchError{
			AdapterID: adapterID,
			Reason:    fmt.Sprintf("unsupported file %q", doc.Name()),
		}
		return nil, errors.WithHintf(err, "supported formats: %s", strings.Join(info.SupportedFormats, ", "))
	}
	return a, nil
}

// LoadAndParse resolves the adapter and parses the document into raw records.
// Dispatch failures are reported before any document bytes are read.
func (d *Dispatcher) LoadAndParse(ctx context.Context, adapterID string, doc Document) ([]record.RawRecord, error) {
	a, err := d.Resolve(adapterID, doc)
	if err != nil {
		return nil, err
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, &DocumentError{Document: doc.Name(), Err: err}
	}
	defer rc.Close()

	raws, err := a.Parse(ctx, rc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &DocumentError{Document: doc.Name(), Err: err}
	}
	return raws, nil
}

// ParseAndValidate runs LoadAndParse and validates every raw record,
// collecting failures instead of stopping at the first one.
func (d *Dispatcher) ParseAndValidate(ctx context.Context, adapterID string, doc Document) (*Batch, error) {
	raws, err := d.LoadAndParse(ctx, adapterID, doc)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Total: len(raws)}
	reported := make(map[string]struct{})

	for _, raw := range raws {
		for _, col := range d.validator.UnknownFields(raw) {
			key := raw.EntityType + "\x00" + col
			if _, seen := reported[key]; seen {
				continue
			}
			reported[key] = struct{}{}
			batch.Warnings = append(batch.Warnings, fmt.Sprintf("ignoring unknown column %q for %s records", col, raw.EntityType))
		}

		rec, failure := d.validator.Validate(raw)
		if failure != nil {
			batch.Failures = append(batch.Failures, *failure)
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	return batch, nil
}

func (d *Dispatcher) dispatchError(adapterID, reason string) error {
	err := &DispatchError{AdapterID: adapterID, Reason: reason}
	return errors.WithHintf(err, "registered adapters: %s", strings.Join(d.registry.IDs(), ", "))
}
