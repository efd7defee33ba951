// Package adapter defines the format adapter contract and the dispatcher
// that turns a document into validated records.
//
// Adapters are registered statically in a Registry, keyed by id. The
// Dispatcher resolves an id, checks the document's extension against the
// adapter's supported formats, and only then opens the document. Any
// problem found before that point is a *DispatchError; a document that
// cannot be read or parsed is a *DocumentError.
//
//	registry := adapter.NewRegistry(map[string]adapter.Factory{
//	    "xlsx_v1": adapters.NewXLSX,
//	})
//	d := adapter.NewDispatcher(registry, validator)
//	batch, err := d.ParseAndValidate(ctx, "xlsx_v1", adapter.FileDocument("courses.xlsx"))
package adapter
