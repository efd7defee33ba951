package adapters

import (
	"course-importer/core/adapter"
)

// DefaultID is the adapter used when none is requested.
const DefaultID = XLSXID

// Factories returns the built-in adapters keyed by id.
func Factories() map[string]adapter.Factory {
	return map[string]adapter.Factory{
		XLSXID: NewXLSX,
		CSVID:  NewCSV,
		YAMLID: NewYAML,
	}
}

// NewRegistry returns a registry holding every built-in adapter.
func NewRegistry() *adapter.Registry {
	return adapter.NewRegistry(Factories())
}
