package adapter

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"course-importer/core/record"
)

// Info describes an adapter to callers. It is immutable once the adapter
// is registered.
type Info struct {
	// ID is the stable identifier used to select the adapter (e.g., "xlsx_v1").
	ID string `json:"id"`

	// SupportedFormats lists the file extensions the adapter accepts,
	// lowercase and with the leading dot (e.g., ".xlsx").
	SupportedFormats []string `json:"supported_formats"`
}

// Supports reports whether a document name carries one of the supported extensions.
func (i Info) Supports(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext != "" && slices.Contains(i.SupportedFormats, ext)
}

// Adapter turns one document format into raw records.
// Implementations must be stateless; the registry may hand the same
// instance to concurrent imports.
type Adapter interface {
	// Info returns the adapter id and supported extensions.
	Info() Info

	// Parse reads the whole document and returns its records in source order.
	// Row numbers on the returned records are 1-based positions in the source.
	Parse(ctx context.Context, r io.Reader) ([]record.RawRecord, error)
}

// Factory constructs an adapter. It is called once, at registration.
type Factory func() Adapter
