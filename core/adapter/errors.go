package adapter

import (
	"fmt"
)

// DispatchError reports an unknown or misconfigured adapter. It is always
// returned before the document is opened.
type DispatchError struct {
	AdapterID string
	Reason    string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("adapter %q: %s", e.AdapterID, e.Reason)
}

// DocumentError reports a document that could not be read or parsed.
// No records are produced when it is returned.
type DocumentError struct {
	Document string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %q: %v", e.Document, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
