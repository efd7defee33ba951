package adapter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Document is an input to an import. Name is available without reading
// any bytes so that dispatch checks can run before Open is called.
type Document interface {
	// Name returns the document's file name, used for extension checks.
	Name() string

	// Open returns a reader over the document's contents.
	Open() (io.ReadCloser, error)
}

type fileDocument struct {
	path string
	name string
}

// FileDocument returns a Document backed by a file on disk.
func FileDocument(path string) Document {
	return &fileDocument{path: path, name: filepath.Base(path)}
}

// NamedFileDocument returns a Document backed by a file on disk but reported
// under a different name, e.g. an upload stored under a temporary path.
func NamedFileDocument(path, name string) Document {
	return &fileDocument{path: path, name: name}
}

func (d *fileDocument) Name() string { return d.name }

func (d *fileDocument) Open() (io.ReadCloser, error) {
	return os.Open(d.path)
}

type bytesDocument struct {
	name string
	data []byte
}

// BytesDocument returns a Document backed by an in-memory buffer.
func BytesDocument(name string, data []byte) Document {
	return &bytesDocument{name: name, data: data}
}

func (d *bytesDocument) Name() string { return d.name }

func (d *bytesDocument) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(d.data)), nil
}
