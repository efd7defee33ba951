package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"course-importer/core/adapter"

	"go.uber.org/zap"
)

// removeFile is swapped in tests to simulate deletion failures.
var removeFile = os.Remove

// TempFile is a document copied to local disk for the duration of an import.
// Release must be called on every path once the file is no longer needed.
type TempFile struct {
	// Path is the location on disk.
	Path string
	// Name is the original file name, used for extension checks and reports.
	Name string

	logger *zap.Logger
	once   sync.Once
}

// Document exposes the file under its original name.
func (f *TempFile) Document() adapter.Document {
	return adapter.NamedFileDocument(f.Path, f.Name)
}

// Release deletes the file. Deletion failures are logged, never returned,
// so Release is safe to defer. Calling it more than once is a no-op.
func (f *TempFile) Release() {
	f.once.Do(func() {
		if err := removeFile(f.Path); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("Failed to delete temporary file",
				zap.String("path", f.Path),
				zap.String("name", f.Name),
				zap.Error(err),
			)
		}
	})
}

// Save copies r into a new temporary file under dir (the system default
// when empty). The original name's extension is kept so adapters can check
// it. On error no file is left behind.
func Save(dir, name string, r io.Reader, logger *zap.Logger) (*TempFile, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.CreateTemp(dir, "import-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := &TempFile{Path: f.Name(), Name: filepath.Base(name), logger: logger}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		tmp.Release()
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		tmp.Release()
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}
	return tmp, nil
}

// With saves r to a temporary file, runs fn and deletes the file afterwards,
// also when fn returns an error or panics.
func With(dir, name string, r io.Reader, logger *zap.Logger, fn func(*TempFile) error) error {
	tmp, err := Save(dir, name, r, logger)
	if err != nil {
		return err
	}
	defer tmp.Release()
	return fn(tmp)
}
