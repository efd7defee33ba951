package upload

import (
	"context"
	"errors"
	"fmt"
	"path"

	"course-importer/core/adapter"
	"course-importer/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ErrStorageDisabled is returned for s3:// locations when no storage client is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

// Fetcher turns a document location into a readable Document. Local paths
// are used in place; "s3://bucket/key" locations are downloaded into a
// temporary file.
type Fetcher struct {
	client storage.Client
	dir    string
	logger *zap.Logger
}

// NewFetcher creates a fetcher. client may be nil when object storage is not used.
func NewFetcher(client storage.Client, dir string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, dir: dir, logger: logger}
}

// Resolve returns the document at location and a release func that must be
// called when the import is done.
func (f *Fetcher) Resolve(ctx context.Context, location string) (adapter.Document, func(), error) {
	bucket, key, ok := storage.ParseURI(location)
	if !ok {
		return adapter.FileDocument(location), func() {}, nil
	}
	if f.client == nil {
		return nil, nil, ErrStorageDisabled
	}

	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, &adapter.DocumentError{Document: location, Err: err}
	}
	defer obj.Close()

	f.logger.Debug("Downloading document", zap.String("bucket", bucket), zap.String("key", key))

	tmp, err := Save(f.dir, path.Base(key), obj, f.logger)
	if err != nil {
		return nil, nil, &adapter.DocumentError{Document: location, Err: fmt.Errorf("download: %w", err)}
	}
	return tmp.Document(), tmp.Release, nil
}
