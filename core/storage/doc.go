// Package storage wraps the MinIO client for the two places imports touch
// object storage: fetching documents referenced as "s3://bucket/key" and
// archiving documents after a successful live import.
//
// Client is the narrow interface the rest of the module depends on; a
// testify mock lives in core/storage/mocks. NewClient builds a client with
// strict transport timeouts, and EnsureBucket creates the archive bucket on
// first use.
//
//	client, err := storage.NewClient(cfg.Storage)
//	bucket, key, ok := storage.ParseURI("s3://uploads/fall/courses.xlsx")
package storage
