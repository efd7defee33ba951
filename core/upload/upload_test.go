package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"course-importer/core/adapter"
	"course-importer/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSave_KeepsExtensionAndName(t *testing.T) {
	dir := t.TempDir()

	tmp, err := Save(dir, "uploads/Courses.xlsx", strings.NewReader("data"), zap.NewNop())
	require.NoError(t, err)
	defer tmp.Release()

	assert.Equal(t, ".xlsx", filepath.Ext(tmp.Path))
	assert.Equal(t, "Courses.xlsx", tmp.Name)
	assert.Equal(t, "Courses.xlsx", tmp.Document().Name())

	data, err := os.ReadFile(tmp.Path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSave_CleansUpOnWriteFailure(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(dir, "a.csv", failingReader{}, nil)
	require.Error(t, err)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestWith_DeletesOnEveryPath(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var path string
		err := With(t.TempDir(), "a.csv", strings.NewReader("x"), nil, func(f *TempFile) error {
			path = f.Path
			return nil
		})
		require.NoError(t, err)
		assert.NoFileExists(t, path)
	})

	t.Run("error", func(t *testing.T) {
		var path string
		err := With(t.TempDir(), "a.csv", strings.NewReader("x"), nil, func(f *TempFile) error {
			path = f.Path
			return errors.New("parse failed")
		})
		assert.EqualError(t, err, "parse failed")
		assert.NoFileExists(t, path)
	})

	t.Run("panic", func(t *testing.T) {
		var path string
		assert.Panics(t, func() {
			_ = With(t.TempDir(), "a.csv", strings.NewReader("x"), nil, func(f *TempFile) error {
				path = f.Path
				panic("boom")
			})
		})
		assert.NoFileExists(t, path)
	})
}

func TestRelease_LogsDeletionFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tmp, err := Save(t.TempDir(), "a.csv", strings.NewReader("x"), zap.New(core))
	require.NoError(t, err)

	original := removeFile
	removeFile = func(string) error { return errors.New("device busy") }
	defer func() { removeFile = original }()

	assert.NotPanics(t, tmp.Release)
	tmp.Release()

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Failed to delete temporary file", entry.Message)
	assert.Equal(t, "device busy", entry.ContextMap()["error"])
}

func TestFetcher_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("local path", func(t *testing.T) {
		f := NewFetcher(nil, "", nil)
		doc, release, err := f.Resolve(ctx, "/data/courses.csv")
		require.NoError(t, err)
		defer release()
		assert.Equal(t, "courses.csv", doc.Name())
	})

	t.Run("s3 without storage", func(t *testing.T) {
		f := NewFetcher(nil, "", nil)
		_, _, err := f.Resolve(ctx, "s3://imports/courses.csv")
		assert.ErrorIs(t, err, ErrStorageDisabled)
	})

	t.Run("s3 download", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", ctx, "imports", "2026/courses.csv", minio.GetObjectOptions{}).
			Return(io.NopCloser(bytes.NewReader([]byte("course_number\nCS101\n"))), nil)

		f := NewFetcher(client, t.TempDir(), nil)
		doc, release, err := f.Resolve(ctx, "s3://imports/2026/courses.csv")
		require.NoError(t, err)
		assert.Equal(t, "courses.csv", doc.Name())

		rc, err := doc.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		assert.Equal(t, "course_number\nCS101\n", string(data))

		release()
		entries, _ := os.ReadDir(f.dir)
		assert.Empty(t, entries, "release removes the downloaded copy")
	})

	t.Run("s3 missing object", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("GetObject", ctx, "imports", "nope.csv", minio.GetObjectOptions{}).
			Return(nil, errors.New("The specified key does not exist."))

		f := NewFetcher(client, t.TempDir(), nil)
		_, _, err := f.Resolve(ctx, "s3://imports/nope.csv")
		var docErr *adapter.DocumentError
		require.ErrorAs(t, err, &docErr)
		assert.Equal(t, "s3://imports/nope.csv", docErr.Document)
	})
}
