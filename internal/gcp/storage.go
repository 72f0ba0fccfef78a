package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// A precondition failure means an earlier attempt already wrote it, which is not an error.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("SKIPPING: Object already exists.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("SKIPPING: Object already exists.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}

// BucketStore reads inputs from and writes outputs to Cloud Storage.
type BucketStore struct {
	client *storage.Client
}

// NewBucketStore creates a storage client with the given options.
func NewBucketStore(ctx context.Context, opts ...option.ClientOption) (*BucketStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return &BucketStore{client: client}, nil
}

// Read downloads gs://bucket/object into memory.
func (s *BucketStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// SaveAtomically writes the object unless it already exists.
func (s *BucketStore) SaveAtomically(ctx context.Context, bucket, object string, content []byte, contentType string) error {
	return SaveToGCSAtomically(ctx, s.client.Bucket(bucket), object, content, contentType)
}

// Client exposes the underlying storage client for sharing with an uploader.
func (s *BucketStore) Client() *storage.Client {
	return s.client
}

func (s *BucketStore) Close() error {
	return s.client.Close()
}

// BucketUploader is the bucket flavour of the remote storage collaborator. The parent
// folder ID becomes an object prefix. Writes are retried with exponential backoff.
type BucketUploader struct {
	client  *storage.Client
	bucket  string
	retries RetryPolicy
}

// NewBucketUploader uploads into bucket using an existing storage client.
func NewBucketUploader(client *storage.Client, bucket string) (*BucketUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("upload bucket must be provided")
	}
	return &BucketUploader{client: client, bucket: bucket, retries: DefaultRetryPolicy}, nil
}

// Create writes content to gs://bucket/parentFolderID/name and returns its gs:// URI.
func (u *BucketUploader) Create(ctx context.Context, name, parentFolderID string, content []byte, mimeType string) (string, error) {
	object := name
	if parentFolderID != "" {
		object = path.Join(parentFolderID, name)
	}
	err := u.retries.Do(ctx, object, func(ctx context.Context) error {
		writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
		defer cancel()

		gcsWriter := u.client.Bucket(u.bucket).Object(object).NewWriter(writeCtx)
		gcsWriter.ContentType = mimeType
		if _, err := io.Copy(gcsWriter, bytes.NewReader(content)); err != nil {
			_ = gcsWriter.Close()
			return fmt.Errorf("io.Copy to GCS failed: %w", err)
		}
		if err := gcsWriter.Close(); err != nil {
			return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, object), nil
}
