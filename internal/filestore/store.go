// Package filestore publishes rendered schema snapshots to object storage.
//
// Providers implement Store; callers depend only on this package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "schemas")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := filestore.UploadSnapshot(ctx, store, cfg.Bucket, "app/public.yaml", snap, schema.FormatYAML)
//	info, url, err := filestore.ShareObject(ctx, store, cfg.Bucket, info.Key, time.Hour)
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/schema"
)

// MaxPresignTTL is the longest lifetime S3-compatible stores accept for a
// presigned URL.
const MaxPresignTTL = 7 * 24 * time.Hour

// Store is the interface all file storage providers implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// PutObject writes size bytes from r to key inside bucket.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// UploadSnapshot encodes s in format f and stores it at key.
func UploadSnapshot(ctx context.Context, st Store, bucket, key string, s *schema.Snapshot, f schema.Format) (*ObjectInfo, error) {
	var buf bytes.Buffer
	if err := schema.Encode(&buf, s, f); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return st.PutObject(ctx, bucket, key, &buf, int64(buf.Len()), f.ContentType())
}

// ShareObject confirms the object at key exists and returns its metadata
// together with a download URL valid for ttl.
func ShareObject(ctx context.Context, st Store, bucket, key string, ttl time.Duration) (*ObjectInfo, string, error) {
	if ttl < time.Second || ttl > MaxPresignTTL {
		return nil, "", errs.Newf(errs.ErrKindInvalidInput, "presign ttl %s out of range [1s, %s]", ttl, MaxPresignTTL)
	}

	info, err := st.StatObject(ctx, bucket, key)
	if err != nil {
		return nil, "", err
	}
	url, err := st.PresignGetURL(ctx, bucket, key, ttl)
	if err != nil {
		return nil, "", err
	}
	return info, url, nil
}
