// Package storage provides the object store adapter: presigned upload
// URL issuance plus fetch, delete and list against the image bucket.
package storage

import (
	"context"
	"errors"
	"time"
)

// UploadContentType is the canonical content type bound into presigned
// PUT URLs; the confirm pipeline re-derives everything else from bytes.
const UploadContentType = "image/jpeg"

// ErrObjectNotFound is returned by FetchObject when the key is absent.
// DeleteObject never returns it; deleting a missing key is a no-op so
// cleanup callers stay idempotent.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// ObjectStore is the contract every bucket backend implements.
type ObjectStore interface {
	// IssueUploadURL returns a time-limited URL for a single-object PUT
	// with the canonical content type.
	IssueUploadURL(ctx context.Context, key string) (string, error)

	// FetchObject returns the object bytes or ErrObjectNotFound.
	FetchObject(ctx context.Context, key string) ([]byte, error)

	// DeleteObject removes the object; a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ListObjects returns all objects under prefix ("" for the whole bucket).
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
