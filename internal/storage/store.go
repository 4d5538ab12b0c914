// Package storage defines the object-store collaborator that receives
// rendered report artifacts. The engine hands bytes to it and records the
// returned locations; it never reads them back.
package storage

import "context"

// ObjectStore is interface-driven so the render pipeline can run against an
// in-memory backend in tests and an external blob service in production
// without rewiring business code.
type ObjectStore interface {
	// Put stores data under path and returns the stable URL of the object.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)

	// Exists reports whether the bucket is provisioned.
	Exists(ctx context.Context, bucket string) (bool, error)

	// EnsureBucket provisions the bucket if it does not exist. Idempotent.
	EnsureBucket(ctx context.Context, bucket string) error
}
