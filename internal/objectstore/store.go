// Package objectstore abstracts read-only access to externally
// provisioned artifacts: the schema document and the database file.
package objectstore

import "context"

// Store fetches objects by key. Implementations are read-only; nothing
// in the pipeline ever writes back to the store.
type Store interface {
	// Fetch returns the full contents of the object stored under key.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Download copies the object stored under key to a local file path,
	// creating parent directories as needed.
	Download(ctx context.Context, key, destPath string) error
}
