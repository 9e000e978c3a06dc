// Package snapshot stores and retrieves region images. A snapshot is
// the raw region byte-for-byte — the on-region layout is the persisted
// format, so saving and restoring never reinterprets the contents. The
// daemon uses a store to back up the mapped region and to seed a fresh
// backing file from an earlier image.
package snapshot

import (
	"context"
	"errors"
)

// ErrNotFound indicates the named snapshot does not exist in the store.
var ErrNotFound = errors.New("snapshot not found")

// Store persists region images under caller-chosen names.
//
// Implementations must treat the image as opaque bytes and return it
// unchanged on Load; a region restored from a snapshot must resume
// identically to the one that was saved.
type Store interface {
	// Save persists image under name, replacing any previous snapshot
	// with the same name.
	Save(ctx context.Context, name string, image []byte) error

	// Load retrieves the snapshot named name. Returns ErrNotFound when
	// no such snapshot exists.
	Load(ctx context.Context, name string) ([]byte, error)

	// List returns the names of all stored snapshots.
	List(ctx context.Context) ([]string, error)
}
