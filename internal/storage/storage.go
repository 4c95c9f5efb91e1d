package storage

import "context"

// Storage abstracts persistence of the full registry+portfolio snapshot.
// Writes are whole-snapshot replacements; partial or merge writes are not
// supported by any backend.
type Storage interface {
	// Load reads the persisted snapshot. A missing or unreadable snapshot
	// is a cold start, not an error: backends log and return an empty
	// snapshot in that case.
	Load(ctx context.Context) (Snapshot, error)

	// Save overwrites the persisted state with the given snapshot.
	Save(ctx context.Context, snap Snapshot) error

	// Close releases any resources (no-op for memory and file backends).
	Close() error
}
