package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/bher20/cryptofolio/internal/metrics"
)

// FileStorage persists the snapshot as a single indented JSON document,
// the same shape the original bot wrote: {user: {currency: {amount}}}.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Close() error { return nil }

// Load reads the snapshot file. A missing file is a cold start; a file
// that fails to parse is logged and also treated as a cold start. Both
// are deliberate lossy behaviors carried over from the original design.
func (f *FileStorage) Load(ctx context.Context) (Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("storage: snapshot %s not found, starting fresh", f.path)
			return Snapshot{}, nil
		}
		metrics.SnapshotErrorsTotal.WithLabelValues("load").Inc()
		log.Printf("storage: read snapshot %s failed, starting fresh: %v", f.path, err)
		return Snapshot{}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		metrics.SnapshotErrorsTotal.WithLabelValues("load").Inc()
		log.Printf("storage: snapshot %s is corrupt, starting fresh: %v", f.path, err)
		return Snapshot{}, nil
	}
	return snap.Normalize(), nil
}

// Save writes the full snapshot atomically (temp file + rename).
func (f *FileStorage) Save(ctx context.Context, snap Snapshot) error {
	metrics.SnapshotSavesTotal.Inc()

	payload, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		metrics.SnapshotErrorsTotal.WithLabelValues("save").Inc()
		return err
	}
	if err := writeFileAtomically(f.path, bytes.NewReader(payload)); err != nil {
		metrics.SnapshotErrorsTotal.WithLabelValues("save").Inc()
		return err
	}
	return nil
}

func writeFileAtomically(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
