package snapshot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"reacttracker/clients"
	"reacttracker/models"
)

// FileStore persists the tracker snapshot as a single JSON file. Saves go
// through a temp file plus rename so readers never observe a partially
// written snapshot; a crash mid-save leaves the previous snapshot intact.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the snapshot. A missing or unreadable file yields an
// empty item list (cold start) rather than an error; only programming errors
// surface.
func (s *FileStore) Load(ctx context.Context, resolver clients.Resolver) ([]*models.TrackedItem, error) {
	log.Printf("📋 Starting to load snapshot from %s", s.path)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("📋 No snapshot file at %s - starting cold", s.path)
		} else {
			log.Printf("⚠️ Could not read snapshot at %s: %v - starting cold", s.path, err)
		}
		return nil, nil
	}

	items, err := Decode(ctx, data, resolver)
	if err != nil {
		log.Printf("⚠️ Snapshot at %s is not decodable: %v - starting cold", s.path, err)
		return nil, nil
	}

	log.Printf("📋 Completed successfully - loaded %d tracked items from snapshot", len(items))
	return items, nil
}

// Save atomically overwrites the snapshot with the given items.
func (s *FileStore) Save(ctx context.Context, items []*models.TrackedItem) error {
	log.Printf("📋 Starting to save snapshot with %d tracked items to %s", len(items), s.path)

	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	log.Printf("📋 Completed successfully - saved snapshot to %s", s.path)
	return nil
}
