// store/wal_store.go
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/seqlab/amrsync/models"
)

// WALStore persists the write-ahead log: one row per mirrored file with the
// remote modification time last committed for it. The table is a flat CSV
// file reloaded fresh before every read and rewritten whole on every
// update. Single-writer assumption; concurrent pipeline runs must be
// serialized externally.
type WALStore struct {
	path string
}

func NewWALStore(path string) *WALStore {
	return &WALStore{path: path}
}

// Load returns every WAL row in file order. A missing or empty store is not
// an error: it simply means nothing has been committed yet.
func (s *WALStore) Load() ([]models.WALRecord, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL table %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var records []models.WALRecord
	if err := csvutil.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode WAL table %s: %w", s.path, err)
	}
	for i := range records {
		// Timestamps are interpreted in a fixed zone regardless of how
		// they were serialized.
		records[i].LastModified = records[i].LastModified.UTC()
	}
	return records, nil
}

// Lookup returns the committed modification time for filename, if any.
func (s *WALStore) Lookup(filename string) (time.Time, bool, error) {
	records, err := s.Load()
	if err != nil {
		return time.Time{}, false, err
	}
	for _, rec := range records {
		if rec.Filename == filename {
			return rec.LastModified, true, nil
		}
	}
	return time.Time{}, false, nil
}

// Upsert removes any existing row for filename, appends a fresh row and
// persists the full table. The containing directory is created if absent.
func (s *WALStore) Upsert(filename string, lastModified time.Time) error {
	records, err := s.Load()
	if err != nil {
		return err
	}

	kept := make([]models.WALRecord, 0, len(records)+1)
	for _, rec := range records {
		if rec.Filename != filename {
			kept = append(kept, rec)
		}
	}
	kept = append(kept, models.WALRecord{
		Filename:     filename,
		LastModified: lastModified.UTC(),
	})

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create WAL directory: %w", err)
	}

	data, err := csvutil.Marshal(kept)
	if err != nil {
		return fmt.Errorf("failed to encode WAL table: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write WAL table %s: %w", s.path, err)
	}
	return nil
}
