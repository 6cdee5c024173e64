// store/audit_store.go
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"

	"github.com/seqlab/amrsync/models"
)

// AuditStore grows the append-only audit table: one row per successfully
// committed per-genome fetch. Rows are never mutated; the header is written
// exactly once, when the table is first created.
type AuditStore struct {
	path string
}

func NewAuditStore(path string) *AuditStore {
	return &AuditStore{path: path}
}

// Append writes one audit row, creating the table (and its header) on first
// use.
func (s *AuditStore) Append(rec models.AuditRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	info, err := os.Stat(s.path)
	writeHeader := errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat audit table %s: %w", s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit table %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = writeHeader

	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// Load reads the whole audit table. Missing table means no ingestions yet.
func (s *AuditStore) Load() ([]models.AuditRecord, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit table %s: %w", s.path, err)
	}

	var records []models.AuditRecord
	if err := csvutil.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode audit table %s: %w", s.path, err)
	}
	return records, nil
}

// Reset truncates the table. The next Append starts over with a fresh
// header. Used by the full-reset mode.
func (s *AuditStore) Reset() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to reset audit table %s: %w", s.path, err)
	}
	return nil
}
