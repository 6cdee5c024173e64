// models/meta.go
package models

import "time"

// WALRecord is one row of the write-ahead log table: the remote modification
// time we last committed for a mirrored file. The table keeps at most one row
// per filename; upserts remove the old row and append the new one.
type WALRecord struct {
	Filename     string    `csv:"filename"`
	LastModified time.Time `csv:"last_modified"`
}

// RemoteFileInfo holds the metadata parsed out of a single directory-listing
// line for one remote file. Derived per listing call, never persisted.
type RemoteFileInfo struct {
	Filename     string
	LastModified time.Time // normalized to UTC
	Size         int64     // bytes; 0 means the remote copy is empty/corrupt
}

// AuditRecord is one row of the append-only ingestion audit table. A row is
// written for every successfully committed per-genome fetch.
type AuditRecord struct {
	IngestionTime time.Time `csv:"ingestion_time"`
	GenomeName    string    `csv:"genome_name"`
	GenomeID      string    `csv:"genome_id"`
}

// UpdateStatus is the change detector's verdict for one remote file.
// SizeZero-style conditions are surfaced via Size rather than folded into
// Changed: an empty remote copy means ingestion of that file must be
// aborted, not attempted.
type UpdateStatus struct {
	Changed      bool
	LastModified time.Time
	Size         int64
}
