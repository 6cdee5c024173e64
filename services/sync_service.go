// services/sync_service.go
package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seqlab/amrsync/config"
	"github.com/seqlab/amrsync/fetch"
	"github.com/seqlab/amrsync/logger"
	"github.com/seqlab/amrsync/models"
	"github.com/seqlab/amrsync/store"
)

// ErrEmptySource means the remote snapshot is listed with zero size: there
// is no valid source to ingest from, and the run must abort.
var ErrEmptySource = errors.New("remote snapshot has zero size")

// SyncService drives the incremental ingestion: the monolithic AMR snapshot
// first, then the per-genome contig files. Strictly sequential, one item at
// a time; per-item failures are logged and skipped, and only an empty
// snapshot or an unrecoverable local-filesystem error aborts the run.
type SyncService struct {
	cfg       *config.Config
	transport fetch.RemoteTransport
	wal       *store.WALStore
	audit     *store.AuditStore
}

func NewSyncService(cfg *config.Config, transport fetch.RemoteTransport, wal *store.WALStore, audit *store.AuditStore) *SyncService {
	return &SyncService{cfg: cfg, transport: transport, wal: wal, audit: audit}
}

// SyncSnapshot mirrors the monolithic AMR snapshot if its remote
// modification time differs from the WAL. An unchanged snapshot is a no-op;
// a zero-size remote copy returns ErrEmptySource.
func (s *SyncService) SyncSnapshot() error {
	name := s.cfg.Mirror.SnapshotFile
	logger.Log.Infof("Service: checking snapshot %s on %s", name, s.cfg.Mirror.SnapshotDirURL())

	status, err := s.checkRemoteUpdated(s.cfg.Mirror.SnapshotDirURL(), name)
	if err != nil {
		return fmt.Errorf("snapshot update check failed: %w", err)
	}
	if !status.Changed {
		logger.Log.Infof("Service: snapshot %s unchanged since %s, nothing to do",
			name, status.LastModified.Format("2006-01-02 15:04"))
		return nil
	}
	if status.Size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySource, name)
	}

	defer s.cleanTempDir()

	tempPath := filepath.Join(s.cfg.Paths.TempDir, name)
	clearStaleTemp(tempPath)

	err = retryWithDelay(s.cfg.Transfer.FetchRetries, s.cfg.Transfer.FetchRetryDelay, func() error {
		return s.fetchAndCommit(s.cfg.Mirror.SnapshotFileURL(), tempPath, s.cfg.Paths.SnapshotFile, name, status.LastModified)
	})
	if err != nil {
		return fmt.Errorf("snapshot ingestion failed: %w", err)
	}

	logger.Log.Infof("Service: snapshot %s mirrored to %s", name, s.cfg.Paths.SnapshotFile)
	return nil
}

// SyncGenomes mirrors the per-genome .fna files for the given targets, in
// list order, bounded by the configured cap (absent or oversized cap means
// all). A genome whose remote copy is listed with zero size is skipped
// without consuming a slot: the effective bound grows by one so the number
// of genomes actually considered stays at the cap. Returns the number of
// genomes fetched and committed this run.
func (s *SyncService) SyncGenomes(targets []models.GenomeTarget) (int, error) {
	limit := s.cfg.Selection.MaxGenomes
	if limit <= 0 || limit > len(targets) {
		limit = len(targets)
	}
	logger.Log.Infof("Service: starting per-genome ingestion, %d targets, cap %d", len(targets), limit)

	defer s.cleanTempDir()

	fetched := 0
	bound := limit
	for i := 0; i < len(targets) && i < bound; i++ {
		target := targets[i]
		filename := config.GenomeFileName(target.GenomeID)
		entry := logger.WithFields(logrus.Fields{
			"genome_id":   target.GenomeID,
			"genome_name": target.GenomeName,
		})

		status, err := s.checkRemoteUpdated(s.cfg.Mirror.GenomeDirURL(target.GenomeID), filename)
		if err != nil {
			if errors.Is(err, fetch.ErrEntryNotFound) {
				entry.Warnf("Service: no usable listing entry for %s, skipping", filename)
			} else {
				entry.Errorf("Service: update check for %s failed, skipping: %v", filename, err)
			}
			continue
		}
		if status.Size == 0 {
			entry.Warnf("Service: remote copy of %s is empty, skipping", filename)
			bound++
			continue
		}
		if !status.Changed {
			entry.Infof("Service: %s unchanged since %s, skipping",
				filename, status.LastModified.Format("2006-01-02 15:04"))
			continue
		}

		tempPath := filepath.Join(s.cfg.Paths.TempDir, filename)
		finalPath := filepath.Join(s.cfg.Paths.GenomesDir, filename)
		clearStaleTemp(tempPath)

		err = retryWithDelay(s.cfg.Transfer.FetchRetries, s.cfg.Transfer.FetchRetryDelay, func() error {
			return s.fetchAndCommit(s.cfg.Mirror.GenomeFileURL(target.GenomeID), tempPath, finalPath, filename, status.LastModified)
		})
		if err != nil {
			var perm *PermanentError
			if errors.As(err, &perm) {
				return fetched, fmt.Errorf("ingestion of %s failed unrecoverably: %w", filename, err)
			}
			entry.Errorf("Service: giving up on %s: %v", filename, err)
			continue
		}

		if err := s.audit.Append(models.AuditRecord{
			IngestionTime: time.Now().UTC(),
			GenomeName:    target.GenomeName,
			GenomeID:      target.GenomeID,
		}); err != nil {
			entry.Errorf("Service: failed to append audit record for %s: %v", target.GenomeID, err)
		}

		fetched++
		entry.Infof("Service: ingested %s", filename)
	}

	logger.Log.Infof("Service: per-genome ingestion finished, %d fetched", fetched)
	return fetched, nil
}

// cleanTempDir empties the temp working area. Best effort: cleanup failures
// are logged, never escalated, and a leftover temp artifact is tolerated by
// the short-circuit in fetchAndCommit on the next run.
func (s *SyncService) cleanTempDir() {
	if err := os.RemoveAll(s.cfg.Paths.TempDir); err != nil {
		logger.Log.Warnf("Service: failed to clean temp dir %s: %v", s.cfg.Paths.TempDir, err)
		return
	}
	if err := os.MkdirAll(s.cfg.Paths.TempDir, 0755); err != nil {
		logger.Log.Warnf("Service: failed to recreate temp dir %s: %v", s.cfg.Paths.TempDir, err)
	}
}
