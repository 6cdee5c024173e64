// services/fetch_commit.go
package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/seqlab/amrsync/logger"
)

// fetchAndCommit runs the fetch-replace workflow for one remote file:
// download into tempPath, verify, replace finalPath, then record the new
// modification time in the WAL. The WAL row is written only after the final
// file is in place, so WAL state always matches what is on disk.
//
// A pre-existing temp artifact short-circuits the transfer and is committed
// as-is. Clearing stale temps before a genuine refetch is the caller's
// responsibility; skipping that step would commit old bytes under the new
// modification time.
//
// Transfer failures are ordinary (retryable) errors; any partial artifact
// a failed transfer left at tempPath is removed so the next attempt
// refetches from scratch. A failure while
// placing the verified artifact is wrapped Permanent: the network step
// already succeeded and retrying the whole fetch will not fix a broken
// local filesystem.
func (s *SyncService) fetchAndCommit(remoteURL, tempPath, finalPath, walKey string, lastModified time.Time) error {
	if _, err := os.Stat(tempPath); err == nil {
		logger.Log.Infof("Service: temp artifact %s already present, skipping transfer", tempPath)
	} else {
		if err := s.transport.Download(remoteURL, tempPath); err != nil {
			// A failed transfer can leave a truncated artifact behind.
			// Drop it, or the short-circuit above would commit partial
			// bytes on the next attempt.
			clearStaleTemp(tempPath)
			return fmt.Errorf("transfer of %s failed: %w", remoteURL, err)
		}
		if _, err := os.Stat(tempPath); err != nil {
			// The transfer reported success but left nothing behind. Soft
			// failure: no commit, but worth a retry.
			logger.Log.Warnf("Service: transfer of %s completed but no artifact at %s", remoteURL, tempPath)
			return fmt.Errorf("transfer of %s completed with no artifact at %s", remoteURL, tempPath)
		}
	}

	if err := replaceFile(tempPath, finalPath); err != nil {
		return Permanent(fmt.Errorf("failed to place %s: %w", finalPath, err))
	}

	if err := s.wal.Upsert(walKey, lastModified); err != nil {
		return Permanent(fmt.Errorf("failed to commit WAL entry for %s: %w", walKey, err))
	}

	logger.Log.Infof("Service: committed %s (remote mtime %s)", walKey, lastModified.Format("2006-01-02 15:04"))
	return nil
}

// replaceFile swaps the verified temp artifact into place: remove the old
// destination file if present, then copy. Copy rather than rename, since
// the temp and final directories may live on different filesystems.
// Atomicity is per-file only: a reader never sees a mix of old and new
// content, but there is a window with no file at finalPath.
func replaceFile(tempPath, finalPath string) error {
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", finalPath, err)
	}

	if err := os.Remove(finalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove previous %s: %w", finalPath, err)
	}

	in, err := os.Open(tempPath)
	if err != nil {
		return fmt.Errorf("failed to open temp artifact %s: %w", tempPath, err)
	}
	defer in.Close()

	out, err := os.Create(finalPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", finalPath, err)
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to copy %s into place: %w", tempPath, err)
	}
	return nil
}

// clearStaleTemp removes a leftover temp artifact, either before a genuine
// refetch or after a failed transfer. Without it the short-circuit in
// fetchAndCommit would serve stale or truncated data.
func clearStaleTemp(tempPath string) {
	err := os.Remove(tempPath)
	if err == nil {
		logger.Log.Infof("Service: cleared leftover temp artifact %s", tempPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.Log.Warnf("Service: failed to clear stale temp artifact %s: %v", tempPath, err)
	}
}
