// services/update_checker.go
package services

import (
	"fmt"

	"github.com/seqlab/amrsync/fetch"
	"github.com/seqlab/amrsync/logger"
	"github.com/seqlab/amrsync/models"
)

// checkRemoteUpdated decides whether filename needs refetching: it lists
// the remote directory, parses the target's entry and compares the listed
// modification time against the WAL row committed for it.
//
// Any difference counts as a change, in either direction. The remote clock
// is ground truth, not assumed monotonic; a file whose timestamp moved
// backwards still gets refetched. A zero Size in the result is a separate
// signal the caller must check before attempting ingestion.
func (s *SyncService) checkRemoteUpdated(dirURL string, filename string) (*models.UpdateStatus, error) {
	listing, err := s.transport.ListDirectory(dirURL)
	if err != nil {
		return nil, fmt.Errorf("update check for %s failed: %w", filename, err)
	}

	info, err := fetch.ParseListingEntry(listing, filename)
	if err != nil {
		return nil, err
	}

	// The WAL is reloaded from disk for every check; there is no in-memory
	// state carried across reads.
	prior, found, err := s.wal.Lookup(filename)
	if err != nil {
		return nil, err
	}

	changed := !found || !prior.Equal(info.LastModified)
	if found {
		logger.Log.Debugf("Service: %s remote mtime %s, WAL mtime %s, changed=%t",
			filename, info.LastModified.Format("2006-01-02 15:04"), prior.Format("2006-01-02 15:04"), changed)
	} else {
		logger.Log.Debugf("Service: %s has no WAL entry yet, treating as changed", filename)
	}

	return &models.UpdateStatus{
		Changed:      changed,
		LastModified: info.LastModified,
		Size:         info.Size,
	}, nil
}
