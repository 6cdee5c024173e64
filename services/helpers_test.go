// services/helpers_test.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/seqlab/amrsync/config"
	"github.com/seqlab/amrsync/logger"
	"github.com/seqlab/amrsync/store"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// fakeTransport is the deterministic RemoteTransport double: canned
// listings per directory URL, canned file bytes per file URL, and
// injectable failures.
type fakeTransport struct {
	listings map[string]string
	files    map[string][]byte

	listErr     error
	downloadErr error

	// downloadHook, when set, replaces the default download behavior.
	downloadHook func(fileURL, localPath string) error

	listCalls     int
	downloadCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		listings: make(map[string]string),
		files:    make(map[string][]byte),
	}
}

func (f *fakeTransport) ListDirectory(dirURL string) (string, error) {
	f.listCalls++
	if f.listErr != nil {
		return "", f.listErr
	}
	listing, ok := f.listings[dirURL]
	if !ok {
		return "", fmt.Errorf("no such remote directory %s", dirURL)
	}
	return listing, nil
}

func (f *fakeTransport) Download(fileURL, localPath string) error {
	f.downloadCalls++
	if f.downloadHook != nil {
		return f.downloadHook(fileURL, localPath)
	}
	if f.downloadErr != nil {
		return f.downloadErr
	}
	content, ok := f.files[fileURL]
	if !ok {
		return fmt.Errorf("no such remote file %s", fileURL)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(localPath, content, 0644)
}

// newTestService wires a SyncService against a temp data root and the fake
// transport, with retry delays shrunk so tests do not sleep.
func newTestService(t *testing.T, transport *fakeTransport) (*SyncService, *config.Config) {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Mirror = config.MirrorConfig{
		Scheme:          "ftp",
		Host:            "ftp.test.local",
		ReleaseNotesDir: "/RELEASE_NOTES",
		GenomesDir:      "/genomes",
		SnapshotFile:    "PATRIC_genomes_AMR.txt",
	}
	cfg.Transfer.FetchRetries = 2
	cfg.Transfer.FetchRetryDelay = time.Millisecond
	cfg.Paths.DataRoot = root
	cfg.Paths.GenomesDir = filepath.Join(root, "genomes")
	cfg.Paths.TempDir = filepath.Join(root, "tmp")
	cfg.Paths.LabelsDir = filepath.Join(root, "labels")
	cfg.Paths.WALFile = filepath.Join(root, "wal", "wal.csv")
	cfg.Paths.AuditFile = filepath.Join(root, "audit", "ingestion_audit.csv")
	cfg.Paths.SnapshotFile = filepath.Join(root, cfg.Mirror.SnapshotFile)

	for _, dir := range []string{cfg.Paths.GenomesDir, cfg.Paths.TempDir, cfg.Paths.LabelsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	wal := store.NewWALStore(cfg.Paths.WALFile)
	audit := store.NewAuditStore(cfg.Paths.AuditFile)
	return NewSyncService(cfg, transport, wal, audit), cfg
}

// listingLine renders one Unix LIST line with the old (year) date form.
func listingLine(size int64, year int, name string) string {
	return fmt.Sprintf("-rw-r--r-- 1 ftp ftp %d Jan 5 %d %s", size, year, name)
}

func genomeListing(tr *fakeTransport, cfg *config.Config, genomeID string, size int64, year int) {
	tr.listings[cfg.Mirror.GenomeDirURL(genomeID)] =
		listingLine(size, year, config.GenomeFileName(genomeID))
}
