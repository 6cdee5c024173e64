// config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MirrorConfig identifies the remote BV-BRC mirror and the layout of the
// directories we pull from.
type MirrorConfig struct {
	Scheme          string `yaml:"scheme"` // "ftp" or "https" (autoindex mirror)
	Host            string `yaml:"host"`
	ReleaseNotesDir string `yaml:"release_notes_dir"`
	GenomesDir      string `yaml:"genomes_dir"`
	SnapshotFile    string `yaml:"snapshot_file"`
}

// TransferConfig carries the timeout and retry policy for remote transfers.
// Durations are written as Go duration strings in the YAML ("20s", "15m")
// and parsed once at load time.
type TransferConfig struct {
	ConnectTimeoutStr  string `yaml:"connect_timeout"`
	TransferTimeoutStr string `yaml:"transfer_timeout"`
	StallWindowStr     string `yaml:"stall_window"`
	MinBytesPerSec     int64  `yaml:"min_bytes_per_sec"`
	ListRetries        int    `yaml:"list_retries"`
	ListRetryDelayStr  string `yaml:"list_retry_delay"`
	FetchRetries       int    `yaml:"fetch_retries"`
	FetchRetryDelayStr string `yaml:"fetch_retry_delay"`

	ConnectTimeout  time.Duration `yaml:"-"`
	TransferTimeout time.Duration `yaml:"-"`
	StallWindow     time.Duration `yaml:"-"`
	ListRetryDelay  time.Duration `yaml:"-"`
	FetchRetryDelay time.Duration `yaml:"-"`
}

// SelectionConfig names the organisms and antibiotics this deployment cares
// about, plus the per-run cap on genome downloads. MaxGenomes <= 0 means
// "all available".
type SelectionConfig struct {
	Organisms   []string `yaml:"organisms"`
	Antibiotics []string `yaml:"antibiotics"`
	MaxGenomes  int      `yaml:"max_genomes"`
}

// PathsConfig holds the local output root. The concrete per-artifact paths
// are derived from DataRoot at load time; AMRSYNC_DATA_ROOT (usually set via
// .env) overrides the YAML value so dev and prod runs can point at different
// filesystems without editing the config file.
type PathsConfig struct {
	DataRoot string `yaml:"data_root"`

	GenomesDir   string `yaml:"-"`
	TempDir      string `yaml:"-"`
	LabelsDir    string `yaml:"-"`
	WALFile      string `yaml:"-"`
	AuditFile    string `yaml:"-"`
	SnapshotFile string `yaml:"-"`
}

// TrainingConfig describes the external model-training command run after
// label generation.
type TrainingConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Config struct {
	Mirror    MirrorConfig    `yaml:"mirror"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Selection SelectionConfig `yaml:"selection"`
	Paths     PathsConfig     `yaml:"paths"`
	Training  TrainingConfig  `yaml:"training"`
}

// Load reads the YAML config at configPath and returns the fully resolved
// configuration. The returned struct is threaded explicitly through every
// component; nothing in this package keeps global state.
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(&cfg.Transfer); err != nil {
		return nil, err
	}

	if cfg.Mirror.Host == "" {
		return nil, fmt.Errorf("mirror.host is not configured")
	}
	if cfg.Mirror.Scheme != "ftp" && cfg.Mirror.Scheme != "https" {
		return nil, fmt.Errorf("mirror.scheme must be \"ftp\" or \"https\", got %q", cfg.Mirror.Scheme)
	}

	if root := os.Getenv("AMRSYNC_DATA_ROOT"); root != "" {
		cfg.Paths.DataRoot = root
	}
	if cfg.Paths.DataRoot == "" {
		cfg.Paths.DataRoot = "./data"
	}
	derivePaths(&cfg.Paths, cfg.Mirror.SnapshotFile)

	// Output directories are created up front; create-if-absent, never an
	// error when they already exist.
	for _, dir := range []string{cfg.Paths.GenomesDir, cfg.Paths.TempDir, cfg.Paths.LabelsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Mirror.Scheme == "" {
		cfg.Mirror.Scheme = "ftp"
	}
	if cfg.Mirror.ReleaseNotesDir == "" {
		cfg.Mirror.ReleaseNotesDir = "/RELEASE_NOTES"
	}
	if cfg.Mirror.GenomesDir == "" {
		cfg.Mirror.GenomesDir = "/genomes"
	}
	if cfg.Mirror.SnapshotFile == "" {
		cfg.Mirror.SnapshotFile = "PATRIC_genomes_AMR.txt"
	}
	if cfg.Transfer.MinBytesPerSec <= 0 {
		cfg.Transfer.MinBytesPerSec = 64
	}
	if cfg.Transfer.ListRetries <= 0 {
		cfg.Transfer.ListRetries = 3
	}
	if cfg.Transfer.FetchRetries <= 0 {
		cfg.Transfer.FetchRetries = 3
	}
}

func parseDurations(tc *TransferConfig) error {
	parse := func(name, s string, def time.Duration, out *time.Duration) error {
		if s == "" {
			*out = def
			return nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("failed to parse transfer.%s: %w", name, err)
		}
		*out = d
		return nil
	}

	if err := parse("connect_timeout", tc.ConnectTimeoutStr, 20*time.Second, &tc.ConnectTimeout); err != nil {
		return err
	}
	if err := parse("transfer_timeout", tc.TransferTimeoutStr, 15*time.Minute, &tc.TransferTimeout); err != nil {
		return err
	}
	if err := parse("stall_window", tc.StallWindowStr, 30*time.Second, &tc.StallWindow); err != nil {
		return err
	}
	if err := parse("list_retry_delay", tc.ListRetryDelayStr, 5*time.Second, &tc.ListRetryDelay); err != nil {
		return err
	}
	if err := parse("fetch_retry_delay", tc.FetchRetryDelayStr, 10*time.Second, &tc.FetchRetryDelay); err != nil {
		return err
	}
	return nil
}

func derivePaths(pc *PathsConfig, snapshotFile string) {
	pc.GenomesDir = filepath.Join(pc.DataRoot, "genomes")
	pc.TempDir = filepath.Join(pc.DataRoot, "tmp")
	pc.LabelsDir = filepath.Join(pc.DataRoot, "labels")
	pc.WALFile = filepath.Join(pc.DataRoot, "wal", "wal.csv")
	pc.AuditFile = filepath.Join(pc.DataRoot, "audit", "ingestion_audit.csv")
	pc.SnapshotFile = filepath.Join(pc.DataRoot, snapshotFile)
}

// baseURL joins the mirror scheme, host and a remote directory into a URL.
func (mc MirrorConfig) baseURL(dir string) string {
	return fmt.Sprintf("%s://%s/%s", mc.Scheme, mc.Host, strings.Trim(dir, "/"))
}

// SnapshotDirURL is the remote directory holding the AMR snapshot.
func (mc MirrorConfig) SnapshotDirURL() string {
	return mc.baseURL(mc.ReleaseNotesDir)
}

// SnapshotFileURL is the remote path of the AMR snapshot itself.
func (mc MirrorConfig) SnapshotFileURL() string {
	return mc.SnapshotDirURL() + "/" + mc.SnapshotFile
}

// GenomeDirURL is the remote per-genome subdirectory for one genome id.
func (mc MirrorConfig) GenomeDirURL(genomeID string) string {
	return mc.baseURL(mc.GenomesDir) + "/" + genomeID
}

// GenomeFileURL is the remote path of one genome's .fna file.
func (mc MirrorConfig) GenomeFileURL(genomeID string) string {
	return mc.GenomeDirURL(genomeID) + "/" + GenomeFileName(genomeID)
}

// GenomeFileName is the canonical contig-file name for a genome id.
func GenomeFileName(genomeID string) string {
	return genomeID + ".fna"
}
