// services/label_service.go
package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/seqlab/amrsync/config"
	"github.com/seqlab/amrsync/logger"
	"github.com/seqlab/amrsync/models"
)

// LabelService derives the per-organism/per-antibiotic label files the
// training tool consumes from the mirrored AMR snapshot.
type LabelService struct {
	cfg *config.Config
}

func NewLabelService(cfg *config.Config) *LabelService {
	return &LabelService{cfg: cfg}
}

// GenerateLabels writes one label file per organism/antibiotic pair that
// has at least one usable phenotype call. Files land under
// <labels>/<organism-slug>/<antibiotic-slug>.csv with rows
// genome_id,phenotype; only Resistant and Susceptible calls are kept, and
// the first call seen for a genome wins on conflicts. Returns the number of
// files written.
func (ls *LabelService) GenerateLabels(records []models.AMRRecord) (int, error) {
	antibiotics := ls.cfg.Selection.Antibiotics
	if len(antibiotics) == 0 {
		antibiotics = distinctAntibiotics(records)
	}

	written := 0
	for _, organism := range ls.cfg.Selection.Organisms {
		orgDir := filepath.Join(ls.cfg.Paths.LabelsDir, slugify(organism))
		for _, antibiotic := range antibiotics {
			rows := collectLabelRows(records, organism, antibiotic)
			if len(rows) == 0 {
				continue
			}

			if err := os.MkdirAll(orgDir, 0755); err != nil {
				return written, fmt.Errorf("failed to create label directory %s: %w", orgDir, err)
			}

			path := filepath.Join(orgDir, slugify(antibiotic)+".csv")
			data, err := csvutil.Marshal(rows)
			if err != nil {
				return written, fmt.Errorf("failed to encode label file %s: %w", path, err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return written, fmt.Errorf("failed to write label file %s: %w", path, err)
			}

			logger.Log.Infof("Labels: wrote %s (%d genomes)", path, len(rows))
			written++
		}
	}
	return written, nil
}

func collectLabelRows(records []models.AMRRecord, organism, antibiotic string) []models.LabelRow {
	seen := make(map[string]bool)
	var rows []models.LabelRow
	for _, rec := range records {
		if rec.ResistantPhenotype != models.PhenotypeResistant && rec.ResistantPhenotype != models.PhenotypeSusceptible {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(rec.Antibiotic), strings.TrimSpace(antibiotic)) {
			continue
		}
		if !matchesOrganism(rec.GenomeName, []string{organism}) {
			continue
		}
		if seen[rec.GenomeID] {
			continue
		}
		seen[rec.GenomeID] = true
		rows = append(rows, models.LabelRow{
			GenomeID:  rec.GenomeID,
			Phenotype: rec.ResistantPhenotype,
		})
	}
	return rows
}

func distinctAntibiotics(records []models.AMRRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		key := strings.ToLower(strings.TrimSpace(rec.Antibiotic))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(rec.Antibiotic))
	}
	return out
}

// slugify turns an organism or antibiotic name into a filesystem-safe path
// component: lowercase, spaces and slashes to underscores.
func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '/', r == '\\':
			b.WriteRune('_')
		}
	}
	return b.String()
}
