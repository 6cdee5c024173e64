// services/amr_snapshot.go
package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/seqlab/amrsync/logger"
	"github.com/seqlab/amrsync/models"
)

// LoadAMRRecords decodes the locally mirrored AMR snapshot. The snapshot is
// tab-separated with a header row; csvutil maps columns by the header names
// tagged on models.AMRRecord, so upstream column reordering is harmless.
func LoadAMRRecords(path string) ([]models.AMRRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open AMR snapshot %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.LazyQuotes = true

	decoder, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for AMR snapshot: %w", err)
	}

	var records []models.AMRRecord
	if err := decoder.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode AMR snapshot %s: %w", path, err)
	}

	logger.Log.Infof("Service: parsed %d AMR rows from %s", len(records), path)
	return records, nil
}

// DeriveGenomeTargets selects the genomes to mirror: every distinct genome
// whose name matches one of the configured organisms and which carries a
// usable phenotype call for one of the configured antibiotics (an empty
// antibiotic list matches all). Snapshot order is preserved; the first
// occurrence of a genome wins.
func DeriveGenomeTargets(records []models.AMRRecord, organisms []string, antibiotics []string) []models.GenomeTarget {
	antibioticSet := make(map[string]bool, len(antibiotics))
	for _, ab := range antibiotics {
		antibioticSet[strings.ToLower(strings.TrimSpace(ab))] = true
	}

	seen := make(map[string]bool)
	var targets []models.GenomeTarget
	for _, rec := range records {
		if rec.GenomeID == "" || seen[rec.GenomeID] {
			continue
		}
		if !matchesOrganism(rec.GenomeName, organisms) {
			continue
		}
		if len(antibioticSet) > 0 && !antibioticSet[strings.ToLower(strings.TrimSpace(rec.Antibiotic))] {
			continue
		}
		if rec.ResistantPhenotype != models.PhenotypeResistant && rec.ResistantPhenotype != models.PhenotypeSusceptible {
			continue
		}
		seen[rec.GenomeID] = true
		targets = append(targets, models.GenomeTarget{
			GenomeID:   rec.GenomeID,
			GenomeName: rec.GenomeName,
		})
	}
	return targets
}

// matchesOrganism checks a snapshot genome name against the configured
// organism list. Genome names carry strain suffixes ("Mycobacterium
// tuberculosis H37Rv"), so the configured name is matched as a
// case-insensitive prefix.
func matchesOrganism(genomeName string, organisms []string) bool {
	name := strings.ToLower(strings.TrimSpace(genomeName))
	for _, org := range organisms {
		if strings.HasPrefix(name, strings.ToLower(strings.TrimSpace(org))) {
			return true
		}
	}
	return false
}
