// services/amr_snapshot_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqlab/amrsync/models"
)

const sampleSnapshot = "genome_id\tgenome_name\ttaxon_id\tantibiotic\tresistant_phenotype\tmeasurement\tmeasurement_sign\tmeasurement_value\tmeasurement_unit\tlaboratory_typing_method\tlaboratory_typing_platform\tvendor\ttesting_standard\ttesting_standard_year\tsource\n" +
	"83332.12\tMycobacterium tuberculosis H37Rv\t83332\tisoniazid\tResistant\t\t\t\t\tMIC\t\t\tCLSI\t2015\tPATRIC\n" +
	"83332.12\tMycobacterium tuberculosis H37Rv\t83332\trifampin\tSusceptible\t\t\t\t\tMIC\t\t\tCLSI\t2015\tPATRIC\n" +
	"1280.100\tStaphylococcus aureus subsp. aureus N315\t1280\tmethicillin\tResistant\t\t\t\t\tdisk diffusion\t\t\tCLSI\t2014\tPATRIC\n" +
	"562.9\tEscherichia coli K-12\t562\tampicillin\tResistant\t\t\t\t\tMIC\t\t\tCLSI\t2016\tPATRIC\n"

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "PATRIC_genomes_AMR.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAMRRecords(t *testing.T) {
	path := writeSnapshot(t, sampleSnapshot)

	records, err := LoadAMRRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "83332.12", records[0].GenomeID)
	assert.Equal(t, "Mycobacterium tuberculosis H37Rv", records[0].GenomeName)
	assert.Equal(t, "isoniazid", records[0].Antibiotic)
	assert.Equal(t, models.PhenotypeResistant, records[0].ResistantPhenotype)
	assert.Equal(t, models.PhenotypeSusceptible, records[1].ResistantPhenotype)
}

func TestLoadAMRRecords_ReorderedColumns(t *testing.T) {
	path := writeSnapshot(t, "antibiotic\tgenome_name\tgenome_id\tresistant_phenotype\n"+
		"isoniazid\tMycobacterium tuberculosis H37Rv\t83332.12\tResistant\n")

	records, err := LoadAMRRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "83332.12", records[0].GenomeID)
	assert.Equal(t, "isoniazid", records[0].Antibiotic)
}

func TestLoadAMRRecords_MissingFile(t *testing.T) {
	_, err := LoadAMRRecords(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func amrRow(genomeID, genomeName, antibiotic, phenotype string) models.AMRRecord {
	return models.AMRRecord{
		GenomeID:           genomeID,
		GenomeName:         genomeName,
		Antibiotic:         antibiotic,
		ResistantPhenotype: phenotype,
	}
}

func TestDeriveGenomeTargets_DeduplicatesByGenomeID(t *testing.T) {
	records := []models.AMRRecord{
		amrRow("83332.12", "Mycobacterium tuberculosis H37Rv", "isoniazid", "Resistant"),
		amrRow("83332.12", "Mycobacterium tuberculosis H37Rv", "rifampin", "Susceptible"),
		amrRow("83332.40", "Mycobacterium tuberculosis CDC1551", "isoniazid", "Susceptible"),
	}

	targets := DeriveGenomeTargets(records, []string{"Mycobacterium tuberculosis"}, nil)
	require.Len(t, targets, 2)
	assert.Equal(t, "83332.12", targets[0].GenomeID)
	assert.Equal(t, "83332.40", targets[1].GenomeID)
}

func TestDeriveGenomeTargets_OrganismPrefixMatch(t *testing.T) {
	records := []models.AMRRecord{
		amrRow("83332.12", "Mycobacterium tuberculosis H37Rv", "isoniazid", "Resistant"),
		amrRow("562.9", "Escherichia coli K-12", "ampicillin", "Resistant"),
	}

	targets := DeriveGenomeTargets(records, []string{"mycobacterium TUBERCULOSIS"}, nil)
	require.Len(t, targets, 1)
	assert.Equal(t, "83332.12", targets[0].GenomeID)
}

func TestDeriveGenomeTargets_AntibioticFilter(t *testing.T) {
	records := []models.AMRRecord{
		amrRow("83332.12", "Mycobacterium tuberculosis H37Rv", "isoniazid", "Resistant"),
		amrRow("83332.40", "Mycobacterium tuberculosis CDC1551", "rifampin", "Susceptible"),
	}

	targets := DeriveGenomeTargets(records, []string{"Mycobacterium tuberculosis"}, []string{"rifampin"})
	require.Len(t, targets, 1)
	assert.Equal(t, "83332.40", targets[0].GenomeID)
}

func TestDeriveGenomeTargets_SkipsUnusablePhenotypes(t *testing.T) {
	records := []models.AMRRecord{
		amrRow("83332.12", "Mycobacterium tuberculosis H37Rv", "isoniazid", "Intermediate"),
		amrRow("83332.40", "Mycobacterium tuberculosis CDC1551", "isoniazid", ""),
		amrRow("83332.51", "Mycobacterium tuberculosis Beijing", "isoniazid", "Resistant"),
	}

	targets := DeriveGenomeTargets(records, []string{"Mycobacterium tuberculosis"}, nil)
	require.Len(t, targets, 1)
	assert.Equal(t, "83332.51", targets[0].GenomeID)
}

func TestDeriveGenomeTargets_SkipsBlankGenomeID(t *testing.T) {
	records := []models.AMRRecord{
		amrRow("", "Mycobacterium tuberculosis H37Rv", "isoniazid", "Resistant"),
	}
	assert.Empty(t, DeriveGenomeTargets(records, []string{"Mycobacterium tuberculosis"}, nil))
}
