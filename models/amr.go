// models/amr.go
package models

// AMRRecord represents one row of the PATRIC_genomes_AMR.txt snapshot table.
// The snapshot is tab-separated with a header row; tags match the upstream
// column names EXACTLY.
type AMRRecord struct {
	GenomeID            string `csv:"genome_id"`
	GenomeName          string `csv:"genome_name"`
	Taxonomy            string `csv:"taxon_id"`
	Antibiotic          string `csv:"antibiotic"`
	ResistantPhenotype  string `csv:"resistant_phenotype"`
	Measurement         string `csv:"measurement"`
	MeasurementSign     string `csv:"measurement_sign"`
	MeasurementValue    string `csv:"measurement_value"`
	MeasurementUnit     string `csv:"measurement_unit"`
	LaboratoryMethod    string `csv:"laboratory_typing_method"`
	LaboratoryPlatform  string `csv:"laboratory_typing_platform"`
	Vendor              string `csv:"vendor"`
	TestingStandard     string `csv:"testing_standard"`
	TestingStandardYear string `csv:"testing_standard_year"`
	Source              string `csv:"source"`
}

// Phenotype values of interest in the snapshot's resistant_phenotype column.
// Anything else (Intermediate, empty, free text) is excluded from labels.
const (
	PhenotypeResistant   = "Resistant"
	PhenotypeSusceptible = "Susceptible"
)

// GenomeTarget is one genome queued for per-genome ingestion: the identifier
// of the remote .fna file plus the organism name it was selected for.
type GenomeTarget struct {
	GenomeID   string
	GenomeName string
}

// LabelRow is one row of a generated per-organism/per-antibiotic label file.
type LabelRow struct {
	GenomeID  string `csv:"genome_id"`
	Phenotype string `csv:"phenotype"`
}
