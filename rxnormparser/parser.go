// Package rxnormparser loads the RxNorm RRF files into typed tables
package rxnormparser

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// ErrInputMissing is returned when an input file can't be found
var ErrInputMissing = errors.New("input file missing")

// Options controls how the RRF files are read
type Options struct {
	Vocabulary        string
	ExcludedSources   []string
	AttributeMode     string
	Encoding          string
	ConceptsFile      string
	RelationshipsFile string
	AttributesFile    string
}

// OptionsFromConfig returns the loader options of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Vocabulary:        cfg.Vocabulary,
		ExcludedSources:   cfg.ExcludedSources,
		AttributeMode:     cfg.AttributeMode,
		Encoding:          cfg.InputEncoding,
		ConceptsFile:      cfg.ConceptsFile,
		RelationshipsFile: cfg.RelationshipsFile,
		AttributesFile:    cfg.AttributesFile,
	}
}

// DefaultOptions returns the options of a standard RxNorm release
func DefaultOptions() Options {
	return Options{
		Vocabulary:        "RXNORM",
		ExcludedSources:   []string{"DRUGBANK"},
		AttributeMode:     config.AttributeModeFull,
		Encoding:          config.EncodingUTF8,
		ConceptsFile:      "MRCONSO.RRF",
		RelationshipsFile: "MRREL.RRF",
		AttributesFile:    "MRSAT.RRF",
	}
}

func (o Options) scan(file string, minColumns, maxLines int) scanOptions {
	return scanOptions{
		file:       file,
		encoding:   o.Encoding,
		minColumns: minColumns,
		maxLines:   maxLines,
	}
}

// RRFParser loads the three RRF files of a release directory
type RRFParser struct {
	conceptsPath      string
	relationshipsPath string
	attributesPath    string
	opts              Options
}

// NewRRFParser creates a parser for the files named in cfg
func NewRRFParser(cfg *config.Config) *RRFParser {
	return &RRFParser{
		conceptsPath:      cfg.ConceptsPath(),
		relationshipsPath: cfg.RelationshipsPath(),
		attributesPath:    cfg.AttributesPath(),
		opts:              OptionsFromConfig(cfg),
	}
}

// CheckInputs verifies that every input file exists and is a regular file
func (p *RRFParser) CheckInputs() error {
	for _, path := range []string{p.conceptsPath, p.relationshipsPath, p.attributesPath} {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInputMissing, path)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", ErrInputMissing, path)
		}
	}
	return nil
}

// ParseAll loads concepts, relationships and attributes, in that order
func (p *RRFParser) ParseAll() (*entities.Snapshot, error) {
	if err := p.CheckInputs(); err != nil {
		return nil, err
	}

	conso, err := os.Open(p.conceptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.conceptsPath, err)
	}
	defer closeFile(conso)

	rel, err := os.Open(p.relationshipsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.relationshipsPath, err)
	}
	defer closeFile(rel)

	sat, err := os.Open(p.attributesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p.attributesPath, err)
	}
	defer closeFile(sat)

	return LoadFromReaders(conso, rel, sat, p.opts)
}

// LoadFromReaders builds a snapshot from already opened RRF streams
func LoadFromReaders(conso, rel, sat io.Reader, opts Options) (*entities.Snapshot, error) {
	concepts, consoStats, err := LoadConcepts(conso, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load concepts: %w", err)
	}

	rels, relStats, err := LoadRelationships(rel, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}

	attrs, satStats, err := LoadAttributes(sat, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}

	logging.Info("RxNorm tables loaded",
		"ingredients", concepts.Ingredients.Len(),
		"brands", concepts.Brands.Len(),
		"dose_forms", concepts.DoseForms.Len(),
		"generic_concepts", concepts.GenericConcepts.Len(),
		"precise_ingredients", concepts.PreciseIngredients.Len(),
		"synonyms", concepts.Synonyms.Count(),
		"attributes", attrs.Count())

	return entities.NewSnapshot(concepts, rels, attrs, consoStats, relStats, satStats)
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		logging.Warn("Failed to close input file", "file", f.Name(), "error", err)
	}
}
