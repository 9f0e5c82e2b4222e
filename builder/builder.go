// Package builder turns a loaded RxNorm snapshot into FHIR resources
package builder

import (
	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/relations"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
	"golang.org/x/text/cases"
)

// Resource id prefixes
const (
	substancePrefix  = "subst-"
	medicationPrefix = "med-"
)

// SubstanceID returns the resource id of an ingredient
func SubstanceID(rxcui string) string {
	return substancePrefix + rxcui
}

// MedicationID returns the resource id of a drug concept, shared by its
// Medication and MedicationKnowledge
func MedicationID(rxcui string) string {
	return medicationPrefix + rxcui
}

// Options controls resource construction
type Options struct {
	BaseURL        string // prefix of the extension urls, ends with a slash
	StrengthPolicy string
}

// OptionsFromConfig returns the builder options of cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:        cfg.FHIRBaseURL,
		StrengthPolicy: cfg.StrengthPolicy,
	}
}

func (o Options) synonymURL() string {
	return o.BaseURL + "StructureDefinition/synonym"
}

func (o Options) brandURL() string {
	return o.BaseURL + "StructureDefinition/brand"
}

// Resources is everything produced by one build, keyed by resource id
type Resources struct {
	Substances          *relations.Dictionary[*fhir.Substance]
	Medications         *relations.Dictionary[*fhir.Medication]
	MedicationKnowledge *relations.Dictionary[*fhir.MedicationKnowledge]
	Units               *relations.StringSet
	Rejected            []string // RXCUIs dropped by the strict strength policy
	UnparsedStrengths   int
}

// Builder reads a snapshot and creates the resources.
// A Builder is used for a single build and is not safe for concurrent use.
type Builder struct {
	snap     *entities.Snapshot
	opts     Options
	fold     cases.Caser
	strength *StrengthParser
}

// New creates a builder over snap
func New(snap *entities.Snapshot, opts Options) *Builder {
	return &Builder{
		snap:     snap,
		opts:     opts,
		fold:     cases.Fold(),
		strength: NewStrengthParser(),
	}
}

// Build creates the substances, then the medications that reference them
func (b *Builder) Build() *Resources {
	substances := b.BuildSubstances()
	res := b.BuildMedications(substances)
	res.Substances = substances
	return res
}

// cleanSynonyms dedupes candidates in first seen order and drops those
// equal to display under case folding
func (b *Builder) cleanSynonyms(display string, candidates []string) []string {
	primary := b.fold.String(display)
	seen := make(map[string]bool, len(candidates))

	var synonyms []string
	for _, s := range candidates {
		if seen[s] {
			continue
		}
		seen[s] = true
		if b.fold.String(s) == primary {
			continue
		}
		synonyms = append(synonyms, s)
	}
	return synonyms
}

func codeOf(c entities.Concept) *fhir.CodeableConcept {
	return fhir.SingleCoding(c.System, c.Code, c.Display)
}
