package rxnormparser

import (
	"io"
	"slices"

	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// MRCONSO.RRF columns
const (
	consoRXCUI    = 0
	consoSAB      = 11
	consoTTY      = 12
	consoSTR      = 14
	consoSUPPRESS = 16
	consoColumns  = 17
)

// genericTermTypes are the drug, component, form, group and pack term types
var genericTermTypes = []string{"SCD", "SBD", "SCDF", "SBDF", "SCDC", "SBDC", "SCDG", "SBDG", "GPCK", "BPCK"}

// synonymTermTypes are the term types kept as synonyms
var synonymTermTypes = []string{"SY", "PSN", "PT"}

// LoadConcepts reads MRCONSO rows into the concept dictionaries and the synonym index
func LoadConcepts(r io.Reader, opts Options) (*entities.Concepts, entities.FileStats, error) {
	concepts := entities.NewConcepts()

	stats, err := scanRecords(r, opts.scan(opts.ConceptsFile, consoColumns, 0), func(fields []string) rowOutcome {
		if isSuppressed(fields[consoSUPPRESS]) {
			return rowFiltered
		}

		rxcui := fields[consoRXCUI]
		sab := fields[consoSAB]
		tty := fields[consoTTY]
		str := fields[consoSTR]

		outcome := rowIgnored
		if sab == opts.Vocabulary {
			concept := entities.Concept{
				System:   entities.RxNormSystem,
				Code:     rxcui,
				Display:  str,
				TermType: tty,
			}
			outcome = rowStored
			switch {
			case tty == "IN":
				concepts.Ingredients.Set(rxcui, concept)
			case tty == "BN":
				concepts.Brands.Set(rxcui, concept)
			case tty == "DF" || tty == "DFG":
				concepts.DoseForms.Set(rxcui, concept)
			case tty == "PIN":
				concepts.PreciseIngredients.Set(rxcui, concept)
			case slices.Contains(genericTermTypes, tty):
				concepts.GenericConcepts.Set(rxcui, concept)
			default:
				outcome = rowIgnored
			}
		}

		// Synonyms may come from any vocabulary not excluded
		if slices.Contains(synonymTermTypes, tty) && !slices.Contains(opts.ExcludedSources, sab) {
			concepts.Synonyms.Add(rxcui, str)
			outcome = rowStored
		}

		if outcome == rowIgnored && sab != opts.Vocabulary {
			return rowFiltered
		}
		return outcome
	})
	if err != nil {
		return nil, stats, err
	}

	return concepts, stats, nil
}
