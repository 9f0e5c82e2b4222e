package rxnormparser

import (
	"io"
	"strings"

	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// MRREL.RRF columns
const (
	relRXCUI1   = 0
	relRXCUI2   = 4
	relRELA     = 7
	relSAB      = 10
	relSUPPRESS = 14
	relColumns  = 15
)

// LoadRelationships reads MRREL rows. Each relation is keyed by RXCUI2 and points to RXCUI1.
func LoadRelationships(r io.Reader, opts Options) (*entities.Relationships, entities.FileStats, error) {
	rels := entities.NewRelationships()

	stats, err := scanRecords(r, opts.scan(opts.RelationshipsFile, relColumns, 0), func(fields []string) rowOutcome {
		if fields[relSAB] != opts.Vocabulary || isSuppressed(fields[relSUPPRESS]) {
			return rowFiltered
		}

		source := fields[relRXCUI2]
		target := fields[relRXCUI1]

		switch strings.ToLower(strings.TrimSpace(fields[relRELA])) {
		case "has_ingredient":
			rels.HasIngredient.Add(source, target)
		case "consists_of":
			rels.ConsistsOf.Add(source, target)
		case "has_dose_form":
			rels.HasDoseForm.Set(source, target)
		case "has_doseformgroup":
			rels.HasDoseFormGroup.Set(source, target)
		case "contains":
			rels.Contains.Add(source, target)
		case "isa":
			rels.IsA.Add(source, target)
		case "has_form":
			rels.HasForm.Add(source, target)
		case "tradename_of":
			rels.TradeNameOf.Add(source, target)
		default:
			return rowIgnored
		}
		return rowStored
	})
	if err != nil {
		return nil, stats, err
	}

	return rels, stats, nil
}
