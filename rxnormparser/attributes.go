package rxnormparser

import (
	"io"
	"slices"

	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/relations"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// MRSAT.RRF columns
const (
	satRXCUI    = 0
	satATN      = 8
	satSAB      = 9
	satATV      = 10
	satSUPPRESS = 11
	satColumns  = 12
)

// Strength attributes
const (
	AttrNumeratorValue   = "RXN_BOSS_STRENGTH_NUM_VALUE"
	AttrNumeratorUnit    = "RXN_BOSS_STRENGTH_NUM_UNIT"
	AttrDenominatorValue = "RXN_BOSS_STRENGTH_DENOM_VALUE"
	AttrDenominatorUnit  = "RXN_BOSS_STRENGTH_DENOM_UNIT"
	AttrStrength         = "RXN_STRENGTH"
)

var strengthAttributes = []string{
	AttrNumeratorValue,
	AttrNumeratorUnit,
	AttrDenominatorValue,
	AttrDenominatorUnit,
	AttrStrength,
}

// LoadAttributes reads the strength attributes of MRSAT.
// In first-line mode only the first line of the file is read.
func LoadAttributes(r io.Reader, opts Options) (*relations.AttributeTable, entities.FileStats, error) {
	table := relations.NewAttributeTable()

	maxLines := 0
	if opts.AttributeMode == config.AttributeModeFirstLine {
		maxLines = 1
	}

	stats, err := scanRecords(r, opts.scan(opts.AttributesFile, satColumns, maxLines), func(fields []string) rowOutcome {
		if fields[satSAB] != opts.Vocabulary || isSuppressed(fields[satSUPPRESS]) {
			return rowFiltered
		}

		name := fields[satATN]
		if !slices.Contains(strengthAttributes, name) {
			return rowIgnored
		}

		table.Set(fields[satRXCUI], name, fields[satATV])
		return rowStored
	})
	if err != nil {
		return nil, stats, err
	}

	if maxLines > 0 {
		logging.Warn("Attribute loader in first-line mode, strengths are mostly missing",
			"file", opts.AttributesFile)
	}

	return table, stats, nil
}
