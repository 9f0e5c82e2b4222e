package builder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/relations"
	"github.com/giygas/rxnorm-fhir/rxnormparser"
)

// ErrUnparsableStrength is returned when a strength value is not a finite number
var ErrUnparsableStrength = errors.New("unparsable strength")

// unitlessDenominator is used when a composite strength has no denominator unit
const unitlessDenominator = "1"

// StrengthParser derives strength ratios and records the units it sees
type StrengthParser struct {
	units *relations.StringSet
}

// NewStrengthParser creates a parser with an empty unit vocabulary
func NewStrengthParser() *StrengthParser {
	return &StrengthParser{units: relations.NewStringSet()}
}

// Units returns the unit vocabulary seen so far
func (p *StrengthParser) Units() *relations.StringSet {
	return p.units
}

// Ratio returns the strength of a concept from its attribute row.
// The four basis of strength fields win over RXN_STRENGTH. A nil ratio
// with a nil error means the concept has no strength.
func (p *StrengthParser) Ratio(attrs map[string]string) (*fhir.Ratio, error) {
	numValue := attrs[rxnormparser.AttrNumeratorValue]
	numUnit := attrs[rxnormparser.AttrNumeratorUnit]
	denValue := attrs[rxnormparser.AttrDenominatorValue]
	denUnit := attrs[rxnormparser.AttrDenominatorUnit]

	if numValue != "" && numUnit != "" && denValue != "" && denUnit != "" {
		num, err := parseValue(numValue)
		if err != nil {
			return nil, err
		}
		den, err := parseValue(denValue)
		if err != nil {
			return nil, err
		}
		return &fhir.Ratio{
			Numerator:   &fhir.Quantity{Value: num, Unit: numUnit},
			Denominator: &fhir.Quantity{Value: den, Unit: denUnit},
		}, nil
	}

	if strength := strings.TrimSpace(attrs[rxnormparser.AttrStrength]); strength != "" {
		return p.parseComposite(strength)
	}

	return nil, nil
}

// parseComposite reads "<value> <numUnit>[/<denUnit>]"
func (p *StrengthParser) parseComposite(strength string) (*fhir.Ratio, error) {
	idx := strings.IndexFunc(strength, unicode.IsSpace)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no unit in %q", ErrUnparsableStrength, strength)
	}

	num, err := parseValue(strength[:idx])
	if err != nil {
		return nil, err
	}

	pair := strings.TrimSpace(strength[idx:])
	numUnit, denUnit, hasDen := strings.Cut(pair, "/")

	p.units.Add(numUnit)
	if !hasDen {
		return &fhir.Ratio{
			Numerator:   &fhir.Quantity{Value: num, Unit: numUnit},
			Denominator: &fhir.Quantity{Value: 1, Unit: unitlessDenominator},
		}, nil
	}

	p.units.Add(denUnit)
	return &fhir.Ratio{
		Numerator:   &fhir.Quantity{Value: num, Unit: numUnit},
		Denominator: &fhir.Quantity{Value: 1, Unit: denUnit},
	}, nil
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableStrength, s)
	}
	return v, nil
}
