// Package validation checks the built FHIR resources before they are written
package validation

import (
	"errors"
	"fmt"

	"github.com/giygas/rxnorm-fhir/builder"
	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/interfaces"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/relations"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
	"golang.org/x/text/cases"
)

// ErrInvalidBundle is returned when the resources can't be written as is
var ErrInvalidBundle = errors.New("invalid bundle")

// maxSamples bounds the ids kept per issue in a report
const maxSamples = 10

// BundleValidator implements the interfaces.ResourceValidator interface
type BundleValidator struct{}

// Compile-time check to ensure BundleValidator implements ResourceValidator interface
var _ interfaces.ResourceValidator = (*BundleValidator)(nil)

// NewBundleValidator creates a new bundle validator
func NewBundleValidator() *BundleValidator {
	return &BundleValidator{}
}

func addSample(samples []string, id string) []string {
	if len(samples) < maxSamples {
		return append(samples, id)
	}
	return samples
}

// ReportQuality generates a data quality report with all issues found
func (v *BundleValidator) ReportQuality(res *builder.Resources) *entities.QualityReport {
	report := &entities.QualityReport{
		RejectedMedications: res.Rejected,
		UnparsedStrengths:   res.UnparsedStrengths,
	}
	fold := cases.Fold()

	// Check 1: every dictionary key is the id of its resource, ids are unique per type
	report.DuplicateIDs = append(report.DuplicateIDs, duplicateIDs(res.Substances)...)
	report.DuplicateIDs = append(report.DuplicateIDs, duplicateIDs(res.Medications)...)
	report.DuplicateIDs = append(report.DuplicateIDs, duplicateIDs(res.MedicationKnowledge)...)

	substanceRefs := make(map[string]bool, res.Substances.Len())
	res.Substances.Each(func(_ string, s *fhir.Substance) {
		substanceRefs[fhir.CreateReference(s).Reference] = true

		// Check 2: substance synonyms differ from the display
		var synonyms []string
		for _, ext := range s.Extension {
			synonyms = append(synonyms, ext.ValueString)
		}
		if !synonymsValid(fold, displayOf(s.Code), synonyms) {
			report.SynonymViolations = addSample(report.SynonymViolations, s.ID)
		}
	})

	medicationRefs := make(map[string]bool, res.Medications.Len())
	res.Medications.Each(func(_ string, m *fhir.Medication) {
		medicationRefs[fhir.CreateReference(m).Reference] = true
	})

	// Check 3: ingredient references resolve to a substance
	res.Medications.Each(func(_ string, m *fhir.Medication) {
		if len(m.Ingredient) == 0 {
			report.MedicationsWithoutIngredients++
		}
		if m.Form == nil {
			report.MedicationsWithoutDoseForm++
		}
		for _, ing := range m.Ingredient {
			if !substanceRefs[ing.ItemReference.Reference] {
				report.DanglingReferences = addSample(report.DanglingReferences, m.ID+" -> "+ing.ItemReference.Reference)
			}
		}
	})

	// Check 4: knowledge references resolve and synonyms differ from the display
	res.MedicationKnowledge.Each(func(_ string, mk *fhir.MedicationKnowledge) {
		for _, ing := range mk.Ingredient {
			if !substanceRefs[ing.ItemReference.Reference] {
				report.DanglingReferences = addSample(report.DanglingReferences, mk.ID+" -> "+ing.ItemReference.Reference)
			}
		}
		for _, ref := range mk.AssociatedMedication {
			if !medicationRefs[ref.Reference] {
				report.DanglingReferences = addSample(report.DanglingReferences, mk.ID+" -> "+ref.Reference)
			}
		}
		if !synonymsValid(fold, displayOf(mk.Code), mk.Synonym) {
			report.SynonymViolations = addSample(report.SynonymViolations, mk.ID)
		}
	})

	logReport(report)
	return report
}

// CheckIntegrity returns ErrInvalidBundle when references dangle or ids collide
func (v *BundleValidator) CheckIntegrity(report *entities.QualityReport) error {
	if report.HasIntegrityErrors() {
		return fmt.Errorf("%w: %d dangling references, %d duplicate ids",
			ErrInvalidBundle, len(report.DanglingReferences), len(report.DuplicateIDs))
	}
	return nil
}

func duplicateIDs[R fhir.Resource](d *relations.Dictionary[R]) []string {
	var duplicates []string
	seen := make(map[string]bool, d.Len())
	d.Each(func(key string, r R) {
		id := r.GetID()
		if key != id || seen[id] {
			duplicates = addSample(duplicates, r.GetResourceType()+"/"+id)
		}
		seen[id] = true
	})
	return duplicates
}

func synonymsValid(fold cases.Caser, display string, synonyms []string) bool {
	primary := fold.String(display)
	seen := make(map[string]bool, len(synonyms))
	for _, s := range synonyms {
		if seen[s] || fold.String(s) == primary {
			return false
		}
		seen[s] = true
	}
	return true
}

func displayOf(code *fhir.CodeableConcept) string {
	if code == nil || len(code.Coding) == 0 {
		return ""
	}
	return code.Coding[0].Display
}

func logReport(report *entities.QualityReport) {
	if len(report.DanglingReferences) > 0 {
		logging.Error("Dangling references detected",
			"count", len(report.DanglingReferences),
			"samples", report.DanglingReferences)
	}
	if len(report.DuplicateIDs) > 0 {
		logging.Error("Duplicate resource ids detected",
			"count", len(report.DuplicateIDs),
			"samples", report.DuplicateIDs)
	}
	if len(report.SynonymViolations) > 0 {
		logging.Warn("Synonyms equal to the display name",
			"count", len(report.SynonymViolations),
			"samples", report.SynonymViolations)
	}
	if len(report.RejectedMedications) > 0 {
		logging.Warn("Medications rejected by the strength policy",
			"count", len(report.RejectedMedications))
	}

	logging.Info("Data quality report",
		"medications_without_ingredients", report.MedicationsWithoutIngredients,
		"medications_without_dose_form", report.MedicationsWithoutDoseForm,
		"unparsed_strengths", report.UnparsedStrengths)
}
