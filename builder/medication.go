package builder

import (
	"errors"

	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/relations"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// Term types carrying a brand name
var brandedTermTypes = map[string]bool{"SBD": true, "SBDC": true, "SBDF": true, "SBDG": true}

// drug is a Medication with its knowledge before rejected concepts are removed
type drug struct {
	med       *fhir.Medication
	knowledge *fhir.MedicationKnowledge
}

// BuildMedications creates a Medication and a MedicationKnowledge per generic
// concept, in dictionary order. Ingredient references only point to substances.
func (b *Builder) BuildMedications(substances *relations.Dictionary[*fhir.Substance]) *Resources {
	concepts := b.snap.Concepts()
	res := &Resources{
		Medications:         relations.NewDictionary[*fhir.Medication](),
		MedicationKnowledge: relations.NewDictionary[*fhir.MedicationKnowledge](),
		Units:               b.strength.Units(),
	}

	var drugs []drug
	rejected := make(map[string]bool) // references to rejected medications

	concepts.GenericConcepts.Each(func(rxcui string, concept entities.Concept) {
		ingredients, err := b.ingredientsOf(rxcui, concept.TermType, substances)
		if err != nil {
			res.UnparsedStrengths++
			if b.opts.StrengthPolicy == config.StrengthStrict {
				rejected[fhir.TypeMedication+"/"+MedicationID(rxcui)] = true
				res.Rejected = append(res.Rejected, rxcui)
				logging.Debug("Medication rejected", "rxcui", rxcui, "error", err)
				return
			}
		}

		drugs = append(drugs, b.newDrug(rxcui, concept, ingredients))
	})

	for _, d := range drugs {
		if len(rejected) > 0 {
			d.knowledge.AssociatedMedication = withoutRejected(d.knowledge.AssociatedMedication, rejected)
		}
		res.Medications.Set(d.med.ID, d.med)
		res.MedicationKnowledge.Set(d.knowledge.ID, d.knowledge)
	}

	return res
}

// newDrug fills both resources of one concept
func (b *Builder) newDrug(rxcui string, concept entities.Concept, ingredients []fhir.Ingredient) drug {
	concepts := b.snap.Concepts()
	rels := b.snap.Relationships()
	id := MedicationID(rxcui)

	med := &fhir.Medication{
		ResourceType: fhir.TypeMedication,
		ID:           id,
		Status:       fhir.StatusActive,
		Code:         codeOf(concept),
		Ingredient:   ingredients,
	}
	knowledge := &fhir.MedicationKnowledge{
		ResourceType: fhir.TypeMedicationKnowledge,
		ID:           id,
		Status:       fhir.StatusActive,
		Code:         codeOf(concept),
		Ingredient:   ingredients,
	}

	if brand, ok := b.brandOf(rxcui, concept.TermType); ok {
		ext := fhir.Extension{URL: b.opts.brandURL(), ValueString: brand}
		med.Extension = append(med.Extension, ext)
		knowledge.Extension = append(knowledge.Extension, ext)
	}

	doseFormID := rels.HasDoseForm.Get(rxcui)
	if doseFormID == "" {
		doseFormID = rels.HasDoseFormGroup.Get(rxcui)
	}
	if form, ok := concepts.DoseForms.Get(doseFormID); ok {
		med.Form = codeOf(form)
		knowledge.DoseForm = codeOf(form)
	}

	for _, parents := range [][]string{rels.IsA.Get(rxcui), rels.ConsistsOf.Get(rxcui)} {
		for _, parent := range parents {
			if concepts.GenericConcepts.Has(parent) {
				knowledge.AssociatedMedication = append(knowledge.AssociatedMedication,
					fhir.ReferenceTo(fhir.TypeMedication, MedicationID(parent)))
			}
		}
	}

	knowledge.Synonym = b.cleanSynonyms(concept.Display, concepts.Synonyms.Get(rxcui))

	return drug{med: med, knowledge: knowledge}
}

// brandOf returns the brand name of a branded concept: the brand of its
// first has_ingredient target
func (b *Builder) brandOf(rxcui, tty string) (string, bool) {
	if !brandedTermTypes[tty] {
		return "", false
	}
	first, ok := b.snap.Relationships().HasIngredient.First(rxcui)
	if !ok {
		return "", false
	}
	brand, ok := b.snap.Concepts().Brands.Get(first)
	if !ok {
		return "", false
	}
	return brand.Display, true
}

// ingredientsOf walks the relations that lead from a concept to the
// components holding its ingredients
func (b *Builder) ingredientsOf(rxcui, tty string, substances *relations.Dictionary[*fhir.Substance]) ([]fhir.Ingredient, error) {
	rels := b.snap.Relationships()

	var sources []string
	switch tty {
	case "SBD", "SCD":
		sources = rels.ConsistsOf.Get(rxcui)
	case "SCDC", "SCDF", "SCDG", "SBDG":
		sources = []string{rxcui}
	case "SBDC", "SBDF":
		sources = rels.TradeNameOf.Get(rxcui)
	case "BPCK", "GPCK":
		for _, clinicalDrug := range rels.Contains.Get(rxcui) {
			sources = append(sources, rels.ConsistsOf.Get(clinicalDrug)...)
		}
	}

	var ingredients []fhir.Ingredient
	var errs []error
	for _, source := range sources {
		components, err := b.componentsOf(source, substances)
		if err != nil {
			errs = append(errs, err)
		}
		ingredients = append(ingredients, components...)
	}
	return ingredients, errors.Join(errs...)
}

// componentsOf resolves the has_ingredient targets of a concept into
// ingredient components carrying the concept's strength
func (b *Builder) componentsOf(rxcui string, substances *relations.Dictionary[*fhir.Substance]) ([]fhir.Ingredient, error) {
	concepts := b.snap.Concepts()

	var components []fhir.Ingredient
	for _, ing := range b.snap.Relationships().HasIngredient.Get(rxcui) {
		if !concepts.Ingredients.Has(ing) {
			continue
		}
		substance, ok := substances.Get(SubstanceID(ing))
		if !ok {
			continue
		}
		components = append(components, fhir.Ingredient{
			ItemReference: fhir.CreateReference(substance),
			IsActive:      true,
		})
	}

	if len(components) == 0 {
		return nil, nil
	}

	strength, err := b.strength.Ratio(b.snap.Attributes().Row(rxcui))
	for i := range components {
		components[i].Strength = strength
	}
	return components, err
}

func withoutRejected(refs []fhir.Reference, rejected map[string]bool) []fhir.Reference {
	var kept []fhir.Reference
	for _, ref := range refs {
		if !rejected[ref.Reference] {
			kept = append(kept, ref)
		}
	}
	return kept
}
