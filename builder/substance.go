package builder

import (
	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/relations"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// BuildSubstances creates one Substance per ingredient. Precise ingredients
// reached through has_form are flattened into synonyms.
func (b *Builder) BuildSubstances() *relations.Dictionary[*fhir.Substance] {
	concepts := b.snap.Concepts()
	rels := b.snap.Relationships()
	substances := relations.NewDictionary[*fhir.Substance]()

	concepts.Ingredients.Each(func(rxcui string, ingredient entities.Concept) {
		candidates := append([]string(nil), concepts.Synonyms.Get(rxcui)...)

		for _, pin := range rels.HasForm.Get(rxcui) {
			if precise, ok := concepts.PreciseIngredients.Get(pin); ok {
				candidates = append(candidates, precise.Display)
			}
			candidates = append(candidates, concepts.Synonyms.Get(pin)...)
		}

		substance := &fhir.Substance{
			ResourceType: fhir.TypeSubstance,
			ID:           SubstanceID(rxcui),
			Status:       fhir.StatusActive,
			Code:         codeOf(ingredient),
		}
		for _, synonym := range b.cleanSynonyms(ingredient.Display, candidates) {
			substance.Extension = append(substance.Extension, fhir.Extension{
				URL:         b.opts.synonymURL(),
				ValueString: synonym,
			})
		}

		substances.Set(substance.ID, substance)
	})

	return substances
}
