// Package entities holds the typed tables loaded from an RxNorm release and
// the reports produced by a conversion run.
package entities

import "github.com/giygas/rxnorm-fhir/relations"

// RxNormSystem is the code system of every RxNorm concept
const RxNormSystem = "http://www.nlm.nih.gov/research/umls/rxnorm"

// Concept is one RxNorm concept with its preferred label
type Concept struct {
	System   string `json:"system"`
	Code     string `json:"code"`
	Display  string `json:"display"`
	TermType string `json:"termType"`
}

// Concepts holds the concept dictionaries and the synonym index, keyed by RXCUI
type Concepts struct {
	Ingredients        *relations.Dictionary[Concept] // IN
	Brands             *relations.Dictionary[Concept] // BN
	DoseForms          *relations.Dictionary[Concept] // DF, DFG
	GenericConcepts    *relations.Dictionary[Concept] // drugs, components, forms, groups, packs
	PreciseIngredients *relations.Dictionary[Concept] // PIN
	Synonyms           *relations.OneToMany
}

// NewConcepts creates empty concept tables
func NewConcepts() *Concepts {
	return &Concepts{
		Ingredients:        relations.NewDictionary[Concept](),
		Brands:             relations.NewDictionary[Concept](),
		DoseForms:          relations.NewDictionary[Concept](),
		GenericConcepts:    relations.NewDictionary[Concept](),
		PreciseIngredients: relations.NewDictionary[Concept](),
		Synonyms:           relations.NewOneToMany(),
	}
}

// Relationships holds the relations read from MRREL. Keys are RXCUI2, values RXCUI1.
type Relationships struct {
	HasDoseForm      *relations.OneToOne
	HasDoseFormGroup *relations.OneToOne
	HasIngredient    *relations.OneToMany
	ConsistsOf       *relations.OneToMany
	Contains         *relations.OneToMany
	IsA              *relations.OneToMany
	HasForm          *relations.OneToMany
	TradeNameOf      *relations.OneToMany
}

// NewRelationships creates empty relationship tables
func NewRelationships() *Relationships {
	return &Relationships{
		HasDoseForm:      relations.NewOneToOne(),
		HasDoseFormGroup: relations.NewOneToOne(),
		HasIngredient:    relations.NewOneToMany(),
		ConsistsOf:       relations.NewOneToMany(),
		Contains:         relations.NewOneToMany(),
		IsA:              relations.NewOneToMany(),
		HasForm:          relations.NewOneToMany(),
		TradeNameOf:      relations.NewOneToMany(),
	}
}
