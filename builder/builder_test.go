package builder

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/rrftest"
	"github.com/giygas/rxnorm-fhir/rxnormparser"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

const testBaseURL = "http://example.org/fhir/"

func snapshotOf(t *testing.T, release rrftest.Release) *entities.Snapshot {
	t.Helper()
	snap, err := rxnormparser.LoadFromReaders(
		strings.NewReader(rrftest.Lines(release.Conso...)),
		strings.NewReader(rrftest.Lines(release.Rel...)),
		strings.NewReader(rrftest.Lines(release.Sat...)),
		rxnormparser.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFromReaders failed: %v", err)
	}
	return snap
}

func build(t *testing.T, release rrftest.Release, policy string) *Resources {
	t.Helper()
	return New(snapshotOf(t, release), Options{BaseURL: testBaseURL, StrengthPolicy: policy}).Build()
}

func extensionValues(exts []fhir.Extension, url string) []string {
	var values []string
	for _, e := range exts {
		if e.URL == url {
			values = append(values, e.ValueString)
		}
	}
	return values
}

func references(ingredients []fhir.Ingredient) []string {
	var refs []string
	for _, i := range ingredients {
		refs = append(refs, i.ItemReference.Reference)
	}
	return refs
}

func TestCleanSynonyms(t *testing.T) {
	b := New(nil, Options{})

	testCases := []struct {
		name       string
		display    string
		candidates []string
		want       []string
	}{
		{"case variants of display", "Foo", []string{"Foo", "foo", "Bar"}, []string{"Bar"}},
		{"exact duplicates", "X", []string{"a", "b", "a"}, []string{"a", "b"}},
		{"unicode folding", "Straße", []string{"STRASSE", "Strasse!"}, []string{"Strasse!"}},
		{"nothing left", "Foo", []string{"FOO"}, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := b.cleanSynonyms(tc.display, tc.candidates)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBuildSubstances(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)

	if got := res.Substances.Keys(); !slices.Equal(got, []string{"subst-161", "subst-1191"}) {
		t.Fatalf("Unexpected substances %v", got)
	}

	apap, _ := res.Substances.Get("subst-161")
	if apap.Status != fhir.StatusActive || apap.Code.Coding[0].Code != "161" {
		t.Errorf("Unexpected substance %+v", apap)
	}

	synonyms := extensionValues(apap.Extension, testBaseURL+"StructureDefinition/synonym")
	want := []string{"APAP", "Acetaminophen hydrochloride", "APAP HCl"}
	if !slices.Equal(synonyms, want) {
		t.Errorf("Expected synonyms %v, got %v", want, synonyms)
	}

	aspirin, _ := res.Substances.Get("subst-1191")
	if len(aspirin.Extension) != 0 {
		t.Errorf("Expected no extension on aspirin, got %v", aspirin.Extension)
	}
}

func TestBuildMedicationsOrderAndPairs(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)

	want := []string{"med-315266", "med-315431", "med-198440", "med-243670", "med-209387", "med-1092189"}
	if got := res.Medications.Keys(); !slices.Equal(got, want) {
		t.Fatalf("Unexpected medications %v", got)
	}
	if got := res.MedicationKnowledge.Keys(); !slices.Equal(got, want) {
		t.Fatalf("Unexpected medication knowledge %v", got)
	}
}

func TestClinicalDrug(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)

	med, _ := res.Medications.Get("med-198440")
	if got := references(med.Ingredient); !slices.Equal(got, []string{"Substance/subst-161"}) {
		t.Fatalf("Unexpected ingredients %v", got)
	}
	strength := med.Ingredient[0].Strength
	if strength == nil || strength.Numerator.Value != 500 || strength.Numerator.Unit != "MG" ||
		strength.Denominator.Value != 1 || strength.Denominator.Unit != "1" {
		t.Errorf("Unexpected strength %+v", strength)
	}
	if !med.Ingredient[0].IsActive {
		t.Error("Expected ingredient to be active")
	}
	if med.Form == nil || med.Form.Coding[0].Display != "Oral Tablet" {
		t.Errorf("Expected Oral Tablet form, got %+v", med.Form)
	}
	if len(med.Extension) != 0 {
		t.Errorf("Expected no brand on a clinical drug, got %v", med.Extension)
	}

	mk, _ := res.MedicationKnowledge.Get("med-198440")
	if !slices.Equal(mk.Synonym, []string{"APAP 500 MG Oral Tablet"}) {
		t.Errorf("Unexpected synonyms %v", mk.Synonym)
	}
	if mk.DoseForm == nil || mk.DoseForm.Coding[0].Code != "317541" {
		t.Errorf("Unexpected dose form %+v", mk.DoseForm)
	}
}

func TestDoseFormGroupFallbackAndBossStrength(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)

	med, _ := res.Medications.Get("med-243670")
	if med.Form == nil || med.Form.Coding[0].Display != "Pill" {
		t.Errorf("Expected dose form group Pill, got %+v", med.Form)
	}
	strength := med.Ingredient[0].Strength
	if strength.Numerator.Value != 81 || strength.Denominator.Unit != "EACH" {
		t.Errorf("Expected basis of strength ratio, got %+v", strength)
	}
}

func TestBrandedDrug(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)
	brandURL := testBaseURL + "StructureDefinition/brand"

	med, _ := res.Medications.Get("med-209387")
	if got := extensionValues(med.Extension, brandURL); !slices.Equal(got, []string{"Tylenol"}) {
		t.Errorf("Expected brand Tylenol, got %v", got)
	}
	if got := references(med.Ingredient); !slices.Equal(got, []string{"Substance/subst-161"}) {
		t.Errorf("Unexpected ingredients %v", got)
	}

	mk, _ := res.MedicationKnowledge.Get("med-209387")
	if got := extensionValues(mk.Extension, brandURL); !slices.Equal(got, []string{"Tylenol"}) {
		t.Errorf("Expected brand on the knowledge, got %v", got)
	}
	var parents []string
	for _, ref := range mk.AssociatedMedication {
		parents = append(parents, ref.Reference)
	}
	if want := []string{"Medication/med-198440", "Medication/med-315266"}; !slices.Equal(parents, want) {
		t.Errorf("Expected parents %v, got %v", want, parents)
	}
}

func TestBrandWithoutIngredientIsOmitted(t *testing.T) {
	release := rrftest.Release{
		Conso: []string{rrftest.Conso("1", "RXNORM", "SBD", "Orphan [Brand]", "N")},
	}
	res := build(t, release, config.StrengthPermissive)

	med, ok := res.Medications.Get("med-1")
	if !ok {
		t.Fatal("Expected med-1")
	}
	if len(med.Extension) != 0 || len(med.Ingredient) != 0 {
		t.Errorf("Expected a bare medication, got %+v", med)
	}
}

func TestPackIngredientsInOrder(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)

	med, _ := res.Medications.Get("med-1092189")
	want := []string{"Substance/subst-161", "Substance/subst-1191"}
	if got := references(med.Ingredient); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestMissingIngredientIsNotFabricated(t *testing.T) {
	release := rrftest.Release{
		Conso: []string{rrftest.Conso("10", "RXNORM", "SCDC", "Unknown 5 MG", "N")},
		Rel:   []string{rrftest.Rel("404", "10", "has_ingredient", "RXNORM", "N")},
		Sat:   []string{rrftest.Sat("10", "RXN_STRENGTH", "RXNORM", "5 XYZ", "N")},
	}
	res := build(t, release, config.StrengthPermissive)

	med, _ := res.Medications.Get("med-10")
	if len(med.Ingredient) != 0 {
		t.Errorf("Expected no ingredient, got %v", med.Ingredient)
	}
	if res.Units.Has("XYZ") {
		t.Error("Units of unattached strengths should not be recorded")
	}
}

func TestUnitVocabulary(t *testing.T) {
	res := build(t, rrftest.Sample(), config.StrengthPermissive)
	if got := res.Units.Items(); !slices.Equal(got, []string{"MG"}) {
		t.Errorf("Expected units [MG], got %v", got)
	}
}

func badStrengthRelease() rrftest.Release {
	release := rrftest.Sample()
	release.Sat[0] = rrftest.Sat("315266", "RXN_STRENGTH", "RXNORM", "five MG", "N")
	release.Rel = append(release.Rel, rrftest.Rel("198440", "243670", "isa", "RXNORM", "N"))
	return release
}

func TestPermissiveStrengthPolicy(t *testing.T) {
	res := build(t, badStrengthRelease(), config.StrengthPermissive)

	if res.Medications.Len() != 6 {
		t.Errorf("Expected every medication to be kept, got %d", res.Medications.Len())
	}
	if res.UnparsedStrengths != 4 {
		t.Errorf("Expected 4 unparsed strengths, got %d", res.UnparsedStrengths)
	}
	med, _ := res.Medications.Get("med-198440")
	if len(med.Ingredient) != 1 || med.Ingredient[0].Strength != nil {
		t.Errorf("Expected the ingredient without strength, got %+v", med.Ingredient)
	}
}

func TestStrictStrengthPolicy(t *testing.T) {
	res := build(t, badStrengthRelease(), config.StrengthStrict)

	want := []string{"med-315431", "med-243670"}
	if got := res.Medications.Keys(); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := res.MedicationKnowledge.Keys(); !slices.Equal(got, want) {
		t.Errorf("Expected knowledge %v, got %v", want, got)
	}
	if !slices.Equal(res.Rejected, []string{"315266", "198440", "209387", "1092189"}) {
		t.Errorf("Unexpected rejected %v", res.Rejected)
	}

	mk, _ := res.MedicationKnowledge.Get("med-243670")
	var parents []string
	for _, ref := range mk.AssociatedMedication {
		parents = append(parents, ref.Reference)
	}
	if want := []string{"Medication/med-315431"}; !slices.Equal(parents, want) {
		t.Errorf("Expected only the rejected parent to be removed, want %v, got %v", want, parents)
	}
}

func TestStrengthRatio(t *testing.T) {
	testCases := []struct {
		name     string
		attrs    map[string]string
		num      fhir.Quantity
		den      fhir.Quantity
		noRatio  bool
		parseErr bool
	}{
		{
			name:  "composite with denominator",
			attrs: map[string]string{rxnormparser.AttrStrength: "5 mg/mL"},
			num:   fhir.Quantity{Value: 5, Unit: "mg"},
			den:   fhir.Quantity{Value: 1, Unit: "mL"},
		},
		{
			name:  "composite without denominator",
			attrs: map[string]string{rxnormparser.AttrStrength: "5 mg"},
			num:   fhir.Quantity{Value: 5, Unit: "mg"},
			den:   fhir.Quantity{Value: 1, Unit: "1"},
		},
		{
			name:  "decimal value and extra spaces",
			attrs: map[string]string{rxnormparser.AttrStrength: "0.25  MG/ACTUAT"},
			num:   fhir.Quantity{Value: 0.25, Unit: "MG"},
			den:   fhir.Quantity{Value: 1, Unit: "ACTUAT"},
		},
		{
			name: "basis of strength wins",
			attrs: map[string]string{
				rxnormparser.AttrNumeratorValue:   "10",
				rxnormparser.AttrNumeratorUnit:    "MG",
				rxnormparser.AttrDenominatorValue: "5",
				rxnormparser.AttrDenominatorUnit:  "ML",
				rxnormparser.AttrStrength:         "2 MG/ML",
			},
			num: fhir.Quantity{Value: 10, Unit: "MG"},
			den: fhir.Quantity{Value: 5, Unit: "ML"},
		},
		{
			name: "partial basis of strength falls back",
			attrs: map[string]string{
				rxnormparser.AttrNumeratorValue: "10",
				rxnormparser.AttrStrength:       "2 MG/ML",
			},
			num: fhir.Quantity{Value: 2, Unit: "MG"},
			den: fhir.Quantity{Value: 1, Unit: "ML"},
		},
		{name: "no strength", attrs: nil, noRatio: true},
		{name: "not a number", attrs: map[string]string{rxnormparser.AttrStrength: "abc MG"}, parseErr: true},
		{name: "no unit", attrs: map[string]string{rxnormparser.AttrStrength: "5"}, parseErr: true},
		{name: "not finite", attrs: map[string]string{rxnormparser.AttrStrength: "NaN MG"}, parseErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ratio, err := NewStrengthParser().Ratio(tc.attrs)
			if tc.parseErr {
				if !errors.Is(err, ErrUnparsableStrength) {
					t.Fatalf("Expected ErrUnparsableStrength, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error %v", err)
			}
			if tc.noRatio {
				if ratio != nil {
					t.Errorf("Expected no ratio, got %+v", ratio)
				}
				return
			}
			if *ratio.Numerator != tc.num || *ratio.Denominator != tc.den {
				t.Errorf("Expected %v/%v, got %v/%v", tc.num, tc.den, *ratio.Numerator, *ratio.Denominator)
			}
		})
	}
}

func TestStrengthUnitsAreRecorded(t *testing.T) {
	p := NewStrengthParser()
	for _, s := range []string{"5 MG/ML", "10 MG", "1 UNT/ML"} {
		if _, err := p.Ratio(map[string]string{rxnormparser.AttrStrength: s}); err != nil {
			t.Fatalf("Unexpected error for %s: %v", s, err)
		}
	}
	if got := p.Units().Items(); !slices.Equal(got, []string{"MG", "ML", "UNT"}) {
		t.Errorf("Unexpected units %v", got)
	}
}
