// Package fhir has the subset of FHIR R4 resources emitted by the converter
package fhir

// Resource types
const (
	TypeSubstance           = "Substance"
	TypeMedication          = "Medication"
	TypeMedicationKnowledge = "MedicationKnowledge"
	TypeBundle              = "Bundle"
)

// StatusActive is the status of every emitted resource
const StatusActive = "active"

// Resource is implemented by every emitted resource
type Resource interface {
	GetResourceType() string
	GetID() string
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Extension struct {
	URL         string `json:"url"`
	ValueString string `json:"valueString"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type Ratio struct {
	Numerator   *Quantity `json:"numerator,omitempty"`
	Denominator *Quantity `json:"denominator,omitempty"`
}

type Reference struct {
	Reference string `json:"reference"`
}

// Substance is an ingredient concept
type Substance struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id"`
	Extension    []Extension      `json:"extension,omitempty"`
	Status       string           `json:"status"`
	Code         *CodeableConcept `json:"code"`
}

func (s *Substance) GetResourceType() string { return s.ResourceType }
func (s *Substance) GetID() string           { return s.ID }

// Ingredient is an ingredient of a Medication or MedicationKnowledge
type Ingredient struct {
	ItemReference Reference `json:"itemReference"`
	IsActive      bool      `json:"isActive"`
	Strength      *Ratio    `json:"strength,omitempty"`
}

// Medication is a drug concept
type Medication struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id"`
	Extension    []Extension      `json:"extension,omitempty"`
	Status       string           `json:"status"`
	Code         *CodeableConcept `json:"code"`
	Form         *CodeableConcept `json:"form,omitempty"`
	Ingredient   []Ingredient     `json:"ingredient,omitempty"`
}

func (m *Medication) GetResourceType() string { return m.ResourceType }
func (m *Medication) GetID() string           { return m.ID }

// MedicationKnowledge carries the knowledge attached to a drug concept
type MedicationKnowledge struct {
	ResourceType         string           `json:"resourceType"`
	ID                   string           `json:"id"`
	Extension            []Extension      `json:"extension,omitempty"`
	Status               string           `json:"status"`
	Code                 *CodeableConcept `json:"code"`
	DoseForm             *CodeableConcept `json:"doseForm,omitempty"`
	Synonym              []string         `json:"synonym,omitempty"`
	AssociatedMedication []Reference      `json:"associatedMedication,omitempty"`
	Ingredient           []Ingredient     `json:"ingredient,omitempty"`
}

func (m *MedicationKnowledge) GetResourceType() string { return m.ResourceType }
func (m *MedicationKnowledge) GetID() string           { return m.ID }

// ReferenceTo builds a literal reference "Type/id"
func ReferenceTo(resourceType, id string) Reference {
	return Reference{Reference: resourceType + "/" + id}
}

// CreateReference builds the literal reference of a resource
func CreateReference(r Resource) Reference {
	return ReferenceTo(r.GetResourceType(), r.GetID())
}

// SingleCoding wraps one coding in a CodeableConcept
func SingleCoding(system, code, display string) *CodeableConcept {
	return &CodeableConcept{
		Coding: []Coding{{System: system, Code: code, Display: display}},
	}
}
