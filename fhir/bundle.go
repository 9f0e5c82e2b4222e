package fhir

// BundleTypeCollection is the type of every emitted bundle
const BundleTypeCollection = "collection"

// Bundle is a FHIR Bundle
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleEntry is an entry within a Bundle
type BundleEntry struct {
	Resource Resource `json:"resource"`
}

// NewCollection wraps resources in a collection bundle, keeping their order
func NewCollection[T Resource](resources []T) *Bundle {
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, BundleEntry{Resource: r})
	}
	return &Bundle{
		ResourceType: TypeBundle,
		Type:         BundleTypeCollection,
		Entry:        entries,
	}
}
