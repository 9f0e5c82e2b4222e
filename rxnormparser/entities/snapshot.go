package entities

import (
	"errors"

	"github.com/giygas/rxnorm-fhir/relations"
)

// Snapshot is the fully loaded content of one RxNorm release.
// Builders only read from it.
type Snapshot struct {
	concepts      *Concepts
	relationships *Relationships
	attributes    *relations.AttributeTable
	stats         []FileStats
}

// NewSnapshot groups the output of the three loaders
func NewSnapshot(c *Concepts, r *Relationships, a *relations.AttributeTable, stats ...FileStats) (*Snapshot, error) {
	if c == nil || r == nil || a == nil {
		return nil, errors.New("snapshot needs concepts, relationships and attributes")
	}
	return &Snapshot{
		concepts:      c,
		relationships: r,
		attributes:    a,
		stats:         stats,
	}, nil
}

func (s *Snapshot) Concepts() *Concepts {
	return s.concepts
}

func (s *Snapshot) Relationships() *Relationships {
	return s.relationships
}

func (s *Snapshot) Attributes() *relations.AttributeTable {
	return s.attributes
}

// Stats returns the load statistics of each file, in load order
func (s *Snapshot) Stats() []FileStats {
	return s.stats
}
