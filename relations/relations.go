// Package relations holds the in-memory tables built from the RRF files.
//
// Every table has a fixed merge policy for duplicate keys:
//   - Dictionary and OneToOne overwrite the value, the key keeps its first position
//   - OneToMany appends, duplicates included, in insertion order
//   - AttributeTable overwrites per (key, attribute) pair
//
// Iteration order is always insertion order so that anything derived from a
// table is a pure function of the input file order.
package relations

// Dictionary is a map that iterates in insertion order
type Dictionary[V any] struct {
	index map[string]int
	keys  []string
	vals  []V
}

// NewDictionary creates an empty dictionary
func NewDictionary[V any]() *Dictionary[V] {
	return &Dictionary[V]{index: make(map[string]int)}
}

// Set stores value under key. An existing key keeps its position.
func (d *Dictionary[V]) Set(key string, value V) {
	if i, ok := d.index[key]; ok {
		d.vals[i] = value
		return
	}
	d.index[key] = len(d.keys)
	d.keys = append(d.keys, key)
	d.vals = append(d.vals, value)
}

// Get returns the value stored under key
func (d *Dictionary[V]) Get(key string) (V, bool) {
	i, ok := d.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return d.vals[i], true
}

// Has reports whether key is present
func (d *Dictionary[V]) Has(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Len returns the number of keys
func (d *Dictionary[V]) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order
func (d *Dictionary[V]) Keys() []string {
	return d.keys
}

// Values returns the values in key insertion order
func (d *Dictionary[V]) Values() []V {
	return d.vals
}

// Each calls fn for every entry in insertion order
func (d *Dictionary[V]) Each(fn func(key string, value V)) {
	for i, k := range d.keys {
		fn(k, d.vals[i])
	}
}

// OneToOne maps a source id to a single target id, later entries win
type OneToOne struct {
	m map[string]string
}

// NewOneToOne creates an empty one-to-one relation
func NewOneToOne() *OneToOne {
	return &OneToOne{m: make(map[string]string)}
}

// Set stores target for source, replacing a previous target
func (r *OneToOne) Set(source, target string) {
	r.m[source] = target
}

// Get returns the target of source, or "" when absent
func (r *OneToOne) Get(source string) string {
	return r.m[source]
}

// Len returns the number of sources
func (r *OneToOne) Len() int {
	return len(r.m)
}

// OneToMany maps a source id to an ordered list of target ids
type OneToMany struct {
	m     map[string][]string
	count int
}

// NewOneToMany creates an empty one-to-many relation
func NewOneToMany() *OneToMany {
	return &OneToMany{m: make(map[string][]string)}
}

// Add appends target to the list of source. Duplicates are kept.
func (r *OneToMany) Add(source, target string) {
	r.m[source] = append(r.m[source], target)
	r.count++
}

// Get returns the targets of source in insertion order, nil when absent.
// The returned slice must not be modified.
func (r *OneToMany) Get(source string) []string {
	return r.m[source]
}

// First returns the first target of source
func (r *OneToMany) First(source string) (string, bool) {
	targets := r.m[source]
	if len(targets) == 0 {
		return "", false
	}
	return targets[0], true
}

// Len returns the number of sources
func (r *OneToMany) Len() int {
	return len(r.m)
}

// Count returns the number of stored pairs
func (r *OneToMany) Count() int {
	return r.count
}

// AttributeTable maps (concept id, attribute name) to a single value
type AttributeTable struct {
	rows  map[string]map[string]string
	count int
}

// NewAttributeTable creates an empty attribute table
func NewAttributeTable() *AttributeTable {
	return &AttributeTable{rows: make(map[string]map[string]string)}
}

// Set stores value for (key, name), replacing a previous value
func (t *AttributeTable) Set(key, name, value string) {
	row, ok := t.rows[key]
	if !ok {
		row = make(map[string]string)
		t.rows[key] = row
	}
	if _, exists := row[name]; !exists {
		t.count++
	}
	row[name] = value
}

// Get returns the value of (key, name)
func (t *AttributeTable) Get(key, name string) (string, bool) {
	v, ok := t.rows[key][name]
	return v, ok
}

// Row returns every attribute of key. The returned map must not be modified.
func (t *AttributeTable) Row(key string) map[string]string {
	return t.rows[key]
}

// Len returns the number of keys
func (t *AttributeTable) Len() int {
	return len(t.rows)
}

// Count returns the number of stored (key, name) pairs
func (t *AttributeTable) Count() int {
	return t.count
}

// StringSet is an insertion ordered set of strings
type StringSet struct {
	seen  map[string]struct{}
	items []string
}

// NewStringSet creates a set holding items, first occurrence wins
func NewStringSet(items ...string) *StringSet {
	s := &StringSet{seen: make(map[string]struct{})}
	s.Add(items...)
	return s
}

// Add inserts the items not already present
func (s *StringSet) Add(items ...string) {
	for _, item := range items {
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.items = append(s.items, item)
	}
}

// Has reports whether item is in the set
func (s *StringSet) Has(item string) bool {
	_, ok := s.seen[item]
	return ok
}

// Items returns the items in insertion order
func (s *StringSet) Items() []string {
	return s.items
}

// Len returns the number of items
func (s *StringSet) Len() int {
	return len(s.items)
}
