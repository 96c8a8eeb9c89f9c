// Package entry defines directory entries, their identifiers and names, and the
// binary record format used to keep them in a master table.
package entry

import (
	"sort"
	"strings"
)

// Entry is a directory record. Attribute names are stored lower case.
type Entry struct {
	ID ID
	DN string

	Attributes map[string][][]byte
}

// New creates an empty entry with the given id and DN.
func New(id ID, dn string) *Entry {
	return &Entry{
		ID:         id,
		DN:         dn,
		Attributes: make(map[string][][]byte),
	}
}

// NormalizeAttributeName returns the canonical form of an attribute name.
func NormalizeAttributeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeValue returns the form of an attribute value used for equality
// matching and index keys: surrounding space trimmed and lower-cased.
func NormalizeValue(v []byte) string {
	return strings.ToLower(strings.TrimSpace(string(v)))
}

// Get returns the values of an attribute, or nil.
func (e *Entry) Get(name string) [][]byte {
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes[NormalizeAttributeName(name)]
}

// GetString returns the first value of an attribute as a string.
func (e *Entry) GetString(name string) string {
	values := e.Get(name)
	if len(values) == 0 {
		return ""
	}
	return string(values[0])
}

// Has reports whether the entry carries the attribute.
func (e *Entry) Has(name string) bool {
	if e.Attributes == nil {
		return false
	}
	_, ok := e.Attributes[NormalizeAttributeName(name)]
	return ok
}

// Set replaces the values of an attribute.
func (e *Entry) Set(name string, values ...[]byte) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][][]byte)
	}
	e.Attributes[NormalizeAttributeName(name)] = values
}

// SetString replaces the values of an attribute with string values.
func (e *Entry) SetString(name string, values ...string) {
	raw := make([][]byte, len(values))
	for i, v := range values {
		raw[i] = []byte(v)
	}
	e.Set(name, raw...)
}

// Add appends a value to an attribute.
func (e *Entry) Add(name string, value []byte) {
	if e.Attributes == nil {
		e.Attributes = make(map[string][][]byte)
	}
	name = NormalizeAttributeName(name)
	e.Attributes[name] = append(e.Attributes[name], value)
}

// Remove drops an attribute entirely.
func (e *Entry) Remove(name string) {
	delete(e.Attributes, NormalizeAttributeName(name))
}

// AttributeNames returns the attribute names in sorted order.
func (e *Entry) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for name := range e.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy. Filters mutate clones, never cached entries.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := &Entry{
		ID:         e.ID,
		DN:         e.DN,
		Attributes: make(map[string][][]byte, len(e.Attributes)),
	}
	for name, values := range e.Attributes {
		copied := make([][]byte, len(values))
		for i, v := range values {
			copied[i] = append([]byte(nil), v...)
		}
		clone.Attributes[name] = copied
	}
	return clone
}
