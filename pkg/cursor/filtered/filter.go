// Package filtered provides a cursor decorator that runs each candidate entry
// through an ordered chain of filters.
package filtered

import (
	"errors"

	"github.com/KevoDB/dircore/pkg/entry"
)

// ErrNilFilter is returned when a nil filter is added
var ErrNilFilter = errors.New("nil filter")

// SearchContext is the part of a running search a filtering cursor consults.
type SearchContext interface {
	// IsAbandoned reports whether the client abandoned the search
	IsAbandoned() bool

	// SetAbandoned marks the search abandoned, or clears the mark
	SetAbandoned(abandoned bool)

	// Project trims an accepted entry to what the search asked to return.
	// It only ever receives a private working copy.
	Project(e *entry.Entry)
}

// Filter accepts or rejects a candidate. It may modify the candidate, which
// is always a private copy of the stored entry.
type Filter interface {
	Accept(ctx SearchContext, candidate *entry.Entry) (bool, error)
}

// Manager is implemented by cursors whose filter chain can be changed.
type Manager interface {
	// AddFilter appends a filter to the end of the chain
	AddFilter(f Filter) error

	// RemoveFilter removes the first occurrence of f, reporting whether it was found
	RemoveFilter(f Filter) bool

	// Filters returns a copy of the chain in evaluation order
	Filters() []Filter
}

// funcFilter adapts a function. It is held by pointer so it can be removed.
type funcFilter struct {
	name string
	fn   func(ctx SearchContext, candidate *entry.Entry) (bool, error)
}

// NewFilterFunc wraps fn as a Filter. The name shows up in String.
func NewFilterFunc(name string, fn func(ctx SearchContext, candidate *entry.Entry) (bool, error)) Filter {
	return &funcFilter{name: name, fn: fn}
}

func (f *funcFilter) Accept(ctx SearchContext, candidate *entry.Entry) (bool, error) {
	return f.fn(ctx, candidate)
}

func (f *funcFilter) String() string {
	return f.name
}

// removeFilter returns filters without the first occurrence of f.
func removeFilter(filters []Filter, f Filter) ([]Filter, bool) {
	for i, existing := range filters {
		if existing == f {
			return append(filters[:i:i], filters[i+1:]...), true
		}
	}
	return filters, false
}
