package search

import (
	"github.com/KevoDB/dircore/pkg/cursor/filtered"
	"github.com/KevoDB/dircore/pkg/entry"
)

// Evaluator decides whether an entry matches a single assertion.
type Evaluator interface {
	// Attribute is the normalized attribute the assertion is on
	Attribute() string

	// Evaluate reports whether e matches
	Evaluate(e *entry.Entry) bool
}

// EqualityEvaluator matches entries holding a value equal to the asserted one
// after normalization, so it agrees with the equality indexes.
type EqualityEvaluator struct {
	attr  string
	value string
}

// NewEqualityEvaluator creates an evaluator for (attr=value).
func NewEqualityEvaluator(attr, value string) *EqualityEvaluator {
	return &EqualityEvaluator{
		attr:  entry.NormalizeAttributeName(attr),
		value: entry.NormalizeValue([]byte(value)),
	}
}

func (ev *EqualityEvaluator) Attribute() string {
	return ev.attr
}

// Value returns the normalized asserted value.
func (ev *EqualityEvaluator) Value() string {
	return ev.value
}

func (ev *EqualityEvaluator) Evaluate(e *entry.Entry) bool {
	if e == nil {
		return false
	}
	for _, v := range e.Get(ev.attr) {
		if entry.NormalizeValue(v) == ev.value {
			return true
		}
	}
	return false
}

// PresenceEvaluator matches entries that hold the attribute at all: (attr=*).
type PresenceEvaluator struct {
	attr string
}

// NewPresenceEvaluator creates an evaluator for (attr=*).
func NewPresenceEvaluator(attr string) *PresenceEvaluator {
	return &PresenceEvaluator{attr: entry.NormalizeAttributeName(attr)}
}

func (ev *PresenceEvaluator) Attribute() string {
	return ev.attr
}

func (ev *PresenceEvaluator) Evaluate(e *entry.Entry) bool {
	return e != nil && e.Has(ev.attr)
}

type evaluatorFilter struct {
	ev Evaluator
}

// EvaluatorFilter turns an evaluator into a filter for a filtering cursor.
func EvaluatorFilter(ev Evaluator) filtered.Filter {
	return &evaluatorFilter{ev: ev}
}

func (f *evaluatorFilter) Accept(_ filtered.SearchContext, candidate *entry.Entry) (bool, error) {
	return f.ev.Evaluate(candidate), nil
}

func (f *evaluatorFilter) String() string {
	return "evaluator(" + f.ev.Attribute() + ")"
}
