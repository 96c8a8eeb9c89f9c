// Package search builds the cursors a directory search runs on: equality
// matches with an index or scan path, subtree descent over the rdn index, and
// the adaptors and evaluators that let filtering cursors sit on top of them.
package search

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/KevoDB/dircore/pkg/cursor/filtered"
	"github.com/KevoDB/dircore/pkg/entry"
)

// Attribute selectors with a special meaning in a requested attribute list.
const (
	AllUserAttributes        = "*"
	AllOperationalAttributes = "+"
	NoAttributes             = "1.1"
)

var operationalAttributes = map[string]bool{
	"createtimestamp":       true,
	"modifytimestamp":       true,
	"creatorsname":          true,
	"modifiersname":         true,
	"entrydn":               true,
	"entryuuid":             true,
	"subschemasubentry":     true,
	"hassubordinates":       true,
	"numsubordinates":       true,
	"structuralobjectclass": true,
}

// IsOperationalAttribute reports whether name is maintained by the server
// rather than by clients.
func IsOperationalAttribute(name string) bool {
	return operationalAttributes[entry.NormalizeAttributeName(name)]
}

// Context is the state of one running search that cursors consult. Abandon
// may be called from another goroutine; everything else belongs to the
// goroutine driving the cursors.
type Context struct {
	ctx       context.Context
	abandoned atomic.Bool

	allUser     bool
	operational bool
	none        bool
	requested   map[string]bool
	typesOnly   bool
}

var _ filtered.SearchContext = (*Context)(nil)

// NewContext creates a search context. attributes is the requested attribute
// list; an empty list returns every user attribute. When typesOnly is set,
// accepted entries keep their attribute names but lose their values.
func NewContext(ctx context.Context, attributes []string, typesOnly bool) *Context {
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Context{
		ctx:       ctx,
		requested: make(map[string]bool),
		typesOnly: typesOnly,
	}

	if len(attributes) == 0 {
		c.allUser = true
	}
	for _, attr := range attributes {
		switch strings.TrimSpace(attr) {
		case AllUserAttributes:
			c.allUser = true
		case AllOperationalAttributes:
			c.operational = true
		case NoAttributes:
			c.none = true
		default:
			c.requested[entry.NormalizeAttributeName(attr)] = true
		}
	}

	// 1.1 only means "no attributes" when nothing else was asked for
	if c.none && (c.allUser || c.operational || len(c.requested) > 0) {
		c.none = false
	}
	return c
}

// Context returns the context.Context the search runs under.
func (c *Context) Context() context.Context {
	return c.ctx
}

// IsAbandoned reports whether the search was abandoned or its context is done.
func (c *Context) IsAbandoned() bool {
	return c.abandoned.Load() || c.ctx.Err() != nil
}

// SetAbandoned marks the search abandoned, or clears the mark.
func (c *Context) SetAbandoned(abandoned bool) {
	c.abandoned.Store(abandoned)
}

// Project trims e to the requested attributes.
func (c *Context) Project(e *entry.Entry) {
	if e == nil {
		return
	}

	for name := range e.Attributes {
		if !c.keep(name) {
			delete(e.Attributes, name)
			continue
		}
		if c.typesOnly {
			e.Attributes[name] = nil
		}
	}
}

func (c *Context) keep(name string) bool {
	if c.none {
		return false
	}
	if c.requested[name] {
		return true
	}
	if IsOperationalAttribute(name) {
		return c.operational
	}
	return c.allUser
}
