package filtered

import (
	"time"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// Cursor wraps an entry cursor and exposes only the candidates every filter
// accepts. Each candidate is cloned before filtering so filters and the
// projection step never touch the inner cursor's entries.
type Cursor struct {
	cursor.Base

	inner   cursor.Cursor[*entry.Entry]
	search  SearchContext
	filters []Filter

	prefetched *entry.Entry
}

// New creates a filtering cursor over inner. search may be nil, in which case
// abandonment is never reported and no projection is applied.
func New(inner cursor.Cursor[*entry.Entry], search SearchContext, filters []Filter, opts ...cursor.Option) *Cursor {
	return &Cursor{
		Base:    cursor.NewBase("filtered", opts...),
		inner:   inner,
		search:  search,
		filters: append([]Filter(nil), filters...),
	}
}

// AddFilter appends a filter to the chain.
func (c *Cursor) AddFilter(f Filter) error {
	if f == nil {
		return ErrNilFilter
	}
	c.filters = append(c.filters, f)
	return nil
}

// RemoveFilter removes the first occurrence of f.
func (c *Cursor) RemoveFilter(f Filter) bool {
	var removed bool
	c.filters, removed = removeFilter(c.filters, f)
	return removed
}

// Filters returns a copy of the chain.
func (c *Cursor) Filters() []Filter {
	return append([]Filter(nil), c.filters...)
}

// Before is not supported: a pivot says nothing about which candidates pass.
func (c *Cursor) Before(*entry.Entry) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, "Before")
}

// After is not supported.
func (c *Cursor) After(*entry.Entry) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, "After")
}

func (c *Cursor) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.prefetched = nil
	return c.inner.BeforeFirst()
}

func (c *Cursor) AfterLast() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.prefetched = nil
	return c.inner.AfterLast()
}

// First repositions on the first accepted entry. If the search was abandoned
// the cursor is closed and ErrAbandoned returned.
func (c *Cursor) First() (bool, error) {
	if err := c.checkAbandoned(); err != nil {
		return false, err
	}
	if err := c.BeforeFirst(); err != nil {
		return false, err
	}
	return c.Next()
}

// Last repositions on the last accepted entry, with the same abandonment check as First.
func (c *Cursor) Last() (bool, error) {
	if err := c.checkAbandoned(); err != nil {
		return false, err
	}
	if err := c.AfterLast(); err != nil {
		return false, err
	}
	return c.Previous()
}

func (c *Cursor) checkAbandoned() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.search == nil || !c.search.IsAbandoned() {
		return nil
	}

	c.Logger.Debug("search abandoned, closing cursor")
	if err := c.CloseWithCause(cursor.ErrAbandoned); err != nil {
		c.Logger.WithField("error", err).Warn("close after abandon failed")
	}
	return cursor.ErrAbandoned
}

func (c *Cursor) Next() (bool, error) {
	return c.advance(telemetry.OpTypeNext, c.inner.Next)
}

func (c *Cursor) Previous() (bool, error) {
	return c.advance(telemetry.OpTypePrevious, c.inner.Previous)
}

// advance pulls candidates with step until one is accepted or the inner
// cursor runs out.
func (c *Cursor) advance(op string, step func() (bool, error)) (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	c.prefetched = nil

	for {
		ok, err := step()
		if err != nil {
			return false, err
		}
		if !ok {
			c.Metrics.RecordStep(c.Context, c.Type, op, time.Since(start), false)
			return false, nil
		}

		candidate, err := c.inner.Get()
		if err != nil {
			return false, err
		}
		if candidate == nil {
			continue
		}

		working := candidate.Clone()
		accepted, err := c.accept(working)
		if err != nil {
			return false, err
		}
		if !accepted {
			continue
		}

		if c.search != nil {
			c.search.Project(working)
		}
		c.prefetched = working
		c.Metrics.RecordStep(c.Context, c.Type, op, time.Since(start), true)
		return true, nil
	}
}

// accept runs the chain in order, stopping at the first rejection.
func (c *Cursor) accept(candidate *entry.Entry) (bool, error) {
	var (
		accepted bool
		err      error
	)

	switch len(c.filters) {
	case 0:
		accepted = true
	case 1:
		accepted, err = c.filters[0].Accept(c.search, candidate)
	default:
		accepted = true
		for _, f := range c.filters {
			accepted, err = f.Accept(c.search, candidate)
			if err != nil || !accepted {
				break
			}
		}
	}
	if err != nil {
		return false, err
	}

	c.Metrics.RecordFiltered(c.Context, len(c.filters), accepted)
	return accepted, nil
}

func (c *Cursor) Get() (*entry.Entry, error) {
	if err := c.CheckNotClosed(); err != nil {
		return nil, err
	}
	if c.prefetched == nil {
		return nil, cursor.ErrInvalidPosition
	}
	return c.prefetched, nil
}

func (c *Cursor) Available() bool {
	return c.prefetched != nil && !c.IsClosed()
}

func (c *Cursor) Close() error {
	return c.CloseWithCause(nil)
}

// CloseWithCause closes the inner cursor with the same cause.
func (c *Cursor) CloseWithCause(cause error) error {
	if !c.MarkClosed(cause) {
		return nil
	}
	c.prefetched = nil

	var err error
	if cause != nil {
		err = c.inner.CloseWithCause(cause)
	} else {
		err = c.inner.Close()
	}

	failures := 0
	if err != nil {
		failures = 1
	}
	c.Metrics.RecordClose(c.Context, c.Type, failures)
	return err
}

var (
	_ cursor.Cursor[*entry.Entry] = (*Cursor)(nil)
	_ Manager                     = (*Cursor)(nil)
)
