// Package composite provides a cursor that concatenates a range of member
// cursors into one logical sequence.
package composite

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/cursor/filtered"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// Cursor walks members[start:end] in order, moving to the next member when
// the current one is exhausted. It owns every member, including those outside
// the range, and closes all of them.
type Cursor[E any] struct {
	cursor.Base

	members []cursor.Cursor[E]
	start   int
	end     int

	// index is the member currently driven: -1 when parked before start,
	// end when past the last member.
	index int
}

// New creates a composite over all members.
func New[E any](members []cursor.Cursor[E], opts ...cursor.Option) *Cursor[E] {
	c, _ := NewRange(members, 0, len(members), opts...)
	return c
}

// NewRange creates a composite over members[start:end].
func NewRange[E any](members []cursor.Cursor[E], start, end int, opts ...cursor.Option) (*Cursor[E], error) {
	if start < 0 || end > len(members) || start > end {
		return nil, fmt.Errorf("invalid member range [%d, %d) over %d cursors", start, end, len(members))
	}

	return &Cursor[E]{
		Base:    cursor.NewBase("composite", opts...),
		members: members,
		start:   start,
		end:     end,
		index:   -1,
	}, nil
}

// Before is not supported across members.
func (c *Cursor[E]) Before(E) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, "Before")
}

// After is not supported across members.
func (c *Cursor[E]) After(E) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, "After")
}

func (c *Cursor[E]) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.index = -1
	if c.start < c.end {
		return c.members[c.start].BeforeFirst()
	}
	return nil
}

func (c *Cursor[E]) AfterLast() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.index = c.end
	if c.start < c.end {
		return c.members[c.end-1].AfterLast()
	}
	return nil
}

func (c *Cursor[E]) First() (bool, error) {
	if err := c.BeforeFirst(); err != nil {
		return false, err
	}
	return c.Next()
}

func (c *Cursor[E]) Last() (bool, error) {
	if err := c.AfterLast(); err != nil {
		return false, err
	}
	return c.Previous()
}

// Next advances the current member, moving on to the following members as
// each one is exhausted.
func (c *Cursor[E]) Next() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	if c.index == -1 {
		c.index = c.start
	}

	for c.index < c.end {
		ok, err := c.members[c.index].Next()
		if err != nil {
			return false, err
		}
		if ok {
			c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), true)
			return true, nil
		}

		c.index++
		if c.index < c.end {
			if err := c.members[c.index].BeforeFirst(); err != nil {
				return false, err
			}
		}
	}

	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), false)
	return false, nil
}

// Previous mirrors Next, parking at -1 once the first member is exhausted.
func (c *Cursor[E]) Previous() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	if c.index == c.end {
		c.index = c.end - 1
	}

	for c.index >= c.start && c.index >= 0 {
		ok, err := c.members[c.index].Previous()
		if err != nil {
			return false, err
		}
		if ok {
			c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypePrevious, time.Since(start), true)
			return true, nil
		}

		c.index--
		if c.index >= c.start {
			if err := c.members[c.index].AfterLast(); err != nil {
				return false, err
			}
		}
	}

	c.index = -1
	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypePrevious, time.Since(start), false)
	return false, nil
}

func (c *Cursor[E]) current() (cursor.Cursor[E], bool) {
	if c.index < c.start || c.index >= c.end {
		return nil, false
	}
	return c.members[c.index], true
}

func (c *Cursor[E]) Get() (E, error) {
	var zero E
	if err := c.CheckNotClosed(); err != nil {
		return zero, err
	}

	member, ok := c.current()
	if !ok || !member.Available() {
		return zero, cursor.ErrInvalidPosition
	}
	return member.Get()
}

func (c *Cursor[E]) Available() bool {
	if c.IsClosed() {
		return false
	}
	member, ok := c.current()
	return ok && member.Available()
}

// IsFirst reports whether the cursor is on the first element of the first
// member. It is false when that member cannot report its own position.
func (c *Cursor[E]) IsFirst() bool {
	if c.index != c.start || !c.Available() {
		return false
	}
	p, ok := c.members[c.index].(cursor.Positional)
	return ok && p.IsFirst()
}

// IsLast reports whether the cursor is on the last element of the last
// member. It is false when that member cannot report its own position.
func (c *Cursor[E]) IsLast() bool {
	if c.index != c.end-1 || !c.Available() {
		return false
	}
	p, ok := c.members[c.index].(cursor.Positional)
	return ok && p.IsLast()
}

func (c *Cursor[E]) IsBeforeFirst() bool {
	return c.index == -1
}

func (c *Cursor[E]) IsAfterLast() bool {
	return c.index == c.end
}

// AddFilter appends f to every member. Members must all manage filters;
// otherwise nothing is changed and ErrUnsupported is returned.
func (c *Cursor[E]) AddFilter(f filtered.Filter) error {
	managers, err := c.managers("AddFilter")
	if err != nil {
		return err
	}
	for _, m := range managers {
		if err := m.AddFilter(f); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFilter removes f from every member, reporting whether any held it.
func (c *Cursor[E]) RemoveFilter(f filtered.Filter) bool {
	managers, err := c.managers("RemoveFilter")
	if err != nil {
		return false
	}
	removed := false
	for _, m := range managers {
		if m.RemoveFilter(f) {
			removed = true
		}
	}
	return removed
}

// Filters returns the chain of the first member, which matches every other
// member when filters are only changed through the composite.
func (c *Cursor[E]) Filters() []filtered.Filter {
	managers, err := c.managers("Filters")
	if err != nil || len(managers) == 0 {
		return nil
	}
	return managers[0].Filters()
}

func (c *Cursor[E]) managers(op string) ([]filtered.Manager, error) {
	managers := make([]filtered.Manager, 0, len(c.members))
	for _, member := range c.members {
		m, ok := any(member).(filtered.Manager)
		if !ok {
			return nil, cursor.Unsupported(c.Type, op)
		}
		managers = append(managers, m)
	}
	return managers, nil
}

func (c *Cursor[E]) Close() error {
	return c.CloseWithCause(nil)
}

// CloseWithCause closes every member. A member that fails to close is logged
// and the remaining members are still closed; the failure is not returned.
func (c *Cursor[E]) CloseWithCause(cause error) error {
	if !c.MarkClosed(cause) {
		return nil
	}

	var result *multierror.Error
	for i, member := range c.members {
		var err error
		if cause != nil {
			err = member.CloseWithCause(cause)
		} else {
			err = member.Close()
		}
		if err != nil {
			c.Logger.WithFields(map[string]interface{}{
				"index": i,
				"error": err,
			}).Warn("failed to close member cursor")
			result = multierror.Append(result, fmt.Errorf("member %d: %w", i, err))
		}
	}

	failures := 0
	if result != nil {
		failures = result.Len()
		c.Logger.Warn("composite closed with %d member failures: %v", failures, result.ErrorOrNil())
	}
	c.Metrics.RecordClose(c.Context, c.Type, failures)
	return nil
}

var (
	_ cursor.Cursor[int] = (*Cursor[int])(nil)
	_ cursor.Positional  = (*Cursor[int])(nil)
	_ filtered.Manager   = (*Cursor[int])(nil)
)
