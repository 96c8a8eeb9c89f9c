package cursor

import (
	"sort"
	"time"

	"github.com/KevoDB/dircore/pkg/telemetry"
)

// CompareFunc orders elements. It returns a negative number when a < b, zero
// when they are equal and a positive number when a > b.
type CompareFunc[E any] func(a, b E) int

// ListCursor walks an in-memory slice. When built with a CompareFunc over a
// slice sorted by it, Before and After position relative to a pivot.
type ListCursor[E any] struct {
	Base

	list    []E
	compare CompareFunc[E]

	// When available is false the cursor sits in the gap just before index,
	// so BeforeFirst is (0, false) and AfterLast is (len(list), false).
	index     int
	available bool
}

// NewListCursor creates a cursor over list. compare may be nil, in which case
// Before and After return ErrUnsupported.
func NewListCursor[E any](list []E, compare CompareFunc[E], opts ...Option) *ListCursor[E] {
	return &ListCursor[E]{
		Base:    NewBase("list", opts...),
		list:    list,
		compare: compare,
	}
}

// NewSingletonCursor creates a cursor over exactly one element.
func NewSingletonCursor[E any](e E, compare CompareFunc[E], opts ...Option) *ListCursor[E] {
	c := NewListCursor([]E{e}, compare, opts...)
	c.Type = "singleton"
	return c
}

// Before positions the cursor so Next returns the first element >= pivot.
func (c *ListCursor[E]) Before(pivot E) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.compare == nil {
		return Unsupported(c.Type, "Before")
	}

	c.index = sort.Search(len(c.list), func(i int) bool {
		return c.compare(c.list[i], pivot) >= 0
	})
	c.available = false
	return nil
}

// After positions the cursor so Next returns the first element > pivot.
func (c *ListCursor[E]) After(pivot E) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	if c.compare == nil {
		return Unsupported(c.Type, "After")
	}

	c.index = sort.Search(len(c.list), func(i int) bool {
		return c.compare(c.list[i], pivot) > 0
	})
	c.available = false
	return nil
}

func (c *ListCursor[E]) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.index = 0
	c.available = false
	return nil
}

func (c *ListCursor[E]) AfterLast() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.index = len(c.list)
	c.available = false
	return nil
}

func (c *ListCursor[E]) First() (bool, error) {
	if err := c.BeforeFirst(); err != nil {
		return false, err
	}
	return c.Next()
}

func (c *ListCursor[E]) Last() (bool, error) {
	if err := c.AfterLast(); err != nil {
		return false, err
	}
	return c.Previous()
}

func (c *ListCursor[E]) Next() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	if c.available {
		c.index++
	}
	if c.index >= len(c.list) {
		c.index = len(c.list)
	}
	c.available = c.index < len(c.list)
	ok := c.available
	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), ok)
	return ok, nil
}

func (c *ListCursor[E]) Previous() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}

	start := time.Now()
	c.index--
	if c.index < 0 {
		c.index = 0
		c.available = false
	} else {
		c.available = true
	}
	ok := c.available
	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypePrevious, time.Since(start), ok)
	return ok, nil
}

func (c *ListCursor[E]) Get() (E, error) {
	var zero E
	if err := c.CheckNotClosed(); err != nil {
		return zero, err
	}
	if !c.Available() {
		return zero, ErrInvalidPosition
	}
	return c.list[c.index], nil
}

func (c *ListCursor[E]) Available() bool {
	return c.available && !c.IsClosed()
}

func (c *ListCursor[E]) IsFirst() bool {
	return c.available && c.index == 0
}

func (c *ListCursor[E]) IsLast() bool {
	return c.available && c.index == len(c.list)-1
}

func (c *ListCursor[E]) IsBeforeFirst() bool {
	return !c.available && c.index == 0
}

func (c *ListCursor[E]) IsAfterLast() bool {
	return !c.available && c.index == len(c.list)
}

func (c *ListCursor[E]) Close() error {
	return c.CloseWithCause(nil)
}

func (c *ListCursor[E]) CloseWithCause(cause error) error {
	if c.MarkClosed(cause) {
		c.Metrics.RecordClose(c.Context, c.Type, 0)
	}
	return nil
}

// EmptyCursor never has an element.
type EmptyCursor[E any] struct {
	Base
}

// NewEmptyCursor creates a cursor with no elements.
func NewEmptyCursor[E any](opts ...Option) *EmptyCursor[E] {
	return &EmptyCursor[E]{Base: NewBase("empty", opts...)}
}

func (c *EmptyCursor[E]) Before(E) error     { return c.CheckNotClosed() }
func (c *EmptyCursor[E]) After(E) error      { return c.CheckNotClosed() }
func (c *EmptyCursor[E]) BeforeFirst() error { return c.CheckNotClosed() }
func (c *EmptyCursor[E]) AfterLast() error   { return c.CheckNotClosed() }

func (c *EmptyCursor[E]) First() (bool, error)    { return false, c.CheckNotClosed() }
func (c *EmptyCursor[E]) Last() (bool, error)     { return false, c.CheckNotClosed() }
func (c *EmptyCursor[E]) Next() (bool, error)     { return false, c.CheckNotClosed() }
func (c *EmptyCursor[E]) Previous() (bool, error) { return false, c.CheckNotClosed() }

func (c *EmptyCursor[E]) Get() (E, error) {
	var zero E
	if err := c.CheckNotClosed(); err != nil {
		return zero, err
	}
	return zero, ErrInvalidPosition
}

func (c *EmptyCursor[E]) Available() bool { return false }

func (c *EmptyCursor[E]) Close() error { return c.CloseWithCause(nil) }

func (c *EmptyCursor[E]) CloseWithCause(cause error) error {
	c.MarkClosed(cause)
	return nil
}

var (
	_ Cursor[int] = (*ListCursor[int])(nil)
	_ Positional  = (*ListCursor[int])(nil)
	_ Cursor[int] = (*EmptyCursor[int])(nil)
)
