package search

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/store"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

type rdnCursor = cursor.Cursor[store.IndexEntry[store.ParentIDAndRdn]]

// frame is one level of the walk: a cursor over the rdn index and the parent
// whose children it is reading.
type frame struct {
	cur      rdnCursor
	parentID entry.ID
}

// DescendantCursor walks every entry below a base entry depth first. The base
// entry itself is not returned.
//
// Elements carry the id of the visited entry and, as key, the id of its
// parent, or the base id when the cursor is top level. Children of one
// parent come back in rdn index order, and an entry's own subtree is walked
// right after it.
//
// The walk is forward only and one-shot: BeforeFirst clears the current
// element but does not restart the walk.
type DescendantCursor struct {
	cursor.Base

	index    store.Index[store.ParentIDAndRdn]
	baseID   entry.ID
	topLevel bool

	current frame
	stack   []frame

	prefetched store.IndexEntry[entry.ID]
	available  bool
	done       bool
	maxDepth   int
}

// NewDescendantCursor starts a walk below baseID over the rdn index.
func NewDescendantCursor(index store.Index[store.ParentIDAndRdn], baseID entry.ID, topLevel bool, opts ...cursor.Option) (*DescendantCursor, error) {
	c := &DescendantCursor{
		Base:     cursor.NewBase("descendant", opts...),
		index:    index,
		baseID:   baseID,
		topLevel: topLevel,
	}

	cur, err := c.openChildren(baseID)
	if err != nil {
		return nil, err
	}
	c.current = frame{cur: cur, parentID: baseID}
	return c, nil
}

// openChildren returns an rdn cursor positioned ahead of parentID's first child.
func (c *DescendantCursor) openChildren(parentID entry.ID) (rdnCursor, error) {
	cur, err := c.index.ForwardCursor(
		cursor.WithLogger(c.Logger),
		cursor.WithMetrics(c.Metrics),
		cursor.WithContext(c.Context),
	)
	if err != nil {
		return nil, err
	}

	pivot := store.IndexEntry[store.ParentIDAndRdn]{Key: store.ParentPivot(parentID)}
	if err := cur.Before(pivot); err != nil {
		if cerr := cur.Close(); cerr != nil {
			c.Logger.WithField("error", cerr).Warn("closing rdn cursor after failed positioning")
		}
		return nil, err
	}
	return cur, nil
}

// BaseID returns the id of the entry the walk started below.
func (c *DescendantCursor) BaseID() entry.ID {
	return c.baseID
}

// MaxDepth returns the deepest stack the walk has reached so far.
func (c *DescendantCursor) MaxDepth() int {
	return c.maxDepth
}

func (c *DescendantCursor) unsupported(op string) error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	return cursor.Unsupported(c.Type, op)
}

func (c *DescendantCursor) Before(store.IndexEntry[entry.ID]) error {
	return c.unsupported("Before")
}

func (c *DescendantCursor) After(store.IndexEntry[entry.ID]) error {
	return c.unsupported("After")
}

func (c *DescendantCursor) AfterLast() error {
	return c.unsupported("AfterLast")
}

func (c *DescendantCursor) Last() (bool, error) {
	return false, c.unsupported("Last")
}

func (c *DescendantCursor) Previous() (bool, error) {
	return false, c.unsupported("Previous")
}

// BeforeFirst drops the current element. The walk itself carries on from
// where it was.
func (c *DescendantCursor) BeforeFirst() error {
	if err := c.CheckNotClosed(); err != nil {
		return err
	}
	c.clear()
	return nil
}

// First is BeforeFirst followed by Next.
func (c *DescendantCursor) First() (bool, error) {
	if err := c.BeforeFirst(); err != nil {
		return false, err
	}
	return c.Next()
}

func (c *DescendantCursor) clear() {
	c.prefetched = store.IndexEntry[entry.ID]{}
	c.available = false
}

// Next moves to the next descendant in depth-first order.
func (c *DescendantCursor) Next() (bool, error) {
	if err := c.CheckNotClosed(); err != nil {
		return false, err
	}
	start := time.Now()
	c.clear()
	if c.done {
		return false, nil
	}

	for {
		ok, err := c.current.cur.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			if !c.pop() {
				return c.finish(start)
			}
			continue
		}

		candidate, err := c.current.cur.Get()
		if err != nil {
			return false, err
		}

		// Ran past the last child of the current parent
		if candidate.Key.ParentID != c.current.parentID {
			if !c.pop() {
				return c.finish(start)
			}
			continue
		}

		key := c.current.parentID
		if c.topLevel {
			key = c.baseID
		}
		c.prefetched = store.IndexEntry[entry.ID]{Key: key, ID: candidate.ID}
		c.available = true

		if candidate.Key.NbDescendants > 0 {
			if err := c.push(candidate.ID); err != nil {
				c.clear()
				return false, err
			}
		}

		c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), true)
		return true, nil
	}
}

func (c *DescendantCursor) finish(start time.Time) (bool, error) {
	c.done = true
	c.Metrics.RecordStep(c.Context, c.Type, telemetry.OpTypeNext, time.Since(start), false)
	return false, nil
}

// push saves the current frame and makes parentID's children current.
func (c *DescendantCursor) push(parentID entry.ID) error {
	cur, err := c.openChildren(parentID)
	if err != nil {
		return err
	}

	c.stack = append(c.stack, c.current)
	c.current = frame{cur: cur, parentID: parentID}

	depth := len(c.stack)
	if depth > c.maxDepth {
		c.maxDepth = depth
	}
	c.Metrics.RecordDescent(c.Context, depth)
	return nil
}

// pop closes the exhausted current frame and resumes the one below it. It
// reports false, leaving the current frame in place, when the stack is empty.
func (c *DescendantCursor) pop() bool {
	n := len(c.stack)
	if n == 0 {
		return false
	}

	if err := c.current.cur.Close(); err != nil {
		c.Logger.WithFields(map[string]interface{}{
			"depth": n,
			"error": err,
		}).Warn("closing exhausted rdn cursor failed")
	}

	c.current = c.stack[n-1]
	c.stack[n-1] = frame{}
	c.stack = c.stack[:n-1]
	return true
}

func (c *DescendantCursor) Get() (store.IndexEntry[entry.ID], error) {
	if err := c.CheckNotClosed(); err != nil {
		return store.IndexEntry[entry.ID]{}, err
	}
	if !c.available {
		return store.IndexEntry[entry.ID]{}, cursor.ErrInvalidPosition
	}
	return c.prefetched, nil
}

func (c *DescendantCursor) Available() bool {
	return c.available && !c.IsClosed()
}

func (c *DescendantCursor) Close() error {
	return c.CloseWithCause(nil)
}

// CloseWithCause closes the current cursor and every stacked one. Individual
// failures are logged and do not stop the rest from closing.
func (c *DescendantCursor) CloseWithCause(cause error) error {
	if !c.MarkClosed(cause) {
		return nil
	}
	c.clear()

	var result *multierror.Error
	closeFrame := func(f frame, depth int) {
		if f.cur == nil {
			return
		}
		var err error
		if cause != nil {
			err = f.cur.CloseWithCause(cause)
		} else {
			err = f.cur.Close()
		}
		if err != nil {
			c.Logger.WithFields(map[string]interface{}{
				"depth": depth,
				"error": err,
			}).Warn("closing rdn cursor failed")
			result = multierror.Append(result, err)
		}
	}

	closeFrame(c.current, len(c.stack))
	for i := len(c.stack) - 1; i >= 0; i-- {
		closeFrame(c.stack[i], i)
	}
	c.current = frame{}
	c.stack = nil

	failures := 0
	if result != nil {
		failures = len(result.Errors)
		c.Logger.Warn("descendant cursor closed with %d failures: %v", failures, result)
	}
	c.Metrics.RecordClose(c.Context, c.Type, failures)
	return nil
}

var _ cursor.Cursor[store.IndexEntry[entry.ID]] = (*DescendantCursor)(nil)
