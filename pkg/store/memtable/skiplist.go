// Package memtable provides an ordered in-memory multimap backed by a skip
// list, and a bidirectional cursor over it.
package memtable

import (
	"bytes"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

const (
	// MaxHeight is the maximum height of the skip list
	MaxHeight = 12

	// BranchingFactor determines the probability of increasing the height
	BranchingFactor = 4
)

// pair is one key/value association. The list is ordered by key, then value,
// and holds each pair at most once.
type pair struct {
	key   []byte
	value []byte
}

func (p *pair) size() int {
	return len(p.key) + len(p.value)
}

func (p *pair) compare(key, value []byte) int {
	if c := bytes.Compare(p.key, key); c != 0 {
		return c
	}
	return bytes.Compare(p.value, value)
}

// node represents a node in the skip list
type node struct {
	pair   *pair
	height int32
	next   [MaxHeight]unsafe.Pointer
}

func newNode(p *pair, height int) *node {
	return &node{
		pair:   p,
		height: int32(height),
	}
}

func (n *node) getNext(level int) *node {
	return (*node)(atomic.LoadPointer(&n.next[level]))
}

func (n *node) setNext(level int, next *node) {
	atomic.StorePointer(&n.next[level], unsafe.Pointer(next))
}

// SkipList is an ordered multimap of byte keys to byte values.
//
// Readers may run concurrently with each other and with a single writer.
// Insert and Delete must be serialized by the caller.
type SkipList struct {
	head      *node
	maxHeight int32
	rnd       *rand.Rand
	rndMtx    sync.Mutex
	size      int64
	count     int64
}

// NewSkipList creates a new skip list
func NewSkipList() *SkipList {
	return &SkipList{
		head:      newNode(nil, MaxHeight),
		maxHeight: 1,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *SkipList) randomHeight() int {
	s.rndMtx.Lock()
	defer s.rndMtx.Unlock()

	height := 1
	for height < MaxHeight && s.rnd.Intn(BranchingFactor) == 0 {
		height++
	}
	return height
}

func (s *SkipList) getCurrentHeight() int {
	return int(atomic.LoadInt32(&s.maxHeight))
}

// findPrev fills prev with the last node before (key, value) at every level
// and returns the first node at or after it on level 0.
func (s *SkipList) findPrev(key, value []byte, prev *[MaxHeight]*node) *node {
	current := s.head
	for level := s.getCurrentHeight() - 1; level >= 0; level-- {
		for next := current.getNext(level); next != nil; next = current.getNext(level) {
			if next.pair.compare(key, value) >= 0 {
				break
			}
			current = next
		}
		if prev != nil {
			prev[level] = current
		}
	}
	return current.getNext(0)
}

// Insert adds the pair. It returns false if the pair was already present.
func (s *SkipList) Insert(key, value []byte) bool {
	var prev [MaxHeight]*node
	currHeight := s.getCurrentHeight()

	if found := s.findPrev(key, value, &prev); found != nil && found.pair.compare(key, value) == 0 {
		return false
	}

	height := s.randomHeight()
	if height > currHeight {
		for level := currHeight; level < height; level++ {
			prev[level] = s.head
		}
		atomic.StoreInt32(&s.maxHeight, int32(height))
	}

	p := &pair{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	}
	n := newNode(p, height)
	for level := 0; level < height; level++ {
		n.setNext(level, prev[level].getNext(level))
		prev[level].setNext(level, n)
	}

	atomic.AddInt64(&s.size, int64(p.size()))
	atomic.AddInt64(&s.count, 1)
	return true
}

// Delete removes the pair. It returns false if the pair was not present.
// A removed node keeps its forward links so iterators standing on it can move on.
func (s *SkipList) Delete(key, value []byte) bool {
	var prev [MaxHeight]*node

	target := s.findPrev(key, value, &prev)
	if target == nil || target.pair.compare(key, value) != 0 {
		return false
	}

	for level := int(target.height) - 1; level >= 0; level-- {
		if prev[level].getNext(level) == target {
			prev[level].setNext(level, target.getNext(level))
		}
	}

	atomic.AddInt64(&s.size, -int64(target.pair.size()))
	atomic.AddInt64(&s.count, -1)
	return true
}

// Contains reports whether the pair is present.
func (s *SkipList) Contains(key, value []byte) bool {
	n := s.findPrev(key, value, nil)
	return n != nil && n.pair.compare(key, value) == 0
}

// Get returns the smallest value stored under key.
func (s *SkipList) Get(key []byte) ([]byte, bool) {
	n := s.findPrev(key, nil, nil)
	if n == nil || !bytes.Equal(n.pair.key, key) {
		return nil, false
	}
	return n.pair.value, true
}

// Len returns the number of pairs.
func (s *SkipList) Len() int {
	return int(atomic.LoadInt64(&s.count))
}

// ApproximateSize returns the approximate size of the stored keys and values in bytes
func (s *SkipList) ApproximateSize() int64 {
	return atomic.LoadInt64(&s.size)
}

// Iterator provides sequential access to the pairs in either direction.
type Iterator struct {
	list    *SkipList
	current *node
}

// NewIterator creates a new, unpositioned Iterator
func (s *SkipList) NewIterator() *Iterator {
	return &Iterator{list: s}
}

// Valid returns true if the iterator is positioned at a pair
func (it *Iterator) Valid() bool {
	return it.current != nil && it.current != it.list.head
}

// Next advances to the next pair
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.current = it.current.getNext(0)
}

// Prev moves to the previous pair. The list is singly linked, so this
// searches for the predecessor from the head.
func (it *Iterator) Prev() {
	if !it.Valid() {
		return
	}

	current := it.list.head
	key, value := it.current.pair.key, it.current.pair.value
	for level := it.list.getCurrentHeight() - 1; level >= 0; level-- {
		for next := current.getNext(level); next != nil; next = current.getNext(level) {
			if next.pair.compare(key, value) >= 0 {
				break
			}
			current = next
		}
	}

	if current == it.list.head {
		it.current = nil
		return
	}
	it.current = current
}

// SeekToFirst positions the iterator at the first pair
func (it *Iterator) SeekToFirst() {
	it.current = it.list.head.getNext(0)
}

// SeekToLast positions the iterator at the last pair
func (it *Iterator) SeekToLast() {
	current := it.list.head
	for level := it.list.getCurrentHeight() - 1; level >= 0; level-- {
		for next := current.getNext(level); next != nil; next = current.getNext(level) {
			current = next
		}
	}

	if current == it.list.head {
		it.current = nil
		return
	}
	it.current = current
}

// Seek positions the iterator at the first pair whose key is >= key
func (it *Iterator) Seek(key []byte) {
	it.current = it.list.findPrev(key, nil, nil)
}

// SeekPair positions the iterator at the first pair >= (key, value)
func (it *Iterator) SeekPair(key, value []byte) {
	it.current = it.list.findPrev(key, value, nil)
}

// SeekAfter positions the iterator at the first pair > (key, value)
func (it *Iterator) SeekAfter(key, value []byte) {
	it.SeekPair(key, value)
	if it.Valid() && it.current.pair.compare(key, value) == 0 {
		it.Next()
	}
}

// Key returns the key of the current pair
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.current.pair.key
}

// Value returns the value of the current pair
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.current.pair.value
}
