package memtable

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

func TestSkipListBasicOperations(t *testing.T) {
	sl := NewSkipList()

	if !sl.Insert([]byte("key2"), []byte("b")) {
		t.Fatal("expected first insert to succeed")
	}
	sl.Insert([]byte("key1"), []byte("a"))
	sl.Insert([]byte("key3"), []byte("c"))

	if sl.Insert([]byte("key2"), []byte("b")) {
		t.Error("expected duplicate pair insert to be rejected")
	}
	if sl.Len() != 3 {
		t.Errorf("expected 3 pairs, got %d", sl.Len())
	}

	value, ok := sl.Get([]byte("key2"))
	if !ok || string(value) != "b" {
		t.Errorf("expected key2 -> b, got %q (found=%v)", value, ok)
	}
	if _, ok := sl.Get([]byte("key4")); ok {
		t.Error("expected key4 to be missing")
	}
	if !sl.Contains([]byte("key3"), []byte("c")) {
		t.Error("expected key3/c to be present")
	}
	if sl.Contains([]byte("key3"), []byte("x")) {
		t.Error("key3/x should not be present")
	}
}

func TestSkipListMultimapOrdering(t *testing.T) {
	sl := NewSkipList()

	// Insert out of order; iteration is by key then value
	sl.Insert([]byte("person"), []byte("id3"))
	sl.Insert([]byte("group"), []byte("id9"))
	sl.Insert([]byte("person"), []byte("id1"))
	sl.Insert([]byte("person"), []byte("id2"))

	value, _ := sl.Get([]byte("person"))
	if string(value) != "id1" {
		t.Errorf("expected smallest value id1, got %s", value)
	}

	var got []string
	it := sl.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		got = append(got, string(it.Key())+"="+string(it.Value()))
	}
	want := []string{"group=id9", "person=id1", "person=id2", "person=id3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSkipListDelete(t *testing.T) {
	sl := NewSkipList()
	for i := 0; i < 50; i++ {
		sl.Insert([]byte(fmt.Sprintf("k%03d", i)), []byte("v"))
	}
	size := sl.ApproximateSize()

	if !sl.Delete([]byte("k010"), []byte("v")) {
		t.Fatal("expected delete to succeed")
	}
	if sl.Delete([]byte("k010"), []byte("v")) {
		t.Error("second delete should report missing")
	}
	if sl.Contains([]byte("k010"), []byte("v")) {
		t.Error("deleted pair still present")
	}
	if sl.Len() != 49 {
		t.Errorf("expected 49 pairs, got %d", sl.Len())
	}
	if sl.ApproximateSize() >= size {
		t.Error("expected size to shrink after delete")
	}

	count := 0
	it := sl.NewIterator()
	for it.SeekToFirst(); it.Valid(); it.Next() {
		count++
	}
	if count != 49 {
		t.Errorf("expected to iterate 49 pairs, got %d", count)
	}
}

func TestIteratorBackward(t *testing.T) {
	sl := NewSkipList()
	for _, k := range []string{"a", "b", "c", "d"} {
		sl.Insert([]byte(k), nil)
	}

	var got []string
	it := sl.NewIterator()
	for it.SeekToLast(); it.Valid(); it.Prev() {
		got = append(got, string(it.Key()))
	}
	if fmt.Sprint(got) != "[d c b a]" {
		t.Errorf("unexpected backward order %v", got)
	}

	empty := NewSkipList().NewIterator()
	empty.SeekToLast()
	if empty.Valid() {
		t.Error("empty list iterator should not be valid")
	}
}

func TestIteratorSeek(t *testing.T) {
	sl := NewSkipList()
	sl.Insert([]byte("b"), []byte("1"))
	sl.Insert([]byte("b"), []byte("2"))
	sl.Insert([]byte("d"), []byte("1"))

	it := sl.NewIterator()

	it.Seek([]byte("a"))
	if !bytes.Equal(it.Key(), []byte("b")) || !bytes.Equal(it.Value(), []byte("1")) {
		t.Errorf("Seek(a) landed on %s/%s", it.Key(), it.Value())
	}

	it.SeekPair([]byte("b"), []byte("2"))
	if !bytes.Equal(it.Value(), []byte("2")) {
		t.Errorf("SeekPair(b,2) landed on %s/%s", it.Key(), it.Value())
	}

	it.SeekAfter([]byte("b"), []byte("2"))
	if !bytes.Equal(it.Key(), []byte("d")) {
		t.Errorf("SeekAfter(b,2) landed on %s", it.Key())
	}

	it.Seek([]byte("e"))
	if it.Valid() {
		t.Error("Seek past the end should be invalid")
	}
}

func TestSkipListConcurrentReaders(t *testing.T) {
	sl := NewSkipList()
	for i := 0; i < 200; i++ {
		sl.Insert([]byte(fmt.Sprintf("key%04d", i)), []byte("v"))
	}

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, ok := sl.Get([]byte(fmt.Sprintf("key%04d", i))); !ok {
					t.Errorf("reader missed key%04d", i)
					return
				}
			}
		}()
	}

	// A single writer runs alongside the readers
	for i := 200; i < 300; i++ {
		sl.Insert([]byte(fmt.Sprintf("key%04d", i)), []byte("v"))
	}
	wg.Wait()

	if sl.Len() != 300 {
		t.Errorf("expected 300 pairs, got %d", sl.Len())
	}
}
