package memstore

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

const maxBloomHashes = 10

// bloomFilter answers "definitely absent" for equality lookups on values that
// were never indexed. Deleted values stay set, which only costs a false positive.
type bloomFilter struct {
	bits      []uint64
	size      uint64
	hashCount int
	count     int
}

func newBloomFilter(n int, fpRate float64) *bloomFilter {
	if n < 1 {
		n = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}

	m := uint64(math.Ceil(-float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2)))
	if m < 1024 {
		m = 1024
	}
	m = (m + 63) &^ 63

	k := int(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > maxBloomHashes {
		k = maxBloomHashes
	}

	return &bloomFilter{
		bits:      make([]uint64, m/64),
		size:      m,
		hashCount: k,
	}
}

// positions derives hashCount bit positions from one 64-bit hash by double hashing.
func (bf *bloomFilter) positions(key string, fn func(pos uint64) bool) {
	h := xxhash.Sum64String(key)
	h1 := h & 0xffffffff
	h2 := h >> 32
	for i := 0; i < bf.hashCount; i++ {
		if !fn((h1 + uint64(i)*h2) % bf.size) {
			return
		}
	}
}

func (bf *bloomFilter) add(key string) {
	bf.positions(key, func(pos uint64) bool {
		bf.bits[pos/64] |= 1 << (pos % 64)
		return true
	})
	bf.count++
}

func (bf *bloomFilter) mayContain(key string) bool {
	found := true
	bf.positions(key, func(pos uint64) bool {
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			found = false
		}
		return found
	})
	return found
}
