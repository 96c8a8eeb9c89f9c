package memstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloomFilter(t *testing.T) {
	bf := newBloomFilter(1000, 0.01)
	for i := 0; i < 1000; i++ {
		bf.add(fmt.Sprintf("user%d", i))
	}

	for i := 0; i < 1000; i++ {
		assert.True(t, bf.mayContain(fmt.Sprintf("user%d", i)), "false negative for user%d", i)
	}

	falsePositives := 0
	for i := 0; i < 10000; i++ {
		if bf.mayContain(fmt.Sprintf("absent%d", i)) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, 500, "false positive rate far above target")
}

func TestBloomFilterDefaults(t *testing.T) {
	bf := newBloomFilter(0, 0)
	assert.Equal(t, uint64(1024), bf.size)
	assert.GreaterOrEqual(t, bf.hashCount, 1)
	assert.False(t, bf.mayContain("anything"))
}
