package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_TrackOperation(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpAdd)
	collector.TrackOperation(OpAdd)
	collector.TrackOperation(OpLookup)

	stats := collector.GetStats()

	assert.Equal(t, uint64(2), stats["add_ops"])
	assert.Equal(t, uint64(1), stats["lookup_ops"])
	assert.Contains(t, stats, "last_add_time")
	assert.Contains(t, stats, "last_lookup_time")
	assert.NotContains(t, stats, "delete_ops")
}

func TestCollector_TrackOperationWithLatency(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperationWithLatency(OpScan, 100)
	collector.TrackOperationWithLatency(OpScan, 300)
	collector.TrackOperationWithLatency(OpScan, 200)

	stats := collector.GetStats()
	assert.Equal(t, uint64(3), stats["scan_ops"])

	latencyStats, ok := stats["scan_latency"].(map[string]interface{})
	require.True(t, ok, "expected scan_latency to be a map, got %T", stats["scan_latency"])

	assert.Equal(t, uint64(3), latencyStats["count"])
	assert.Equal(t, uint64(200), latencyStats["avg_ns"])
	assert.Equal(t, uint64(100), latencyStats["min_ns"])
	assert.Equal(t, uint64(300), latencyStats["max_ns"])
}

func TestCollector_StoreGauges(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackEntryCount(12)
	collector.TrackEntryCount(9)
	collector.TrackRecordBytes(true, 64)
	collector.TrackRecordBytes(true, 36)
	collector.TrackRecordBytes(false, 50)
	collector.TrackBloomSkip()
	collector.TrackBloomSkip()

	stats := collector.GetStats()
	assert.Equal(t, uint64(9), stats["entry_count"])
	assert.Equal(t, uint64(100), stats["record_bytes_encoded"])
	assert.Equal(t, uint64(50), stats["record_bytes_decoded"])
	assert.Equal(t, uint64(2), stats["bloom_skips"])
}

func TestCollector_TrackError(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackError("decode")
	collector.TrackError("decode")
	collector.TrackError("checksum")

	errorStats, ok := collector.GetStats()["errors"].(map[string]uint64)
	require.True(t, ok)
	assert.Equal(t, uint64(2), errorStats["decode"])
	assert.Equal(t, uint64(1), errorStats["checksum"])
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	collector := NewAtomicCollector()
	const numGoroutines = 10
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				if id%2 == 0 {
					collector.TrackOperationWithLatency(OpAdd, uint64(j+1))
				} else {
					collector.TrackOperation(OpDescend)
				}
				collector.TrackError("conflict")
			}
		}(i)
	}
	wg.Wait()

	stats := collector.GetStats()
	assert.Equal(t, uint64(5*opsPerGoroutine), stats["add_ops"])
	assert.Equal(t, uint64(5*opsPerGoroutine), stats["descend_ops"])
	assert.Equal(t, uint64(numGoroutines*opsPerGoroutine), stats["errors"].(map[string]uint64)["conflict"])

	latency := stats["add_latency"].(map[string]interface{})
	assert.Equal(t, uint64(1), latency["min_ns"])
	assert.Equal(t, uint64(opsPerGoroutine), latency["max_ns"])
}

func TestCollector_GetStatsFiltered(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpIndexCursor)
	collector.TrackOperation(OpDelete)

	filtered := collector.GetStatsFiltered("index_")
	assert.Contains(t, filtered, "index_cursor_ops")
	assert.NotContains(t, filtered, "delete_ops")

	all := collector.GetStatsFiltered("")
	assert.Contains(t, all, "delete_ops")
}
