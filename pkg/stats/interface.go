package stats

// Provider defines the interface for components that provide statistics
type Provider interface {
	// GetStats returns all statistics
	GetStats() map[string]interface{}

	// GetStatsFiltered returns statistics filtered by prefix
	GetStatsFiltered(prefix string) map[string]interface{}
}

// Collector interface defines methods for collecting store statistics
type Collector interface {
	Provider

	// TrackOperation records a single operation
	TrackOperation(op OperationType)

	// TrackOperationWithLatency records an operation with its latency
	TrackOperationWithLatency(op OperationType, latencyNs uint64)

	// TrackError increments the counter for the specified error type
	TrackError(errorType string)

	// TrackRecordBytes adds the size of an encoded record to the encode or decode counter
	TrackRecordBytes(encoded bool, bytes uint64)

	// TrackEntryCount records the number of entries currently held by the store
	TrackEntryCount(n uint64)

	// TrackBloomSkip counts an equality lookup answered negatively by a bloom filter
	TrackBloomSkip()
}

// Ensure AtomicCollector implements the Collector interface
var _ Collector = (*AtomicCollector)(nil)
