package notify

import "sync/atomic"

// Pipeline metrics
var (
	wrapsConsumed   atomic.Int64
	wrapsRejected   atomic.Int64
	matchesTotal    atomic.Int64
	unmatchedTotal  atomic.Int64
	dispatchedTotal atomic.Int64
	sinkFailures    atomic.Int64
)

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	WrapsConsumed int64
	WrapsRejected int64
	Matches       int64
	Unmatched     int64
	Dispatched    int64
	SinkFailures  int64
}

// Snapshot returns the current pipeline counters.
func Snapshot() Stats {
	return Stats{
		WrapsConsumed: wrapsConsumed.Load(),
		WrapsRejected: wrapsRejected.Load(),
		Matches:       matchesTotal.Load(),
		Unmatched:     unmatchedTotal.Load(),
		Dispatched:    dispatchedTotal.Load(),
		SinkFailures:  sinkFailures.Load(),
	}
}
