package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func expectDelta(t *testing.T, c prometheus.Collector, before, delta float64) {
	t.Helper()
	if got := testutil.ToFloat64(c); got != before+delta {
		t.Errorf("counter = %v, want %v", got, before+delta)
	}
}

func TestRecordChunks(t *testing.T) {
	before := testutil.ToFloat64(chunksCreated.WithLabelValues("structural"))
	beforeOverlap := testutil.ToFloat64(overlapChunks)

	RecordChunks("structural", 5, 2)

	expectDelta(t, chunksCreated.WithLabelValues("structural"), before, 5)
	expectDelta(t, overlapChunks, beforeOverlap, 2)
}

func TestRecordValidationAndFragments(t *testing.T) {
	errBefore := testutil.ToFloat64(validationIssues.WithLabelValues("error"))
	rejBefore := testutil.ToFloat64(fragmentsRejected)

	RecordValidation(1, 3)
	RecordFragments(10, 2)

	expectDelta(t, validationIssues.WithLabelValues("error"), errBefore, 1)
	expectDelta(t, fragmentsRejected, rejBefore, 2)
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(embeddingCache.WithLabelValues("hit"))
	RecordCacheHit()
	RecordCacheMiss()
	expectDelta(t, embeddingCache.WithLabelValues("hit"), hits, 1)
}
