package biz

import "time"

// MetricsRecorder receives pipeline measurements. The concrete
// implementation lives in the metrics package; a nil recorder is
// replaced by a no-op so components never nil-check.
type MetricsRecorder interface {
	RecordQuery(tool string, err error)
	RecordCache(hit bool)
	RecordRetrieval(duration time.Duration, results int, err error)
	RecordGeneration(provider string, duration time.Duration, attempts, promptTokens, completionTokens int, fellBack bool, err error)
	RecordIngestion(documents, chunks int, err error)
}

type nopMetrics struct{}

func (nopMetrics) RecordQuery(string, error)                                          {}
func (nopMetrics) RecordCache(bool)                                                   {}
func (nopMetrics) RecordRetrieval(time.Duration, int, error)                          {}
func (nopMetrics) RecordGeneration(string, time.Duration, int, int, int, bool, error) {}
func (nopMetrics) RecordIngestion(int, int, error)                                    {}

func orNop(rec MetricsRecorder) MetricsRecorder {
	if rec == nil {
		return nopMetrics{}
	}
	return rec
}
