// Package metrics records receipt rendering and backend fetch metrics.
package metrics

import "time"

// ResultLabel enumerates render outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultInvalid ResultLabel = "invalid"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for the receipt pipeline.
type Recorder interface {
	ObserveRenderDuration(format string, d time.Duration)
	IncRender(format string, result ResultLabel)
	IncTruncated()
	ObserveReceiptBytes(n int)
	IncBackendError(resource string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRenderDuration(string, time.Duration) {}
func (NoopRecorder) IncRender(string, ResultLabel)               {}
func (NoopRecorder) IncTruncated()                               {}
func (NoopRecorder) ObserveReceiptBytes(int)                     {}
func (NoopRecorder) IncBackendError(string)                      {}
