package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receipt_engine"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	renderDuration *prom.HistogramVec
	renders        *prom.CounterVec
	truncated      prom.Counter
	receiptBytes   prom.Histogram
	backendErrors  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the receipt metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent laying out and encoding a receipt",
			Buckets:   prom.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"format"}),
		renders: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Receipt renders by output format and result",
		}, []string{"format", "result"}),
		truncated: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "truncated_layouts_total",
			Help:      "Receipts whose content did not fit on the page",
		}),
		receiptBytes: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_bytes",
			Help:      "Size of rendered PDF receipts",
			Buckets:   prom.ExponentialBuckets(1024, 2, 8),
		}),
		backendErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Failed hotel backend requests by resource",
		}, []string{"resource"}),
	}
	reg.MustRegister(pr.renderDuration, pr.renders, pr.truncated, pr.receiptBytes, pr.backendErrors)
	return pr
}

func (p *PrometheusRecorder) ObserveRenderDuration(format string, d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRender(format string, result ResultLabel) {
	if p == nil || p.renders == nil {
		return
	}
	p.renders.WithLabelValues(format, string(result)).Inc()
}

func (p *PrometheusRecorder) IncTruncated() {
	if p == nil || p.truncated == nil {
		return
	}
	p.truncated.Inc()
}

func (p *PrometheusRecorder) ObserveReceiptBytes(n int) {
	if p == nil || p.receiptBytes == nil {
		return
	}
	p.receiptBytes.Observe(float64(n))
}

func (p *PrometheusRecorder) IncBackendError(resource string) {
	if p == nil || p.backendErrors == nil {
		return
	}
	p.backendErrors.WithLabelValues(resource).Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
