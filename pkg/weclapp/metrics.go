package weclapp

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsNamespace prefixes all collector metric names.
const DefaultMetricsNamespace = "weclapp_client"

// MetricsCollector records Prometheus metrics for API calls, labeled by
// method, endpoint and outcome.
type MetricsCollector struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsCollector creates the collector metrics and registers them with
// registerer. A nil registerer leaves them unregistered.
func NewMetricsCollector(namespace string, registerer prometheus.Registerer) (*MetricsCollector, error) {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}

	collector := &MetricsCollector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of weclapp API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed weclapp API requests by error code",
			},
			[]string{"method", "endpoint", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "weclapp API request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	if registerer != nil {
		for _, c := range []prometheus.Collector{collector.requests, collector.errors, collector.duration} {
			err := registerer.Register(c)
			if err != nil {
				return nil, err
			}
		}
	}

	return collector, nil
}

// Requests exposes the request counter.
func (m *MetricsCollector) Requests() *prometheus.CounterVec {
	return m.requests
}

// Errors exposes the error counter.
func (m *MetricsCollector) Errors() *prometheus.CounterVec {
	return m.errors
}

// Duration exposes the latency histogram.
func (m *MetricsCollector) Duration() *prometheus.HistogramVec {
	return m.duration
}

// Observe records one completed request.
func (m *MetricsCollector) Observe(req *Request, resp *Response, latency time.Duration) {
	endpoint := EndpointLabel(req.Path)
	status := "error"

	if resp.StatusCode > 0 {
		status = strconv.Itoa(resp.StatusCode)
	}

	m.requests.WithLabelValues(req.Method, endpoint, status).Inc()
	m.duration.WithLabelValues(req.Method, endpoint).Observe(latency.Seconds())

	if resp.Error != nil {
		m.errors.WithLabelValues(req.Method, endpoint, CodeOf(resp.Error).String()).Inc()
	}
}

// EndpointLabel reduces a request path to its endpoint name so entity ids do
// not explode label cardinality: "/article/id/42" becomes "article".
func EndpointLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		return trimmed[:idx]
	}

	return trimmed
}
