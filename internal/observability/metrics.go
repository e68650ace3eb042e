package observability

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the citation network service.
// Metrics are organized by subsystem: builds, enrichment, upstream sources,
// the HTTP surface and event publication. All collectors are registered via
// promauto with the default Prometheus registry.
//
// Record methods are safe to call on a nil *Metrics, so components can be
// constructed without metrics in tests and in the CLI.
type Metrics struct {
	// BuildsStarted counts network builds initiated, labeled by network type.
	BuildsStarted *prometheus.CounterVec

	// BuildsCompleted counts network builds that returned a graph, labeled by network type.
	BuildsCompleted *prometheus.CounterVec

	// BuildsFailed counts network builds that returned an error, labeled by network type.
	BuildsFailed *prometheus.CounterVec

	// BuildDuration observes end-to-end build duration in seconds, labeled by network type.
	BuildDuration *prometheus.HistogramVec

	// NodesPerBuild observes the number of nodes in each built network.
	NodesPerBuild prometheus.Histogram

	// EdgesPerBuild observes the number of edges in each built network.
	EdgesPerBuild prometheus.Histogram

	// PlaceholderSources counts builds whose source article could not be fetched.
	PlaceholderSources prometheus.Counter

	// EnrichmentProbes counts nodes probed by the cross-reference enrichment pass.
	EnrichmentProbes prometheus.Counter

	// EnrichmentEdgesAdded counts edges added by the cross-reference enrichment pass.
	EnrichmentEdgesAdded prometheus.Counter

	// SourceRequestsTotal counts upstream requests, labeled by endpoint and status class.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed upstream requests, labeled by endpoint and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes upstream request duration in seconds, labeled by endpoint.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts 429 responses from upstream, labeled by endpoint.
	SourceRateLimited *prometheus.CounterVec

	// HTTPRequestsTotal counts inbound HTTP requests, labeled by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes inbound HTTP request duration in seconds, labeled by route.
	HTTPRequestDuration *prometheus.HistogramVec

	// EventsPublished counts events written to the broker, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts events that could not be written, labeled by event type.
	EventsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Builds
		BuildsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_started_total",
			Help:      "Total number of citation network builds started",
		}, []string{"network_type"}),
		BuildsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_completed_total",
			Help:      "Total number of citation network builds completed",
		}, []string{"network_type"}),
		BuildsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_failed_total",
			Help:      "Total number of citation network builds that failed",
		}, []string{"network_type"}),
		BuildDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of citation network builds in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"network_type"}),
		NodesPerBuild: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "nodes_per_build",
			Help:      "Number of nodes per built network",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
		}),
		EdgesPerBuild: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edges_per_build",
			Help:      "Number of edges per built network",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PlaceholderSources: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_sources_total",
			Help:      "Total number of builds that used a placeholder source article",
		}),

		// Enrichment
		EnrichmentProbes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_probes_total",
			Help:      "Total number of nodes probed by the enrichment pass",
		}),
		EnrichmentEdgesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_edges_added_total",
			Help:      "Total number of edges added by the enrichment pass",
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to the bibliographic service",
		}, []string{"endpoint", "status_class"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to the bibliographic service",
		}, []string{"endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to the bibliographic service in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from the bibliographic service",
		}, []string{"endpoint"}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of inbound HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published",
		}, []string{"event_type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events that failed to publish",
		}, []string{"event_type"}),
	}
}

// RecordBuildStarted records that a network build has started.
func (m *Metrics) RecordBuildStarted(networkType string) {
	if m == nil {
		return
	}
	m.BuildsStarted.WithLabelValues(networkType).Inc()
}

// RecordBuildCompleted records a successful build and the size of its graph.
func (m *Metrics) RecordBuildCompleted(networkType string, nodes, edges int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.BuildsCompleted.WithLabelValues(networkType).Inc()
	m.BuildDuration.WithLabelValues(networkType).Observe(durationSeconds)
	m.NodesPerBuild.Observe(float64(nodes))
	m.EdgesPerBuild.Observe(float64(edges))
}

// RecordBuildFailed records a failed build.
func (m *Metrics) RecordBuildFailed(networkType string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.BuildsFailed.WithLabelValues(networkType).Inc()
	m.BuildDuration.WithLabelValues(networkType).Observe(durationSeconds)
}

// RecordPlaceholderSource records that a build substituted a placeholder source.
func (m *Metrics) RecordPlaceholderSource() {
	if m == nil {
		return
	}
	m.PlaceholderSources.Inc()
}

// RecordEnrichment records the outcome of one enrichment pass.
func (m *Metrics) RecordEnrichment(probes, edgesAdded int) {
	if m == nil {
		return
	}
	m.EnrichmentProbes.Add(float64(probes))
	m.EnrichmentEdgesAdded.Add(float64(edgesAdded))
}

// ObserveSourceRequest records one upstream call. It satisfies
// papersources.RequestObserver.
func (m *Metrics) ObserveSourceRequest(endpoint string, statusCode int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(endpoint, statusClass(statusCode)).Inc()
	m.SourceRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())

	switch {
	case err != nil:
		m.SourceRequestsFailed.WithLabelValues(endpoint, errorType(err)).Inc()
	case statusCode < 200 || statusCode >= 300:
		m.SourceRequestsFailed.WithLabelValues(endpoint, "http_"+strconv.Itoa(statusCode)).Inc()
	}
}

// ObserveSourceRateLimited records a rate-limited upstream response.
func (m *Metrics) ObserveSourceRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(endpoint).Inc()
}

// RecordHTTPRequest records an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

// RecordEventPublished records a successfully published event.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records an event that could not be published.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

func statusClass(statusCode int) string {
	if statusCode <= 0 {
		return "error"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}
