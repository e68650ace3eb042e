// Package observability provides logging, metrics, and request context
// support for the citation network service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.DefaultLoggingConfig())
//	logger = observability.WithNetworkContext(logger, pmid, "mixed")
//	logger.Info().Msg("build started")
//
// # Metrics
//
//	metrics := observability.NewMetrics("citation_network")
//	metrics.RecordBuildStarted("mixed")
//
// Metrics also implements papersources.RequestObserver, so it can be passed
// directly to the PubMed client to record upstream calls.
//
// # Standard Fields
//
//   - request_id: inbound request / correlation identifier
//   - source_id: PMID the network is built around
//   - network_type: citations, references, similar or mixed
//   - component: emitting component (pubmed, network, http-server, event_publisher)
//
// All components are safe for concurrent use from multiple goroutines.
package observability
