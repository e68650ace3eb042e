// Package app wires configuration into the service components shared by the
// server and the CLI.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-network-service/internal/config"
	"github.com/helixir/citation-network-service/internal/events"
	"github.com/helixir/citation-network-service/internal/network"
	"github.com/helixir/citation-network-service/internal/observability"
	"github.com/helixir/citation-network-service/internal/papersources/pubmed"
)

// NewLogger builds the root logger from logging config.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
	})
}

// NewMetrics returns registered metrics, or nil when metrics are disabled.
func NewMetrics(cfg config.MetricsConfig) *observability.Metrics {
	if !cfg.Enabled {
		return nil
	}
	return observability.NewMetrics(cfg.Namespace)
}

// NewPubMedClient creates the E-utilities client.
func NewPubMedClient(cfg config.PubMedConfig, metrics *observability.Metrics, logger zerolog.Logger) *pubmed.Client {
	pcfg := pubmed.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Tool:       cfg.Tool,
		Email:      cfg.Email,
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	// The keyless default rate is lifted when a key is present.
	if pcfg.APIKey != "" && pcfg.RateLimit == pubmed.DefaultRateLimit {
		pcfg.RateLimit = 0
	}
	// Zero retries in config means none; the client treats zero as "default".
	if pcfg.MaxRetries == 0 {
		pcfg.MaxRetries = -1
	}
	if metrics != nil {
		pcfg.Observer = metrics
	}
	return pubmed.New(pcfg, logger)
}

// NewBuilder creates a network builder over the given PubMed client.
func NewBuilder(cfg config.NetworkConfig, client *pubmed.Client, metrics *observability.Metrics, logger zerolog.Logger) *network.Builder {
	return network.NewBuilder(client, client, BuilderOptions(cfg, metrics), logger)
}

// BuilderOptions maps network config onto builder options.
func BuilderOptions(cfg config.NetworkConfig, metrics *observability.Metrics) network.Options {
	return network.Options{
		DefaultLimit:              cfg.DefaultLimit,
		MaxEnrichmentNodes:        cfg.MaxEnrichmentNodes,
		MaxEnrichmentLinksPerNode: cfg.MaxEnrichmentLinksPerNode,
		DisableEnrichment:         cfg.EnrichmentDisabled(),
		Policy:                    network.Bounded(cfg.Concurrency),
		Metrics:                   metrics,
	}
}

// NewPublisher returns a Kafka publisher, or events.Noop when Kafka is disabled.
func NewPublisher(cfg config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.Noop{}, nil
	}
	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		BatchTimeout:   cfg.BatchTimeout,
		PublishTimeout: cfg.PublishTimeout,
	}, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return publisher, nil
}
