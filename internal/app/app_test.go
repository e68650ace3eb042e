package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-network-service/internal/config"
	"github.com/helixir/citation-network-service/internal/domain"
	"github.com/helixir/citation-network-service/internal/events"
)

func TestBuilderOptions(t *testing.T) {
	cfg := config.NetworkConfig{
		DefaultLimit:              12,
		MaxEnrichmentNodes:        4,
		MaxEnrichmentLinksPerNode: 20,
		EnrichmentEnabled:         true,
		Concurrency:               3,
	}

	opts := BuilderOptions(cfg, nil)

	assert.Equal(t, 12, opts.DefaultLimit)
	assert.Equal(t, 4, opts.MaxEnrichmentNodes)
	assert.Equal(t, 20, opts.MaxEnrichmentLinksPerNode)
	assert.False(t, opts.DisableEnrichment)
	assert.Equal(t, "bounded", opts.Policy.Name())

	t.Run("concurrency of one is sequential", func(t *testing.T) {
		cfg.Concurrency = 1
		assert.Equal(t, "sequential", BuilderOptions(cfg, nil).Policy.Name())
	})

	t.Run("zero enrichment nodes disables enrichment", func(t *testing.T) {
		cfg.MaxEnrichmentNodes = 0
		assert.True(t, BuilderOptions(cfg, nil).DisableEnrichment)
	})
}

func TestNewPublisher(t *testing.T) {
	t.Run("disabled returns noop", func(t *testing.T) {
		publisher, err := NewPublisher(config.KafkaConfig{Enabled: false}, nil, zerolog.Nop())
		require.NoError(t, err)
		assert.IsType(t, events.Noop{}, publisher)
	})

	t.Run("enabled without brokers fails", func(t *testing.T) {
		_, err := NewPublisher(config.KafkaConfig{Enabled: true}, nil, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("enabled with brokers returns kafka publisher", func(t *testing.T) {
		publisher, err := NewPublisher(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}}, nil, zerolog.Nop())
		require.NoError(t, err)
		defer publisher.Close()
		assert.IsType(t, &events.KafkaPublisher{}, publisher)
	})
}

func TestNewMetrics(t *testing.T) {
	assert.Nil(t, NewMetrics(config.MetricsConfig{Enabled: false}))
	assert.NotNil(t, NewMetrics(config.MetricsConfig{Enabled: true, Namespace: "test_app_metrics"}))
}

func TestNewPubMedClient(t *testing.T) {
	t.Run("zero retries means a single attempt", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewPubMedClient(config.PubMedConfig{
			BaseURL:   server.URL,
			Timeout:   5 * time.Second,
			RateLimit: 100,
			BurstSize: 10,
		}, nil, zerolog.Nop())

		_, err := client.Links(context.Background(), "1", domain.LinkKindCitedBy, 5)

		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("api key is forwarded", func(t *testing.T) {
		var apiKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey = r.URL.Query().Get("api_key")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"linksets":[]}`))
		}))
		defer server.Close()

		client := NewPubMedClient(config.PubMedConfig{
			BaseURL:   server.URL,
			APIKey:    "secret",
			RateLimit: 3,
		}, nil, zerolog.Nop())

		ids, err := client.Links(context.Background(), "1", domain.LinkKindReferences, 5)

		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Equal(t, "secret", apiKey)
	})
}
