// Package config provides configuration management for the citation network service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CITENET"

// Config holds all configuration for the citation network service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// PubMed contains NCBI E-utilities client settings.
	PubMed PubMedConfig `mapstructure:"pubmed"`
	// Network contains citation network build settings.
	Network NetworkConfig `mapstructure:"network"`
	// Kafka contains settings for the network event publisher.
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	// A build can take several upstream round trips, so keep this generous.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// PubMedConfig holds NCBI E-utilities settings.
type PubMedConfig struct {
	// BaseURL is the E-utilities base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey raises the NCBI rate limit (loaded from CITENET_PUBMED_API_KEY only).
	APIKey string `mapstructure:"-"`
	// Tool identifies this service to NCBI.
	Tool string `mapstructure:"tool"`
	// Email is the contact address NCBI asks callers to supply.
	Email string `mapstructure:"email"`
	// Timeout bounds each upstream call, including retries.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the rate limiter burst.
	BurstSize int `mapstructure:"burst_size"`
	// MaxRetries is the number of retries on 429 and 5xx.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// NetworkConfig holds build settings.
type NetworkConfig struct {
	// DefaultLimit applies when a request has no limit.
	DefaultLimit int `mapstructure:"default_limit"`
	// MaxLimit is the largest limit a request may ask for.
	MaxLimit int `mapstructure:"max_limit"`
	// MaxEnrichmentNodes caps how many nodes the enrichment pass probes.
	MaxEnrichmentNodes int `mapstructure:"max_enrichment_nodes"`
	// MaxEnrichmentLinksPerNode caps links requested per probe.
	MaxEnrichmentLinksPerNode int `mapstructure:"max_enrichment_links_per_node"`
	// EnrichmentEnabled toggles the enrichment pass.
	EnrichmentEnabled bool `mapstructure:"enrichment_enabled"`
	// Concurrency is the upstream fan-out. 1 keeps builds sequential.
	Concurrency int `mapstructure:"concurrency"`
	// Dedupe is the default for the dedupe request flag.
	Dedupe bool `mapstructure:"dedupe"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Enabled controls whether network events are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic receives citation_network.built events.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/citation-network-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets come from the environment only.
	cfg.PubMed.APIKey = os.Getenv(EnvPrefix + "_PUBMED_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "citation_network")

	// PubMed defaults
	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.tool", "citation-network-service")
	v.SetDefault("pubmed.email", "")
	v.SetDefault("pubmed.timeout", "30s")
	v.SetDefault("pubmed.rate_limit", 3.0) // NCBI allows 3 req/sec without an API key
	v.SetDefault("pubmed.burst_size", 3)
	v.SetDefault("pubmed.max_retries", 3)
	v.SetDefault("pubmed.retry_delay", "1s")

	// Network defaults
	v.SetDefault("network.default_limit", 10)
	v.SetDefault("network.max_limit", 100)
	v.SetDefault("network.max_enrichment_nodes", 10)
	v.SetDefault("network.max_enrichment_links_per_node", 50)
	v.SetDefault("network.enrichment_enabled", true)
	v.SetDefault("network.concurrency", 1)
	v.SetDefault("network.dedupe", false)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.citation_network")
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.publish_timeout", "5s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Metrics.Enabled {
		if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
		}
		if c.Server.MetricsPort == c.Server.HTTPPort {
			return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.MetricsPort)
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate PubMed config
	if c.PubMed.BaseURL == "" {
		return fmt.Errorf("pubmed base_url is required")
	}
	if c.PubMed.RateLimit <= 0 {
		return fmt.Errorf("pubmed rate_limit must be positive")
	}
	if c.PubMed.MaxRetries < 0 {
		return fmt.Errorf("pubmed max_retries must not be negative")
	}

	// Validate network config
	if c.Network.DefaultLimit <= 0 {
		return fmt.Errorf("network default_limit must be positive")
	}
	if c.Network.MaxLimit < c.Network.DefaultLimit {
		return fmt.Errorf("network max_limit (%d) must be >= default_limit (%d)", c.Network.MaxLimit, c.Network.DefaultLimit)
	}
	if c.Network.MaxEnrichmentNodes < 0 {
		return fmt.Errorf("network max_enrichment_nodes must not be negative")
	}
	if c.Network.MaxEnrichmentLinksPerNode < 0 {
		return fmt.Errorf("network max_enrichment_links_per_node must not be negative")
	}
	if c.Network.Concurrency <= 0 {
		return fmt.Errorf("network concurrency must be positive")
	}

	// Validate Kafka config
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	return nil
}

// EnrichmentDisabled reports whether the enrichment pass should be skipped.
// A zero node cap disables it as well.
func (c *NetworkConfig) EnrichmentDisabled() bool {
	return !c.EnrichmentEnabled || c.MaxEnrichmentNodes == 0
}
