package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-network-service/internal/domain"
	"github.com/helixir/citation-network-service/internal/papersources"
)

const (
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests/second).
	DefaultRateLimit = 3.0

	// APIKeyRateLimit is the rate limit NCBI grants to requests carrying an API key.
	APIKeyRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the per-call timeout for efetch and elink.
	DefaultTimeout = 30 * time.Second

	// DefaultTool identifies this application to NCBI.
	DefaultTool = "citation-network-service"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"

	endpointEFetch = "efetch"
	endpointELink  = "elink"

	// maxErrorBodyLen caps how much of an error body is kept in errors.
	maxErrorBodyLen = 512
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits. Optional.
	APIKey string

	// Tool and Email identify the caller to NCBI. Email is optional.
	Tool  string
	Email string

	// Timeout is the per-call timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to
	// DefaultRateLimit, or APIKeyRateLimit when an API key is set.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// Observer receives per-request metrics. Optional.
	Observer papersources.RequestObserver
}

// applyDefaults applies default values to the config.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
		if c.APIKey != "" {
			c.RateLimit = APIKeyRateLimit
		}
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client talks to the efetch and elink endpoints.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	logger     zerolog.Logger
	now        func() time.Time
}

// Compile-time check that Client implements ArticleSource.
var _ papersources.ArticleSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	httpCfg := papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		UserAgent:  "Helixir-CitationNetwork/1.0 (mailto:support@helixir.io)",
		Observer:   cfg.Observer,
		Logger:     &logger,
	}

	return NewWithHTTPClient(cfg, papersources.NewHTTPClient(httpCfg), logger)
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "pubmed").Logger(),
		now:        time.Now,
	}
}

// Name returns the human-readable name of this source.
func (c *Client) Name() string {
	return sourceName
}

// FetchDetails resolves ids into articles and never fails: any upstream or
// decoding error is logged and yields an empty slice.
func (c *Client) FetchDetails(ctx context.Context, ids []string, openAccessOnly bool) []domain.RawArticle {
	articles, err := c.Fetch(ctx, ids, openAccessOnly)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Int("id_count", len(ids)).
			Bool("open_access_only", openAccessOnly).
			Msg("article fetch failed, continuing with no articles")
		return []domain.RawArticle{}
	}
	return articles
}

// Fetch issues a single efetch call for all ids. An empty id list returns
// an empty slice without touching the network.
func (c *Client) Fetch(ctx context.Context, ids []string, openAccessOnly bool) ([]domain.RawArticle, error) {
	if len(ids) == 0 {
		return []domain.RawArticle{}, nil
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")
	params.Set("rettype", "abstract")

	body, err := c.get(ctx, endpointEFetch, "/efetch.fcgi", params)
	if err != nil {
		return []domain.RawArticle{}, err
	}

	if openAccessOnly {
		body, err = FilterOpenAccess(body)
		if err != nil {
			return []domain.RawArticle{}, err
		}
	}

	return ParseArticleSet(body, c.now())
}

// FindRelated returns up to limit PMIDs linked to id and never fails: any
// upstream or decoding error is logged and yields an empty slice.
func (c *Client) FindRelated(ctx context.Context, id string, kind domain.LinkKind, limit int) []string {
	ids, err := c.Links(ctx, id, kind, limit)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("pmid", id).
			Str("link_kind", string(kind)).
			Msg("link discovery failed, continuing with no links")
		return []string{}
	}
	return ids
}

// Links issues a single elink call and returns the PMIDs of the linkset
// whose link name equals kind, excluding id itself, truncated to limit.
// A non-positive limit returns an empty slice without a request.
func (c *Client) Links(ctx context.Context, id string, kind domain.LinkKind, limit int) ([]string, error) {
	if limit <= 0 || strings.TrimSpace(id) == "" {
		return []string{}, nil
	}

	params := url.Values{}
	params.Set("dbfrom", "pubmed")
	params.Set("db", "pubmed")
	params.Set("id", id)
	params.Set("linkname", string(kind))
	params.Set("retmode", "json")

	body, err := c.get(ctx, endpointELink, "/elink.fcgi", params)
	if err != nil {
		return []string{}, err
	}

	var result ELinkResult
	if err := json.Unmarshal(body, &result); err != nil {
		return []string{}, fmt.Errorf("%w: elink JSON: %v", domain.ErrMalformedPayload, err)
	}
	if result.Error != "" {
		return []string{}, domain.NewExternalAPIError(sourceName, endpointELink, http.StatusOK, result.Error, nil)
	}

	return selectLinks(result, id, kind, limit), nil
}

// selectLinks picks the first linkset database named kind.
func selectLinks(result ELinkResult, id string, kind domain.LinkKind, limit int) []string {
	ids := []string{}
	for _, ls := range result.LinkSets {
		for _, db := range ls.LinkSetDBs {
			if db.LinkName != string(kind) {
				continue
			}
			for _, link := range db.Links {
				linked := strings.TrimSpace(string(link))
				if linked == "" || linked == id {
					continue
				}
				ids = append(ids, linked)
				if len(ids) == limit {
					return ids
				}
			}
			return ids
		}
	}
	return ids
}

// get issues a GET against an E-utilities endpoint and returns the body of
// a 2xx response.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.config.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	params.Set("tool", c.config.Tool)
	if c.config.Email != "" {
		params.Set("email", c.config.Email)
	}
	if c.config.APIKey != "" {
		params.Set("api_key", c.config.APIKey)
	}
	u.RawQuery = params.Encode()

	resp, err := c.httpClient.Issue(ctx, u.String(), papersources.RequestOptions{
		Timeout:  c.config.Timeout,
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}

	if !resp.OK() {
		var cause error
		if resp.StatusCode == http.StatusTooManyRequests {
			cause = domain.ErrRateLimited
		}
		return nil, domain.NewExternalAPIError(sourceName, endpoint, resp.StatusCode, truncate(string(resp.Body), maxErrorBodyLen), cause)
	}

	return resp.Body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
