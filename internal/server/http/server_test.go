package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/citation-network-service/internal/domain"
	"github.com/helixir/citation-network-service/internal/events"
	"github.com/helixir/citation-network-service/internal/network"
	"github.com/helixir/citation-network-service/internal/observability"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockBuilder implements NetworkBuilder for handler tests.
type mockBuilder struct {
	mu      sync.Mutex
	buildFn func(ctx context.Context, req network.Request) (*network.Result, error)
	calls   []network.Request
}

func (m *mockBuilder) Build(ctx context.Context, req network.Request) (*network.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.buildFn != nil {
		return m.buildFn(ctx, req)
	}
	return sampleResult(req), nil
}

// mockPublisher implements events.Publisher.
type mockPublisher struct {
	mu         sync.Mutex
	publishErr error
	payloads   []events.NetworkBuiltPayload
}

func (m *mockPublisher) PublishNetworkBuilt(_ context.Context, payload events.NetworkBuiltPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return m.publishErr
}

func (m *mockPublisher) Close() error { return nil }

func sampleResult(req network.Request) *network.Result {
	data := domain.NewNetworkData(req.SourceID, req.NetworkType)
	data.Nodes = append(data.Nodes,
		domain.NewNode(domain.RawArticle{PMID: req.SourceID, Title: "Source"}, domain.NodeTypeBase),
		domain.NewNode(domain.RawArticle{PMID: "222", Title: "Citing"}, domain.NodeTypeCiting),
	)
	data.Edges = append(data.Edges, domain.NewEdge("222", req.SourceID, domain.RelationshipCitation, domain.WeightPrimary))
	data.Finalize()

	return &network.Result{
		Network: data,
		Debug: network.DebugInfo{
			CitingIDs:    []string{"222", "333"},
			ReferenceIDs: []string{},
			SimilarIDs:   []string{},
			Requested:    network.KindCounts{Citations: 2},
			Fetched:      network.KindCounts{Citations: 1},
			Policy:       "sequential",
		},
	}
}

func newTestServer(builder NetworkBuilder, publisher events.Publisher, metrics *observability.Metrics) *Server {
	return NewServer(Config{MaxLimit: 50}, builder, publisher, metrics, zerolog.Nop())
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

// ---------------------------------------------------------------------------
// Citation network endpoint
// ---------------------------------------------------------------------------

func TestGetCitationNetwork_MissingPMID(t *testing.T) {
	builder := &mockBuilder{}
	s := newTestServer(builder, nil, nil)

	for _, target := range []string{
		"/api/v1/citation-network",
		"/api/v1/citation-network?pmid=",
		"/api/v1/citation-network?pmid=%20%20&type=citations",
	} {
		rr := doGet(t, s, target)

		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.JSONEq(t, `{"error":"PMID parameter is required"}`, rr.Body.String())
	}
	assert.Empty(t, builder.calls, "no build may be attempted without a pmid")
}

func TestGetCitationNetwork_Defaults(t *testing.T) {
	builder := &mockBuilder{}
	s := newTestServer(builder, nil, nil)

	rr := doGet(t, s, "/api/v1/citation-network?pmid=12345678")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, builder.calls, 1)
	assert.Equal(t, network.Request{
		SourceID:    "12345678",
		NetworkType: domain.NetworkTypeMixed,
		Limit:       DefaultLimit,
	}, builder.calls[0])
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestGetCitationNetwork_PassesParameters(t *testing.T) {
	builder := &mockBuilder{}
	s := newTestServer(builder, nil, nil)

	rr := doGet(t, s, "/api/v1/citation-network?pmid=42&type=references&limit=7&open_access_only=true&dedupe=1")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, builder.calls, 1)
	assert.Equal(t, network.Request{
		SourceID:       "42",
		NetworkType:    domain.NetworkTypeReferences,
		Limit:          7,
		OpenAccessOnly: true,
		Dedupe:         true,
	}, builder.calls[0])
}

func TestGetCitationNetwork_ConfiguredDedupeDefault(t *testing.T) {
	builder := &mockBuilder{}
	s := NewServer(Config{Dedupe: true}, builder, nil, nil, zerolog.Nop())

	doGet(t, s, "/api/v1/citation-network?pmid=42")
	doGet(t, s, "/api/v1/citation-network?pmid=42&dedupe=false")

	require.Len(t, builder.calls, 2)
	assert.True(t, builder.calls[0].Dedupe)
	assert.False(t, builder.calls[1].Dedupe)
}

func TestGetCitationNetwork_ResponseBody(t *testing.T) {
	s := newTestServer(&mockBuilder{}, nil, nil)

	t.Run("network data without debug", func(t *testing.T) {
		rr := doGet(t, s, "/api/v1/citation-network?pmid=111&type=citations")

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.NotContains(t, body, "debug")
		assert.Len(t, body["nodes"], 2)
		assert.Len(t, body["edges"], 1)

		meta := body["metadata"].(map[string]interface{})
		assert.Equal(t, "111", meta["source_id"])
		assert.Equal(t, "citations", meta["network_type"])
		assert.Equal(t, float64(2), meta["total_nodes"])
		assert.Equal(t, float64(1), meta["total_edges"])
	})

	t.Run("debug adds attrition counters", func(t *testing.T) {
		rr := doGet(t, s, "/api/v1/citation-network?pmid=111&type=citations&debug=true")

		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		debug := body["debug"].(map[string]interface{})
		assert.Equal(t, []interface{}{"222", "333"}, debug["citing_ids"])
		assert.Equal(t, float64(2), debug["requested"].(map[string]interface{})["citations"])
		assert.Equal(t, float64(1), debug["fetched"].(map[string]interface{})["citations"])
	})
}

func TestGetCitationNetwork_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		message string
	}{
		{"unknown type", "pmid=1&type=cocitation", "type must be one of: citations, references, similar, mixed"},
		{"non-numeric pmid", "pmid=abc", "pmid must be a numeric PubMed identifier"},
		{"decimal pmid", "pmid=1.5", "pmid must be a numeric PubMed identifier"},
		{"non-integer limit", "pmid=1&limit=ten", "limit must be an integer"},
		{"zero limit", "pmid=1&limit=0", "limit must be between 1 and 50"},
		{"limit above max", "pmid=1&limit=51", "limit must be between 1 and 50"},
		{"bad debug flag", "pmid=1&debug=maybe", "debug must be a boolean"},
		{"bad open access flag", "pmid=1&open_access_only=yes", "open_access_only must be a boolean"},
		{"bad dedupe flag", "pmid=1&dedupe=2", "dedupe must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &mockBuilder{}
			s := newTestServer(builder, nil, nil)

			rr := doGet(t, s, "/api/v1/citation-network?"+tt.query)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.message, decodeBody(t, rr)["error"])
			assert.Empty(t, builder.calls)
		})
	}
}

func TestGetCitationNetwork_BuildErrors(t *testing.T) {
	t.Run("validation error is 400", func(t *testing.T) {
		builder := &mockBuilder{buildFn: func(context.Context, network.Request) (*network.Result, error) {
			return nil, domain.NewValidationError("type", "unsupported")
		}}
		s := newTestServer(builder, nil, nil)

		rr := doGet(t, s, "/api/v1/citation-network?pmid=1")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "validation error: type: unsupported", decodeBody(t, rr)["error"])
	})

	t.Run("unexpected error is 500 with details", func(t *testing.T) {
		builder := &mockBuilder{buildFn: func(context.Context, network.Request) (*network.Result, error) {
			return nil, errors.New("context deadline exceeded")
		}}
		publisher := &mockPublisher{}
		s := newTestServer(builder, publisher, nil)

		rr := doGet(t, s, "/api/v1/citation-network?pmid=1")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"Failed to build citation network","details":"context deadline exceeded"}`, rr.Body.String())
		assert.Empty(t, publisher.payloads)
	})

	t.Run("panic is recovered as JSON 500", func(t *testing.T) {
		builder := &mockBuilder{buildFn: func(context.Context, network.Request) (*network.Result, error) {
			panic("nil graph")
		}}
		s := newTestServer(builder, nil, nil)

		rr := doGet(t, s, "/api/v1/citation-network?pmid=1")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Internal server error", body["error"])
		assert.Equal(t, "nil graph", body["details"])
	})
}

func TestGetCitationNetwork_PublishesEvent(t *testing.T) {
	t.Run("successful build is published", func(t *testing.T) {
		publisher := &mockPublisher{}
		s := newTestServer(&mockBuilder{}, publisher, nil)

		rr := doGet(t, s, "/api/v1/citation-network?pmid=5&type=similar&open_access_only=true")

		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, publisher.payloads, 1)
		assert.Equal(t, events.NetworkBuiltPayload{
			SourceID:       "5",
			NetworkType:    "similar",
			TotalNodes:     2,
			TotalEdges:     1,
			OpenAccessOnly: true,
		}, publisher.payloads[0])
	})

	t.Run("publish failure does not change response", func(t *testing.T) {
		publisher := &mockPublisher{publishErr: errors.New("broker down")}
		s := newTestServer(&mockBuilder{}, publisher, nil)

		rr := doGet(t, s, "/api/v1/citation-network?pmid=5")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, publisher.payloads, 1)
	})
}

// ---------------------------------------------------------------------------
// Middleware and health
// ---------------------------------------------------------------------------

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Run("uses existing header", func(t *testing.T) {
		var captured string
		handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = observability.RequestIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "test-correlation-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, "test-correlation-123", captured)
		assert.Equal(t, "test-correlation-123", rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("generates one when absent", func(t *testing.T) {
		var captured string
		handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = observability.RequestIDFromContext(r.Context())
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("reaches the builder context", func(t *testing.T) {
		var captured string
		builder := &mockBuilder{buildFn: func(ctx context.Context, req network.Request) (*network.Result, error) {
			captured = observability.RequestIDFromContext(ctx)
			return sampleResult(req), nil
		}}
		s := newTestServer(builder, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/citation-network?pmid=1", nil)
		req.Header.Set("X-Correlation-ID", "corr-9")
		s.Handler().ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "corr-9", captured)
	})
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := observability.NewMetrics("test_httpserver_requests")
	s := newTestServer(&mockBuilder{}, nil, metrics)

	doGet(t, s, "/api/v1/citation-network?pmid=1")
	doGet(t, s, "/api/v1/citation-network")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/citation-network", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/citation-network", "400")))
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(&mockBuilder{}, nil, nil)

	rr := doGet(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = doGet(t, s, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rr.Body.String())

	require.NoError(t, s.Shutdown(context.Background()))

	rr = doGet(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"not_ready"}`, rr.Body.String())
}
