// Package network assembles citation networks around a single PubMed article.
//
// A build runs in two phases. The primary pass fetches the source article
// and its direct relations (citing, referenced or similar articles) and adds
// one node and one edge per related article. The enrichment pass then probes
// a bounded number of those nodes for references and citers that are
// already in the graph, adding edges but never nodes.
package network

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-network-service/internal/domain"
	"github.com/helixir/citation-network-service/internal/observability"
	"github.com/helixir/citation-network-service/internal/papersources"
)

// Defaults for Options.
const (
	DefaultLimit                     = 10
	DefaultMaxEnrichmentNodes        = 10
	DefaultMaxEnrichmentLinksPerNode = 50
)

// Options configures a Builder.
type Options struct {
	// DefaultLimit is used when a request carries no positive limit.
	DefaultLimit int

	// MaxEnrichmentNodes caps how many related nodes the enrichment pass probes.
	MaxEnrichmentNodes int

	// MaxEnrichmentLinksPerNode caps the links requested per probe and kind.
	MaxEnrichmentLinksPerNode int

	// DisableEnrichment skips the enrichment pass entirely.
	DisableEnrichment bool

	// Policy executes upstream work. Defaults to Sequential.
	Policy Policy

	// Now returns the current time; used for placeholder years.
	Now func() time.Time

	// Metrics records build metrics. Optional.
	Metrics *observability.Metrics
}

func (o *Options) applyDefaults() {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.MaxEnrichmentNodes <= 0 {
		o.MaxEnrichmentNodes = DefaultMaxEnrichmentNodes
	}
	if o.MaxEnrichmentLinksPerNode <= 0 {
		o.MaxEnrichmentLinksPerNode = DefaultMaxEnrichmentLinksPerNode
	}
	if o.Policy == nil {
		o.Policy = Sequential()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Request describes one network build.
type Request struct {
	SourceID       string
	NetworkType    domain.NetworkType
	Limit          int
	OpenAccessOnly bool

	// Dedupe suppresses repeated node ids (first-seen node type wins) and
	// repeated edge ids. By default duplicates across relation lists are kept.
	Dedupe bool
}

// KindCounts holds one count per relation kind.
type KindCounts struct {
	Citations  int `json:"citations"`
	References int `json:"references"`
	Similar    int `json:"similar"`
}

// DebugInfo explains fetch attrition: how many ids were discovered per kind
// versus how many nodes of that kind ended up in the graph.
type DebugInfo struct {
	CitingIDs    []string   `json:"citing_ids"`
	ReferenceIDs []string   `json:"reference_ids"`
	SimilarIDs   []string   `json:"similar_ids"`
	Requested    KindCounts `json:"requested"`
	Fetched      KindCounts `json:"fetched"`

	PlaceholderSource    bool   `json:"placeholder_source"`
	EnrichmentProbes     int    `json:"enrichment_probes"`
	EnrichmentEdgesAdded int    `json:"enrichment_edges_added"`
	Policy               string `json:"policy"`
}

// Result is the outcome of a build.
type Result struct {
	Network *domain.NetworkData
	Debug   DebugInfo
}

// relation is one kind of direct relationship resolved in the primary pass.
type relation struct {
	kind         domain.LinkKind
	nodeType     domain.NodeType
	relationship domain.Relationship
	weight       float64
	// inbound edges point from the related article to the source.
	inbound bool
}

var (
	citingRelation = relation{
		kind:         domain.LinkKindCitedBy,
		nodeType:     domain.NodeTypeCiting,
		relationship: domain.RelationshipCitation,
		weight:       domain.WeightPrimary,
		inbound:      true,
	}
	referenceRelation = relation{
		kind:         domain.LinkKindReferences,
		nodeType:     domain.NodeTypeReference,
		relationship: domain.RelationshipReference,
		weight:       domain.WeightPrimary,
	}
	similarRelation = relation{
		kind:         domain.LinkKindSimilar,
		nodeType:     domain.NodeTypeSimilar,
		relationship: domain.RelationshipSimilarity,
		weight:       domain.WeightSimilarity,
	}
)

// Builder builds citation networks. It holds no per-request state and is
// safe for concurrent use.
type Builder struct {
	fetcher  papersources.ArticleFetcher
	resolver papersources.LinkResolver
	opts     Options
	logger   zerolog.Logger
}

// NewBuilder creates a Builder over the given fetcher and resolver.
func NewBuilder(fetcher papersources.ArticleFetcher, resolver papersources.LinkResolver, opts Options, logger zerolog.Logger) *Builder {
	opts.applyDefaults()
	return &Builder{
		fetcher:  fetcher,
		resolver: resolver,
		opts:     opts,
		logger:   logger.With().Str("component", "network").Logger(),
	}
}

// Build assembles the network described by req. Upstream failures never fail
// a build; they only shrink the graph. Build returns an error for an invalid
// request or when ctx is done.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	req, err := b.normalize(req)
	if err != nil {
		return nil, err
	}

	networkType := string(req.NetworkType)
	logger := observability.WithNetworkContext(b.logger, req.SourceID, networkType)
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		logger = observability.WithRequestContext(logger, requestID)
	}

	start := time.Now()
	b.opts.Metrics.RecordBuildStarted(networkType)

	result, err := b.build(ctx, req, logger)
	if err != nil {
		b.opts.Metrics.RecordBuildFailed(networkType, time.Since(start).Seconds())
		logger.Warn().Err(err).Msg("network build aborted")
		return nil, err
	}

	network := result.Network
	b.opts.Metrics.RecordBuildCompleted(networkType, network.Metadata.TotalNodes, network.Metadata.TotalEdges, time.Since(start).Seconds())
	logger.Info().
		Int("nodes", network.Metadata.TotalNodes).
		Int("edges", network.Metadata.TotalEdges).
		Int("enrichment_edges", result.Debug.EnrichmentEdgesAdded).
		Dur("duration", time.Since(start)).
		Msg("network built")

	return result, nil
}

func (b *Builder) normalize(req Request) (Request, error) {
	req.SourceID = strings.TrimSpace(req.SourceID)
	if req.SourceID == "" {
		return req, domain.NewValidationError("pmid", "is required")
	}
	if req.NetworkType == "" {
		req.NetworkType = domain.NetworkTypeMixed
	}
	if !req.NetworkType.IsValid() {
		return req, domain.NewValidationError("type", "must be one of citations, references, similar, mixed")
	}
	if req.Limit <= 0 {
		req.Limit = b.opts.DefaultLimit
	}
	return req, nil
}

func (b *Builder) build(ctx context.Context, req Request, logger zerolog.Logger) (*Result, error) {
	g := newGraph(req.SourceID, req.NetworkType, req.Dedupe)
	debug := DebugInfo{
		CitingIDs:    []string{},
		ReferenceIDs: []string{},
		SimilarIDs:   []string{},
		Policy:       b.opts.Policy.Name(),
	}

	source, placeholder := b.fetchSource(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if placeholder {
		debug.PlaceholderSource = true
		b.opts.Metrics.RecordPlaceholderSource()
		logger.Info().Msg("source article not found, using placeholder")
	}
	g.addNode(domain.NewNode(source, domain.NodeTypeBase))

	relations, limits := plan(req.NetworkType, req.Limit)
	ids := make([][]string, len(relations))
	articles := make([][]domain.RawArticle, len(relations))

	tasks := make([]Task, len(relations))
	for i := range relations {
		tasks[i] = func(ctx context.Context) {
			ids[i] = b.resolver.FindRelated(ctx, req.SourceID, relations[i].kind, limits[i])
			if len(ids[i]) > 0 {
				articles[i] = b.fetcher.FetchDetails(ctx, ids[i], req.OpenAccessOnly)
			}
		}
	}
	if err := b.opts.Policy.Run(ctx, tasks); err != nil {
		return nil, err
	}

	for i, rel := range relations {
		for _, article := range articles[i] {
			g.addNode(domain.NewNode(article, rel.nodeType))
			g.addPrimaryEdge(rel.edge(req.SourceID, article.PMID))
		}
		debug.record(rel.kind, ids[i])
		logger.Debug().
			Str("link_kind", string(rel.kind)).
			Int("discovered", len(ids[i])).
			Int("fetched", len(articles[i])).
			Msg("relation resolved")
	}

	if !b.opts.DisableEnrichment {
		probes, added, err := b.enrich(ctx, g, logger)
		if err != nil {
			return nil, err
		}
		debug.EnrichmentProbes = probes
		debug.EnrichmentEdgesAdded = added
		b.opts.Metrics.RecordEnrichment(probes, added)
	}

	g.data.Finalize()
	debug.Fetched = KindCounts{
		Citations:  g.data.CountByType(domain.NodeTypeCiting),
		References: g.data.CountByType(domain.NodeTypeReference),
		Similar:    g.data.CountByType(domain.NodeTypeSimilar),
	}

	return &Result{Network: g.data, Debug: debug}, nil
}

// fetchSource returns the source article, or a placeholder when it cannot
// be fetched. The open-access filter applies to related articles only.
func (b *Builder) fetchSource(ctx context.Context, req Request) (domain.RawArticle, bool) {
	found := b.fetcher.FetchDetails(ctx, []string{req.SourceID}, false)
	for _, article := range found {
		if article.PMID == req.SourceID {
			return article, false
		}
	}
	if len(found) > 0 {
		return found[0], false
	}
	return domain.PlaceholderArticle(req.SourceID, b.opts.Now()), true
}

// plan returns the relations to resolve for a network type together with the
// discovery limit of each. Mixed networks split the limit between citations
// and references and never resolve similar articles.
func plan(networkType domain.NetworkType, limit int) ([]relation, []int) {
	switch networkType {
	case domain.NetworkTypeCitations:
		return []relation{citingRelation}, []int{limit}
	case domain.NetworkTypeReferences:
		return []relation{referenceRelation}, []int{limit}
	case domain.NetworkTypeSimilar:
		return []relation{similarRelation}, []int{limit}
	default:
		half := limit / 2
		return []relation{citingRelation, referenceRelation}, []int{half, half}
	}
}

// edge builds the primary edge between the source and a related article.
func (r relation) edge(sourceID, relatedID string) domain.NetworkEdge {
	if r.inbound {
		return domain.NewEdge(relatedID, sourceID, r.relationship, r.weight)
	}
	return domain.NewEdge(sourceID, relatedID, r.relationship, r.weight)
}

func (d *DebugInfo) record(kind domain.LinkKind, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	switch kind {
	case domain.LinkKindCitedBy:
		d.CitingIDs = ids
		d.Requested.Citations = len(ids)
	case domain.LinkKindReferences:
		d.ReferenceIDs = ids
		d.Requested.References = len(ids)
	case domain.LinkKindSimilar:
		d.SimilarIDs = ids
		d.Requested.Similar = len(ids)
	}
}
