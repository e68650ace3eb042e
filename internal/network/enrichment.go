package network

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-network-service/internal/domain"
)

// probe holds the links discovered for one enrichment candidate.
type probe struct {
	node       string
	references []string
	citers     []string
}

// enrich probes the first MaxEnrichmentNodes related nodes for references
// and citers that are already in the graph and adds the missing edges with
// the enrichment weight. It returns the number of probed nodes and the number
// of edges added. A failing probe only loses that node's edges.
func (b *Builder) enrich(ctx context.Context, g *graph, logger zerolog.Logger) (int, int, error) {
	candidates := g.relatedIDs()
	if len(candidates) > b.opts.MaxEnrichmentNodes {
		candidates = candidates[:b.opts.MaxEnrichmentNodes]
	}
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	probes := make([]probe, len(candidates))
	tasks := make([]Task, len(candidates))
	for i, node := range candidates {
		tasks[i] = func(ctx context.Context) {
			probes[i] = probe{
				node:       node,
				references: b.resolver.FindRelated(ctx, node, domain.LinkKindReferences, b.opts.MaxEnrichmentLinksPerNode),
				citers:     b.resolver.FindRelated(ctx, node, domain.LinkKindCitedBy, b.opts.MaxEnrichmentLinksPerNode),
			}
		}
	}
	if err := b.opts.Policy.Run(ctx, tasks); err != nil {
		return 0, 0, err
	}

	added := 0
	for _, p := range probes {
		for _, id := range p.references {
			if id == p.node || !g.hasNode(id) {
				continue
			}
			if g.addEdgeIfAbsent(domain.NewEdge(p.node, id, domain.RelationshipReference, domain.WeightEnrichment)) {
				added++
			}
		}
		for _, id := range p.citers {
			if id == p.node || !g.hasNode(id) {
				continue
			}
			if g.addEdgeIfAbsent(domain.NewEdge(id, p.node, domain.RelationshipCitation, domain.WeightEnrichment)) {
				added++
			}
		}
	}

	logger.Debug().
		Int("probed", len(candidates)).
		Int("edges_added", added).
		Msg("enrichment pass finished")

	return len(candidates), added, nil
}
