package network

import "github.com/helixir/citation-network-service/internal/domain"

// graph accumulates nodes and edges for a single build. It tracks node and
// edge identifiers so that presence checks are constant time.
type graph struct {
	data   *domain.NetworkData
	nodes  map[string]struct{}
	edges  map[string]struct{}
	dedupe bool
}

func newGraph(sourceID string, networkType domain.NetworkType, dedupe bool) *graph {
	return &graph{
		data:   domain.NewNetworkData(sourceID, networkType),
		nodes:  make(map[string]struct{}),
		edges:  make(map[string]struct{}),
		dedupe: dedupe,
	}
}

// addNode appends a node. In dedupe mode a node whose id is already present
// is skipped and the first-seen node type is kept.
func (g *graph) addNode(node domain.NetworkNode) bool {
	if _, ok := g.nodes[node.ID]; ok && g.dedupe {
		return false
	}
	g.nodes[node.ID] = struct{}{}
	g.data.Nodes = append(g.data.Nodes, node)
	return true
}

// addPrimaryEdge appends an edge from the primary pass. Only dedupe mode
// suppresses repeated edge ids.
func (g *graph) addPrimaryEdge(edge domain.NetworkEdge) bool {
	if g.dedupe {
		return g.addEdgeIfAbsent(edge)
	}
	g.edges[edge.ID] = struct{}{}
	g.data.Edges = append(g.data.Edges, edge)
	return true
}

// addEdgeIfAbsent appends an edge unless one with the same id exists.
func (g *graph) addEdgeIfAbsent(edge domain.NetworkEdge) bool {
	if _, ok := g.edges[edge.ID]; ok {
		return false
	}
	g.edges[edge.ID] = struct{}{}
	g.data.Edges = append(g.data.Edges, edge)
	return true
}

func (g *graph) hasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// relatedIDs returns the ids of every non-source node in node order.
// Duplicate nodes contribute duplicate ids.
func (g *graph) relatedIDs() []string {
	ids := make([]string, 0, len(g.data.Nodes))
	for _, node := range g.data.Nodes {
		if node.Metadata.NodeType == domain.NodeTypeBase {
			continue
		}
		ids = append(ids, node.ID)
	}
	return ids
}
