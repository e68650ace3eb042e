package domain

import (
	"fmt"
	"unicode/utf8"
)

// NetworkType selects which relationships are resolved for the source article.
type NetworkType string

// Network type constants.
const (
	NetworkTypeCitations  NetworkType = "citations"
	NetworkTypeReferences NetworkType = "references"
	NetworkTypeSimilar    NetworkType = "similar"
	NetworkTypeMixed      NetworkType = "mixed"
)

// IsValid checks if the network type is one of the supported values.
func (t NetworkType) IsValid() bool {
	switch t {
	case NetworkTypeCitations, NetworkTypeReferences, NetworkTypeSimilar, NetworkTypeMixed:
		return true
	}
	return false
}

// NodeType describes how a node relates to the source article.
type NodeType string

// Node type constants.
const (
	NodeTypeBase      NodeType = "base_article"
	NodeTypeCiting    NodeType = "citing_article"
	NodeTypeReference NodeType = "reference_article"
	NodeTypeSimilar   NodeType = "similar_article"
)

// Relationship is the semantic kind of an edge.
type Relationship string

// Relationship constants.
const (
	RelationshipCitation   Relationship = "citation"
	RelationshipReference  Relationship = "reference"
	RelationshipSimilarity Relationship = "similarity"
)

// keyword returns the token embedded in deterministic edge identifiers.
func (r Relationship) keyword() string {
	switch r {
	case RelationshipCitation:
		return "cites"
	case RelationshipReference:
		return "refs"
	case RelationshipSimilarity:
		return "similar"
	default:
		return string(r)
	}
}

// LinkKind is the ELink link name used to discover related PMIDs.
type LinkKind string

// Link kinds understood by the PubMed ELink endpoint.
const (
	LinkKindCitedBy    LinkKind = "pubmed_pubmed_citedin"
	LinkKindReferences LinkKind = "pubmed_pubmed_refs"
	LinkKindSimilar    LinkKind = "pubmed_pubmed"
)

// Node presentation constants.
const (
	BaseNodeSize      = 25
	RelatedNodeSize   = 15
	PlaceholderColor  = "#94a3b8"
	MaxLabelRunes     = 60
	labelEllipsis     = "..."
	articleURLPattern = "https://pubmed.ncbi.nlm.nih.gov/%s/"
)

// Edge weights. Enrichment edges are secondary evidence and carry a lower weight.
const (
	WeightPrimary    = 1.0
	WeightSimilarity = 0.8
	WeightEnrichment = 0.5
)

// NodeMetadata is the article payload attached to a node.
type NodeMetadata struct {
	RawArticle
	URL      string   `json:"url"`
	NodeType NodeType `json:"node_type"`
}

// NetworkNode is a single article in the citation network.
type NetworkNode struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Size     int          `json:"size"`
	Color    string       `json:"color"`
	Metadata NodeMetadata `json:"metadata"`
}

// NetworkEdge is a directed relationship between two nodes.
type NetworkEdge struct {
	ID           string       `json:"id"`
	From         string       `json:"from"`
	To           string       `json:"to"`
	Relationship Relationship `json:"relationship"`
	Weight       float64      `json:"weight"`
}

// NetworkMetadata summarizes a built network.
type NetworkMetadata struct {
	SourceID    string      `json:"source_id"`
	NetworkType NetworkType `json:"network_type"`
	TotalNodes  int         `json:"total_nodes"`
	TotalEdges  int         `json:"total_edges"`
}

// NetworkData is the per-request result. It is constructed, returned and discarded.
type NetworkData struct {
	Nodes    []NetworkNode   `json:"nodes"`
	Edges    []NetworkEdge   `json:"edges"`
	Metadata NetworkMetadata `json:"metadata"`
}

// NewNetworkData creates an empty network for the given source and type.
func NewNetworkData(sourceID string, networkType NetworkType) *NetworkData {
	return &NetworkData{
		Nodes: []NetworkNode{},
		Edges: []NetworkEdge{},
		Metadata: NetworkMetadata{
			SourceID:    sourceID,
			NetworkType: networkType,
		},
	}
}

// Finalize snapshots the node and edge counters from the current slices.
func (n *NetworkData) Finalize() {
	n.Metadata.TotalNodes = len(n.Nodes)
	n.Metadata.TotalEdges = len(n.Edges)
}

// CountByType returns the number of nodes with the given node type.
func (n *NetworkData) CountByType(t NodeType) int {
	count := 0
	for _, node := range n.Nodes {
		if node.Metadata.NodeType == t {
			count++
		}
	}
	return count
}

// NewNode builds a node for the article with size and URL derived from its type.
func NewNode(article RawArticle, nodeType NodeType) NetworkNode {
	size := RelatedNodeSize
	if nodeType == NodeTypeBase {
		size = BaseNodeSize
	}
	return NetworkNode{
		ID:    article.PMID,
		Label: TruncateLabel(article.Title),
		Size:  size,
		Color: PlaceholderColor,
		Metadata: NodeMetadata{
			RawArticle: article,
			URL:        ArticleURL(article.PMID),
			NodeType:   nodeType,
		},
	}
}

// NewEdge builds an edge with a deterministic identifier.
func NewEdge(from, to string, rel Relationship, weight float64) NetworkEdge {
	return NetworkEdge{
		ID:           EdgeID(from, rel, to),
		From:         from,
		To:           to,
		Relationship: rel,
		Weight:       weight,
	}
}

// EdgeID returns the identifier for an edge. Rediscovering the same
// relationship always produces the same identifier.
func EdgeID(from string, rel Relationship, to string) string {
	return fmt.Sprintf("%s-%s-%s", from, rel.keyword(), to)
}

// ArticleURL returns the public PubMed URL for a PMID.
func ArticleURL(pmid string) string {
	return fmt.Sprintf(articleURLPattern, pmid)
}

// TruncateLabel shortens a title to MaxLabelRunes characters plus an ellipsis.
func TruncateLabel(title string) string {
	if utf8.RuneCountInString(title) <= MaxLabelRunes {
		return title
	}
	runes := []rune(title)
	return string(runes[:MaxLabelRunes]) + labelEllipsis
}
