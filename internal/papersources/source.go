// Package papersources provides rate-limited clients for bibliographic
// databases and the interfaces the network builder consumes.
//
// Clients in this package are soft-failing at the interface boundary:
// upstream errors are logged and surface as empty results, so a partial
// outage degrades a citation network instead of failing it.
package papersources

import (
	"context"

	"github.com/helixir/citation-network-service/internal/domain"
)

// ArticleFetcher resolves PMIDs into article metadata.
type ArticleFetcher interface {
	// FetchDetails returns the parseable articles among ids, in upstream
	// order. An empty id list returns an empty slice without any request.
	// When openAccessOnly is set, only open-access records are returned.
	FetchDetails(ctx context.Context, ids []string, openAccessOnly bool) []domain.RawArticle
}

// LinkResolver discovers PMIDs related to a single article.
type LinkResolver interface {
	// FindRelated returns at most limit PMIDs linked to id by kind,
	// never including id itself.
	FindRelated(ctx context.Context, id string, kind domain.LinkKind, limit int) []string
}

// ArticleSource is a database that can both fetch and link articles.
type ArticleSource interface {
	ArticleFetcher
	LinkResolver

	// Name returns a human-readable name used in logs and metrics.
	Name() string
}
