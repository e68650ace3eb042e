package network

import (
	"context"
	"sync"

	"github.com/helixir/citation-network-service/internal/domain"
)

type linkCall struct {
	id    string
	kind  domain.LinkKind
	limit int
}

type fetchCall struct {
	ids            []string
	openAccessOnly bool
}

// fakeSource is a hand-written ArticleFetcher and LinkResolver. Behavior is
// set through the function fields; every call is recorded.
type fakeSource struct {
	fetchFn func(ids []string, openAccessOnly bool) []domain.RawArticle
	linksFn func(id string, kind domain.LinkKind, limit int) []string

	mu         sync.Mutex
	fetchCalls []fetchCall
	linkCalls  []linkCall
}

func (f *fakeSource) FetchDetails(_ context.Context, ids []string, openAccessOnly bool) []domain.RawArticle {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, fetchCall{ids: append([]string(nil), ids...), openAccessOnly: openAccessOnly})
	f.mu.Unlock()

	if f.fetchFn == nil {
		return articlesFor(ids)
	}
	return f.fetchFn(ids, openAccessOnly)
}

func (f *fakeSource) FindRelated(_ context.Context, id string, kind domain.LinkKind, limit int) []string {
	f.mu.Lock()
	f.linkCalls = append(f.linkCalls, linkCall{id: id, kind: kind, limit: limit})
	f.mu.Unlock()

	if f.linksFn == nil {
		return []string{}
	}
	ids := f.linksFn(id, kind, limit)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// linkCallsFor returns the recorded link calls made for id.
func (f *fakeSource) linkCallsFor(id string) []linkCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var calls []linkCall
	for _, c := range f.linkCalls {
		if c.id == id {
			calls = append(calls, c)
		}
	}
	return calls
}

func article(id string) domain.RawArticle {
	return domain.RawArticle{
		PMID:    id,
		Title:   "Title " + id,
		Authors: []string{"Ada Lovelace"},
		Journal: "J Test",
		Year:    2020,
	}
}

func articlesFor(ids []string) []domain.RawArticle {
	articles := make([]domain.RawArticle, 0, len(ids))
	for _, id := range ids {
		articles = append(articles, article(id))
	}
	return articles
}

// linkTable maps source id and kind to the ids ELink would return.
type linkTable map[string]map[domain.LinkKind][]string

func (t linkTable) lookup(id string, kind domain.LinkKind, _ int) []string {
	return append([]string(nil), t[id][kind]...)
}
