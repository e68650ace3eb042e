package domain

import (
	"strings"
	"time"
)

// Placeholder values used when the source article cannot be resolved upstream.
const (
	PlaceholderAuthor   = "Unknown Author"
	PlaceholderJournal  = "Unknown Journal"
	PlaceholderAbstract = "Abstract not available"
)

// RawArticle is the parsed metadata of a single PubMed record.
// It is created per fetch call and never persisted.
type RawArticle struct {
	PMID          string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Journal       string   `json:"journal"`
	Year          int      `json:"year"`
	Abstract      string   `json:"abstract,omitempty"`
	CitationCount int      `json:"citation_count"`
}

// Valid reports whether the article carries the fields required for inclusion
// in a network: an identifier and a title.
func (a RawArticle) Valid() bool {
	return strings.TrimSpace(a.PMID) != "" && strings.TrimSpace(a.Title) != ""
}

// PlaceholderArticle returns the stand-in article used when the source PMID
// could not be fetched. Building a network never fails on a missing source.
func PlaceholderArticle(pmid string, now time.Time) RawArticle {
	return RawArticle{
		PMID:     pmid,
		Title:    "Article " + pmid,
		Authors:  []string{PlaceholderAuthor},
		Journal:  PlaceholderJournal,
		Year:     now.Year(),
		Abstract: PlaceholderAbstract,
	}
}
