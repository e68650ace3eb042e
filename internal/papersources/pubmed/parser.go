package pubmed

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/citation-network-service/internal/domain"
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// ParseArticleSet parses an efetch XML payload into articles, in document
// order. Records without a PMID or a title are dropped. A malformed
// payload yields an empty, non-nil slice together with the decode error so
// the caller can log it.
func ParseArticleSet(raw []byte, now time.Time) ([]domain.RawArticle, error) {
	articles := []domain.RawArticle{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return articles, nil
	}

	var set PubmedArticleSet
	if err := xml.Unmarshal(raw, &set); err != nil {
		return articles, fmt.Errorf("%w: efetch XML: %v", domain.ErrMalformedPayload, err)
	}

	for _, pa := range set.Articles {
		article := toRawArticle(pa, now)
		if !article.Valid() {
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

// toRawArticle converts a decoded PubmedArticle into a domain.RawArticle.
func toRawArticle(pa PubmedArticle, now time.Time) domain.RawArticle {
	citation := pa.MedlineCitation

	return domain.RawArticle{
		PMID:     strings.TrimSpace(citation.PMID.Value),
		Title:    textContent(citation.Article.ArticleTitle.Inner),
		Authors:  extractAuthors(citation.Article.AuthorList),
		Journal:  strings.TrimSpace(citation.Article.Journal.Title),
		Year:     extractYear(citation.Article.Journal.JournalIssue.PubDate, now),
		Abstract: extractAbstract(citation.Article.Abstracts),
	}
}

// extractAuthors renders authors as "ForeName LastName", or "LastName" when
// no fore name is present. Entries without a last name are omitted.
func extractAuthors(authorList *AuthorList) []string {
	authors := []string{}
	if authorList == nil {
		return authors
	}

	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}
		last := strings.TrimSpace(a.LastName)
		if last == "" {
			continue
		}
		if fore := strings.TrimSpace(a.ForeName); fore != "" {
			authors = append(authors, fore+" "+last)
			continue
		}
		authors = append(authors, last)
	}

	return authors
}

// extractYear returns the first four-digit year in PubDate/Year, then in
// PubDate/MedlineDate (e.g. "2020 Jan-Feb", "Winter 2019-2020"). It falls
// back to the current year.
func extractYear(pubDate PubDate, now time.Time) int {
	for _, candidate := range []string{pubDate.Year, pubDate.MedlineDate} {
		if match := yearPattern.FindString(candidate); match != "" {
			if year, err := strconv.Atoi(match); err == nil {
				return year
			}
		}
	}
	return now.Year()
}

// extractAbstract flattens the first Abstract block. Sections are joined by
// a single space; labeled sections are prefixed with "LABEL: ".
func extractAbstract(abstracts []Abstract) string {
	if len(abstracts) == 0 {
		return ""
	}

	parts := make([]string, 0, len(abstracts[0].AbstractTexts))
	for _, at := range abstracts[0].AbstractTexts {
		text := textContent(at.Inner)
		if text == "" {
			continue
		}
		if label := strings.TrimSpace(at.Label); label != "" {
			text = label + ": " + text
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, " ")
}

// textContent returns the character data of an XML fragment with all
// markup removed and whitespace collapsed. Entities are decoded.
func textContent(inner string) string {
	if !strings.ContainsAny(inner, "<&") {
		return collapseSpace(inner)
	}

	decoder := xml.NewDecoder(strings.NewReader(inner))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}

	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
