package pubmed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/helixir/citation-network-service/internal/domain"
)

// openAccessMarkers are literal substrings that mark a record as freely
// available. The bare "PMC" marker is intentionally broad.
var openAccessMarkers = []string{
	`IdType="pmc"`,
	"free-pmc",
	"PMC",
}

// IsOpenAccess reports whether a single <PubmedArticle> fragment looks
// openly accessible.
func IsOpenAccess(fragment string) bool {
	for _, marker := range openAccessMarkers {
		if strings.Contains(fragment, marker) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(fragment), "open access")
}

// SplitArticles returns the raw <PubmedArticle>...</PubmedArticle>
// fragments of an efetch payload, in document order.
func SplitArticles(raw []byte) ([]string, error) {
	fragments := []string{}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	for {
		start := decoder.InputOffset()
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return fragments, nil
		}
		if err != nil {
			return fragments, fmt.Errorf("%w: splitting efetch XML: %v", domain.ErrMalformedPayload, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "PubmedArticle" {
			continue
		}
		if err := decoder.Skip(); err != nil {
			return fragments, fmt.Errorf("%w: unterminated PubmedArticle: %v", domain.ErrMalformedPayload, err)
		}
		fragments = append(fragments, string(raw[start:decoder.InputOffset()]))
	}
}

// FilterOpenAccess keeps the open-access records of an efetch payload and
// re-wraps them in a <PubmedArticleSet> so the result parses like the
// original response.
func FilterOpenAccess(raw []byte) ([]byte, error) {
	fragments, err := SplitArticles(raw)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString("<PubmedArticleSet>")
	for _, fragment := range fragments {
		if IsOpenAccess(fragment) {
			b.WriteString(fragment)
		}
	}
	b.WriteString("</PubmedArticleSet>")

	return b.Bytes(), nil
}
