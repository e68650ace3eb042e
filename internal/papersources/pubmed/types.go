// Package pubmed provides a client for the NCBI PubMed E-utilities API.
//
// The client fetches article metadata through efetch.fcgi (XML) and
// discovers related articles through elink.fcgi (JSON). It implements
// papersources.ArticleSource.
//
// The E-utilities API documentation is available at:
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
)

// PubmedArticleSet represents the response from the efetch.fcgi endpoint.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle represents a single article in the PubMed database.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData"`
}

// MedlineCitation contains the core bibliographic information.
type MedlineCitation struct {
	PMID    PMID    `xml:"PMID"`
	Article Article `xml:"Article"`
}

// PMID represents the PubMed identifier with optional version.
type PMID struct {
	Version int    `xml:"Version,attr,omitempty"`
	Value   string `xml:",chardata"`
}

// Article contains the article metadata. Title and abstract sections keep
// their inner markup so that inline formatting can be flattened to text.
type Article struct {
	Journal      Journal     `xml:"Journal"`
	ArticleTitle MarkupText  `xml:"ArticleTitle"`
	Abstracts    []Abstract  `xml:"Abstract"`
	AuthorList   *AuthorList `xml:"AuthorList,omitempty"`
}

// MarkupText is an element whose content may contain inline tags such as
// <i>, <sup> or <b>.
type MarkupText struct {
	Inner string `xml:",innerxml"`
}

// Journal contains journal information.
type Journal struct {
	JournalIssue    JournalIssue `xml:"JournalIssue"`
	Title           string       `xml:"Title,omitempty"`
	ISOAbbreviation string       `xml:"ISOAbbreviation,omitempty"`
}

// JournalIssue contains the publication date.
type JournalIssue struct {
	PubDate PubDate `xml:"PubDate"`
}

// PubDate represents the publication date which may have various formats.
type PubDate struct {
	Year        string `xml:"Year,omitempty"`
	Month       string `xml:"Month,omitempty"`
	MedlineDate string `xml:"MedlineDate,omitempty"`
}

// Abstract contains the article abstract, which may have multiple sections.
type Abstract struct {
	AbstractTexts []AbstractText `xml:"AbstractText"`
}

// AbstractText represents a section of the abstract.
// Structured abstracts have labeled sections (BACKGROUND, METHODS, ...).
type AbstractText struct {
	Label string `xml:"Label,attr,omitempty"`
	Inner string `xml:",innerxml"`
}

// AuthorList contains the list of authors.
type AuthorList struct {
	Authors []Author `xml:"Author"`
}

// Author represents a single author.
type Author struct {
	ValidYN        string `xml:"ValidYN,attr,omitempty"`
	LastName       string `xml:"LastName,omitempty"`
	ForeName       string `xml:"ForeName,omitempty"`
	CollectiveName string `xml:"CollectiveName,omitempty"`
}

// PubmedData contains additional PubMed-specific data.
type PubmedData struct {
	ArticleIdList ArticleIdList `xml:"ArticleIdList"`
}

// ArticleIdList contains various identifiers for the article.
type ArticleIdList struct {
	ArticleIds []ArticleId `xml:"ArticleId"`
}

// ArticleId represents an article identifier (pubmed, doi, pmc, ...).
type ArticleId struct {
	IdType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// ELinkResult represents the JSON response from the elink.fcgi endpoint.
type ELinkResult struct {
	Header   json.RawMessage `json:"header,omitempty"`
	LinkSets []LinkSet       `json:"linksets"`
	Error    string          `json:"error,omitempty"`
}

// LinkSet groups the links discovered for the requested ids.
type LinkSet struct {
	DBFrom     string      `json:"dbfrom"`
	IDs        []LinkID    `json:"ids"`
	LinkSetDBs []LinkSetDB `json:"linksetdbs"`
}

// LinkSetDB holds the links of a single link name.
type LinkSetDB struct {
	DBTo     string   `json:"dbto"`
	LinkName string   `json:"linkname"`
	Links    []LinkID `json:"links"`
}

// LinkID is a linked PMID. ELink emits plain strings, bare numbers, or
// score-bearing objects such as {"id": "123", "score": 4500}.
type LinkID string

// UnmarshalJSON accepts every shape ELink uses for a link entry.
func (l *LinkID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = LinkID(s)
		return nil
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if len(obj.ID) == 0 {
			*l = ""
			return nil
		}
		return l.UnmarshalJSON(obj.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported link entry %s: %w", string(data), err)
		}
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			*l = LinkID(strconv.FormatInt(i, 10))
			return nil
		}
		*l = LinkID(n.String())
		return nil
	}
}
