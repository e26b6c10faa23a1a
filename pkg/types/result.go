// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Result is one normalized search hit. It is a closed sum type over the four
// provider shapes: ScholarResult, ArxivResult, PubmedResult, and WebResult.
// Consumers branch on the variant through MatchResult so that a new variant
// breaks every call site at compile time.
type Result interface {
	// Source returns the discriminator tag of the variant.
	Source() Source
	isResult()
}

// ScholarResult is an academic citation index hit.
type ScholarResult struct {
	Title         string   `json:"title" yaml:"title"`
	Authors       []string `json:"authors" yaml:"authors"`
	Year          int      `json:"year" yaml:"year"`
	Venue         string   `json:"venue" yaml:"venue"`
	CitationCount int      `json:"citationCount" yaml:"citation_count"`
	URL           string   `json:"url" yaml:"url"`
	Snippet       string   `json:"snippet" yaml:"snippet"`
	PDF           string   `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	RelatedURL    string   `json:"relatedUrl,omitempty" yaml:"related_url,omitempty"`
}

// ArxivResult is a preprint repository entry.
type ArxivResult struct {
	Title      string    `json:"title" yaml:"title"`
	Authors    []string  `json:"authors" yaml:"authors"`
	Abstract   string    `json:"abstract" yaml:"abstract"`
	Published  time.Time `json:"publishedDate" yaml:"published_date"`
	Updated    time.Time `json:"updatedDate" yaml:"updated_date"`
	Categories []string  `json:"categories" yaml:"categories"`
	URL        string    `json:"url" yaml:"url"`
	PDFURL     string    `json:"pdfUrl" yaml:"pdf_url"`
	ArxivID    string    `json:"arxivId" yaml:"arxiv_id"`
}

// PubmedResult is a biomedical literature record.
type PubmedResult struct {
	Title     string   `json:"title" yaml:"title"`
	Authors   []string `json:"authors" yaml:"authors"`
	Abstract  string   `json:"abstract" yaml:"abstract"`
	Journal   string   `json:"journal" yaml:"journal"`
	Published string   `json:"publishedDate" yaml:"published_date"`
	PMID      string   `json:"pmid" yaml:"pmid"`
	PMCID     string   `json:"pmcId,omitempty" yaml:"pmc_id,omitempty"`
	DOI       string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	URL       string   `json:"url" yaml:"url"`
	Keywords  []string `json:"keywords" yaml:"keywords"`
}

// WebResult is a general web search hit. Web results carry no publish date.
type WebResult struct {
	Title      string `json:"title" yaml:"title"`
	URL        string `json:"url" yaml:"url"`
	Snippet    string `json:"snippet" yaml:"snippet"`
	DisplayURL string `json:"displayUrl" yaml:"display_url"`
}

func (ScholarResult) Source() Source { return SourceScholar }
func (ArxivResult) Source() Source   { return SourceArxiv }
func (PubmedResult) Source() Source  { return SourcePubmed }
func (WebResult) Source() Source     { return SourceWeb }

func (ScholarResult) isResult() {}
func (ArxivResult) isResult()   {}
func (PubmedResult) isResult()  {}
func (WebResult) isResult()     {}

// MatchResult dispatches r to the handler for its variant.
func MatchResult[T any](
	r Result,
	scholar func(ScholarResult) T,
	arxiv func(ArxivResult) T,
	pubmed func(PubmedResult) T,
	web func(WebResult) T,
) T {
	switch v := r.(type) {
	case ScholarResult:
		return scholar(v)
	case ArxivResult:
		return arxiv(v)
	case PubmedResult:
		return pubmed(v)
	case WebResult:
		return web(v)
	default:
		// Unreachable: isResult is unexported, so no other type satisfies Result.
		panic(fmt.Sprintf("types: unhandled result variant %T", r))
	}
}

// Common holds the fields every variant shares.
type Common struct {
	Title   string
	URL     string
	Excerpt string
}

// CommonFields returns the shared title, URL, and free-text excerpt
// (abstract or snippet) of r.
func CommonFields(r Result) Common {
	return MatchResult(r,
		func(s ScholarResult) Common { return Common{s.Title, s.URL, s.Snippet} },
		func(a ArxivResult) Common { return Common{a.Title, a.URL, a.Abstract} },
		func(p PubmedResult) Common { return Common{p.Title, p.URL, p.Abstract} },
		func(w WebResult) Common { return Common{w.Title, w.URL, w.Snippet} },
	)
}

// MarshalJSON adds the "source" discriminator.
func (r ScholarResult) MarshalJSON() ([]byte, error) {
	type alias ScholarResult
	return json.Marshal(struct {
		Source Source `json:"source"`
		alias
	}{SourceScholar, alias(r)})
}

// MarshalJSON adds the "source" discriminator.
func (r ArxivResult) MarshalJSON() ([]byte, error) {
	type alias ArxivResult
	return json.Marshal(struct {
		Source Source `json:"source"`
		alias
	}{SourceArxiv, alias(r)})
}

// MarshalJSON adds the "source" discriminator.
func (r PubmedResult) MarshalJSON() ([]byte, error) {
	type alias PubmedResult
	return json.Marshal(struct {
		Source Source `json:"source"`
		alias
	}{SourcePubmed, alias(r)})
}

// MarshalJSON adds the "source" discriminator.
func (r WebResult) MarshalJSON() ([]byte, error) {
	type alias WebResult
	return json.Marshal(struct {
		Source Source `json:"source"`
		alias
	}{SourceWeb, alias(r)})
}

// UnmarshalResult decodes one JSON-encoded result using its "source" tag.
func UnmarshalResult(data []byte) (Result, error) {
	var probe struct {
		Source Source `json:"source"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding result source: %w", err)
	}

	switch probe.Source {
	case SourceScholar:
		var r ScholarResult
		err := json.Unmarshal(data, &r)
		return r, err
	case SourceArxiv:
		var r ArxivResult
		err := json.Unmarshal(data, &r)
		return r, err
	case SourcePubmed:
		var r PubmedResult
		err := json.Unmarshal(data, &r)
		return r, err
	case SourceWeb:
		var r WebResult
		err := json.Unmarshal(data, &r)
		return r, err
	default:
		return nil, fmt.Errorf("unknown result source %q", probe.Source)
	}
}

// UnmarshalResults decodes a JSON array of results.
func UnmarshalResults(data []byte) ([]Result, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	out := make([]Result, 0, len(raw))
	for i, item := range raw {
		r, err := UnmarshalResult(item)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}
