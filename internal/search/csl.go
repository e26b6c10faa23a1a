package search

import (
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty"`
	PMCID          string    `yaml:"PMCID,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Number         string    `yaml:"number,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// FormatCSL writes the response's results as a CSL-YAML list to w.
func FormatCSL(resp *types.SearchResponse, w io.Writer) error {
	items := make([]CSLItem, len(resp.Results))
	for i, r := range resp.Results {
		items[i] = toCSLItem(r, i+1)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem converts a result to a CSLItem. rank numbers items that carry no
// stable identifier.
func toCSLItem(r types.Result, rank int) CSLItem {
	return types.MatchResult(r,
		func(s types.ScholarResult) CSLItem {
			item := CSLItem{
				ID:             citationKey("scholar", rank),
				Type:           "article-journal",
				Title:          s.Title,
				Author:         cslAuthors(s.Authors),
				Abstract:       s.Snippet,
				ContainerTitle: s.Venue,
				URL:            s.URL,
			}
			if s.Year > 0 {
				item.Issued = &CSLDate{DateParts: [][]int{{s.Year}}}
			}
			return item
		},
		func(a types.ArxivResult) CSLItem {
			item := CSLItem{
				ID:       "arxiv:" + a.ArxivID,
				Type:     "article",
				Title:    a.Title,
				Author:   cslAuthors(a.Authors),
				Abstract: a.Abstract,
				URL:      a.URL,
				Number:   a.ArxivID,
			}
			if !a.Published.IsZero() {
				item.Issued = &CSLDate{
					DateParts: [][]int{{a.Published.Year(), int(a.Published.Month()), a.Published.Day()}},
				}
			}
			return item
		},
		func(p types.PubmedResult) CSLItem {
			item := CSLItem{
				ID:             "pmid:" + p.PMID,
				Type:           "article-journal",
				Title:          p.Title,
				Author:         cslAuthors(p.Authors),
				Abstract:       p.Abstract,
				ContainerTitle: p.Journal,
				DOI:            p.DOI,
				PMID:           p.PMID,
				PMCID:          p.PMCID,
				URL:            p.URL,
			}
			if t, ok := parsePubmedDate(p.Published); ok {
				item.Issued = &CSLDate{DateParts: [][]int{{t.Year(), int(t.Month()), t.Day()}}}
			}
			return item
		},
		func(w types.WebResult) CSLItem {
			return CSLItem{
				ID:       citationKey("web", rank),
				Type:     "webpage",
				Title:    w.Title,
				Abstract: w.Snippet,
				URL:      w.URL,
			}
		},
	)
}

func citationKey(prefix string, rank int) string {
	return fmt.Sprintf("%s:%03d", prefix, rank)
}

func cslAuthors(names []string) []CSLName {
	var out []CSLName
	for _, n := range names {
		if name := parseAuthorName(n); name != (CSLName{}) {
			out = append(out, name)
		}
	}
	return out
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
