// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/time/rate"

	"github.com/pdiddy/deep-research/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "http://export.arxiv.org/api/query"

// DefaultArxivInterval is the request spacing arXiv asks API clients to keep.
const DefaultArxivInterval = 3 * time.Second

// Arxiv queries the arXiv Atom API. No credential is required.
type Arxiv struct {
	http    HTTPOptions
	limiter *rate.Limiter
}

// NewArxiv returns a preprint adapter that spaces requests by interval.
// A non-positive interval disables the limiter.
func NewArxiv(opts HTTPOptions, interval time.Duration) *Arxiv {
	a := &Arxiv{http: opts}
	if interval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return a
}

// Name returns the provider tag.
func (a *Arxiv) Name() types.Source { return types.SourceArxiv }

// Search queries the arXiv API and returns one result per feed entry.
func (a *Arxiv) Search(ctx context.Context, q ProviderQuery) ([]types.Result, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, &types.ProviderError{Source: types.SourceArxiv, Message: "waiting for rate limit", Err: err}
		}
	}

	sortBy := "relevance"
	if q.SortBy == types.SortDate {
		sortBy = "lastUpdatedDate"
	}
	params := url.Values{}
	params.Set("search_query", buildArxivQuery(q.Query, q.Filters.Category))
	params.Set("max_results", strconv.Itoa(q.MaxResults))
	params.Set("start", "0")
	params.Set("sortBy", sortBy)
	params.Set("sortOrder", "descending")

	body, err := a.http.get(ctx, arxivAPIBase+"?"+params.Encode())
	if err != nil {
		return nil, &types.ProviderError{Source: types.SourceArxiv, Message: fmt.Sprintf("arXiv API error: %v", err), Err: err}
	}

	parser := &atom.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ProviderError{Source: types.SourceArxiv, Message: "failed to parse arXiv response", Err: err}
	}

	results := make([]types.Result, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		results = append(results, arxivEntryToResult(entry))
	}
	return results, nil
}

// buildArxivQuery combines free text with an optional category filter.
func buildArxivQuery(query, category string) string {
	q := "all:" + query
	if c := strings.TrimSpace(category); c != "" {
		q += " AND cat:" + c
	}
	return q
}

func arxivEntryToResult(entry *atom.Entry) types.ArxivResult {
	id := extractArxivID(entry.ID)
	r := types.ArxivResult{
		Title:      collapseSpace(entry.Title),
		Abstract:   collapseSpace(entry.Summary),
		URL:        entry.ID,
		ArxivID:    id,
		Authors:    []string{},
		Categories: []string{},
	}
	for _, p := range entry.Authors {
		if p != nil && strings.TrimSpace(p.Name) != "" {
			r.Authors = append(r.Authors, strings.TrimSpace(p.Name))
		}
	}
	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			r.Categories = append(r.Categories, c.Term)
		}
	}
	if entry.PublishedParsed != nil {
		r.Published = entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		r.Updated = entry.UpdatedParsed.UTC()
	}

	for _, l := range entry.Links {
		if l != nil && l.Type == "application/pdf" && l.Href != "" {
			r.PDFURL = l.Href
			break
		}
	}
	if r.PDFURL == "" {
		r.PDFURL = fmt.Sprintf("http://arxiv.org/pdf/%s.pdf", id)
	}
	return r
}

// collapseSpace replaces every run of whitespace with one space and trims.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" yields "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
