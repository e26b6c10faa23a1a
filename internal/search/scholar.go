// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// serpAPIBase is the SerpAPI search endpoint shared by the citation-index and
// web adapters. Declared as a var so tests can substitute an httptest server.
var serpAPIBase = "https://serpapi.com/search"

// yearPattern finds a plausible publication year in free text.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// now is replaced in tests that depend on the current year.
var now = time.Now

// Scholar queries Google Scholar through SerpAPI.
type Scholar struct {
	apiKey string
	http   HTTPOptions
}

// NewScholar returns a citation-index adapter. The SerpAPI key is required.
func NewScholar(apiKey string, opts HTTPOptions) (*Scholar, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &types.ConfigurationError{Variable: "SERPAPI_API_KEY", Component: "Google Scholar search"}
	}
	return &Scholar{apiKey: apiKey, http: opts}, nil
}

// Name returns the provider tag.
func (s *Scholar) Name() types.Source { return types.SourceScholar }

// Search issues one SerpAPI google_scholar query.
func (s *Scholar) Search(ctx context.Context, q ProviderQuery) ([]types.Result, error) {
	params := url.Values{}
	params.Set("engine", "google_scholar")
	params.Set("q", q.Query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(q.MaxResults))
	params.Set("start", "0")
	if !q.From.IsZero() {
		params.Set("as_ylo", strconv.Itoa(q.From.Year()))
	}
	if !q.To.IsZero() {
		params.Set("as_yhi", strconv.Itoa(q.To.Year()))
	}
	if q.SortBy == types.SortDate {
		params.Set("scisbd", "1")
	}

	body, err := s.http.get(ctx, serpAPIBase+"?"+params.Encode())
	if err != nil {
		return nil, &types.ProviderError{Source: types.SourceScholar, Message: fmt.Sprintf("Google Scholar API error: %v", err), Err: err}
	}

	var data scholarResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &types.ProviderError{Source: types.SourceScholar, Message: "parsing Google Scholar response", Err: err}
	}
	if data.Error != "" {
		return nil, &types.ProviderError{Source: types.SourceScholar, Message: "Google Scholar API error: " + data.Error}
	}

	results := make([]types.Result, 0, len(data.OrganicResults))
	for _, item := range data.OrganicResults {
		results = append(results, item.toResult())
	}
	return results, nil
}

// SerpAPI google_scholar JSON structures.
type scholarResponse struct {
	Error          string        `json:"error"`
	OrganicResults []scholarItem `json:"organic_results"`
}

type scholarItem struct {
	Title           string `json:"title"`
	Link            string `json:"link"`
	Snippet         string `json:"snippet"`
	PublicationInfo struct {
		Summary string          `json:"summary"`
		Authors json.RawMessage `json:"authors"`
	} `json:"publication_info"`
	Authors json.RawMessage `json:"authors"`
	CitedBy struct {
		Value json.RawMessage `json:"value"`
	} `json:"cited_by"`
	Resources []struct {
		Link string `json:"link"`
	} `json:"resources"`
	RelatedPagesLink string `json:"related_pages_link"`
}

func (item scholarItem) toResult() types.ScholarResult {
	r := types.ScholarResult{
		Title:         item.Title,
		URL:           item.Link,
		Snippet:       item.Snippet,
		RelatedURL:    item.RelatedPagesLink,
		CitationCount: flexibleInt(item.CitedBy.Value),
	}
	if r.Title == "" {
		r.Title = "Untitled"
	}

	authors := item.PublicationInfo.Authors
	if isEmptyJSON(authors) {
		authors = item.Authors
	}
	r.Authors = parseScholarAuthors(authors)

	yearText := item.PublicationInfo.Summary
	if yearText == "" {
		yearText = item.Snippet
	}
	r.Year = extractYear(yearText)

	r.Venue = "Unknown"
	if summary := item.PublicationInfo.Summary; summary != "" {
		if venue := strings.Split(summary, ",")[0]; venue != "" {
			r.Venue = venue
		}
	}

	if len(item.Resources) > 0 {
		r.PDF = item.Resources[0].Link
	}
	return r
}

// parseScholarAuthors accepts an array of strings or {name} objects, or a
// comma-separated string.
func parseScholarAuthors(raw json.RawMessage) []string {
	if isEmptyJSON(raw) {
		return []string{}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		authors := make([]string, 0, len(list))
		for _, elem := range list {
			var name string
			if err := json.Unmarshal(elem, &name); err == nil {
				authors = append(authors, name)
				continue
			}
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(elem, &obj); err == nil && obj.Name != "" {
				authors = append(authors, obj.Name)
			} else {
				authors = append(authors, "Unknown")
			}
		}
		return authors
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		var authors []string
		for _, a := range strings.Split(joined, ",") {
			authors = append(authors, strings.TrimSpace(a))
		}
		return authors
	}
	return []string{}
}

// extractYear returns the first 1900-2099 year in text, or the current year.
func extractYear(text string) int {
	if m := yearPattern.FindString(text); m != "" {
		if y, err := strconv.Atoi(m); err == nil {
			return y
		}
	}
	return now().Year()
}

// flexibleInt decodes a JSON number or numeric string, defaulting to 0.
func flexibleInt(raw json.RawMessage) int {
	if isEmptyJSON(raw) {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
