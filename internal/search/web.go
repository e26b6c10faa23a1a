// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Web queries Google web search through SerpAPI.
type Web struct {
	apiKey string
	http   HTTPOptions
}

// NewWeb returns a web search adapter. The SerpAPI key is required.
func NewWeb(apiKey string, opts HTTPOptions) (*Web, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &types.ConfigurationError{Variable: "SERPAPI_API_KEY", Component: "web search"}
	}
	return &Web{apiKey: apiKey, http: opts}, nil
}

// Name returns the provider tag.
func (w *Web) Name() types.Source { return types.SourceWeb }

// Search issues one SerpAPI google query.
func (w *Web) Search(ctx context.Context, q ProviderQuery) ([]types.Result, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", webQuery(q.Query, q.Filters.Domains))
	params.Set("api_key", w.apiKey)
	params.Set("num", strconv.Itoa(q.MaxResults))
	if tbs := dateWindowToken(q.From, q.To); tbs != "" {
		params.Set("tbs", tbs)
	}

	body, err := w.http.get(ctx, serpAPIBase+"?"+params.Encode())
	if err != nil {
		return nil, &types.ProviderError{Source: types.SourceWeb, Message: fmt.Sprintf("Web search API error: %v", err), Err: err}
	}

	var data webResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &types.ProviderError{Source: types.SourceWeb, Message: "parsing web search response", Err: err}
	}
	if data.Error != "" {
		return nil, &types.ProviderError{Source: types.SourceWeb, Message: "Web search API error: " + data.Error}
	}

	results := make([]types.Result, 0, len(data.OrganicResults))
	for _, item := range data.OrganicResults {
		r := types.WebResult{
			Title:      item.Title,
			URL:        item.Link,
			Snippet:    item.Snippet,
			DisplayURL: item.DisplayedLink,
		}
		if r.Title == "" {
			r.Title = "Untitled"
		}
		if r.DisplayURL == "" {
			r.DisplayURL = item.Link
		}
		results = append(results, r)
	}
	return results, nil
}

type webResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title         string `json:"title"`
		Link          string `json:"link"`
		Snippet       string `json:"snippet"`
		DisplayedLink string `json:"displayed_link"`
	} `json:"organic_results"`
}

// webQuery restricts query to the given domains with a site: disjunction.
func webQuery(query string, domains []string) string {
	var sites []string
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			sites = append(sites, "site:"+d)
		}
	}
	if len(sites) == 0 {
		return query
	}
	return fmt.Sprintf("%s (%s)", query, strings.Join(sites, " OR "))
}

// dateWindowToken encodes a custom date range as Google's tbs value. Both
// bounds are required; a half-open window is not sent.
func dateWindowToken(from, to time.Time) string {
	if from.IsZero() || to.IsZero() {
		return ""
	}
	mdy := func(t time.Time) string {
		return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
	}
	return fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s", mdy(from), mdy(to))
}
