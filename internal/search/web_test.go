// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestNewWebRequiresKey(t *testing.T) {
	_, err := NewWeb(" ", HTTPOptions{})
	var ce *types.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if err.Error() != "SERPAPI_API_KEY environment variable is required for web search" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWebSearchRequestParams(t *testing.T) {
	ts, captured := serveSerp(t, `{"organic_results":[]}`)
	w, err := NewWeb("serp-key", HTTPOptions{Client: ts.Client()})
	if err != nil {
		t.Fatal(err)
	}

	_, err = w.Search(context.Background(), ProviderQuery{
		Query:      "mrna vaccines",
		MaxResults: 12,
		From:       time.Date(2021, 3, 9, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2022, 11, 30, 0, 0, 0, 0, time.UTC),
		Filters:    types.Filters{Domains: []string{"nih.gov", " who.int "}},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := captured.URL.Query()
	if got := q.Get("engine"); got != "google" {
		t.Errorf("engine = %q, want google", got)
	}
	if got := q.Get("q"); got != "mrna vaccines (site:nih.gov OR site:who.int)" {
		t.Errorf("q = %q", got)
	}
	if got := q.Get("num"); got != "12" {
		t.Errorf("num = %q, want 12", got)
	}
	if got := q.Get("tbs"); got != "cdr:1,cd_min:3/9/2021,cd_max:11/30/2022" {
		t.Errorf("tbs = %q", got)
	}
}

func TestWebSearchHalfOpenRangeSendsNoWindow(t *testing.T) {
	ts, captured := serveSerp(t, `{}`)
	w, _ := NewWeb("k", HTTPOptions{Client: ts.Client()})

	_, err := w.Search(context.Background(), ProviderQuery{
		Query: "q", MaxResults: 5, From: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if captured.URL.Query().Has("tbs") {
		t.Error("tbs should be absent when only one bound is set")
	}
}

func TestWebSearchParsesResults(t *testing.T) {
	ts, _ := serveSerp(t, `{"organic_results":[
		{"title":"Example","link":"https://example.com/a","snippet":"About A","displayed_link":"example.com › a"},
		{"link":"https://example.com/b"}
	]}`)
	w, _ := NewWeb("k", HTTPOptions{Client: ts.Client()})

	results, err := w.Search(context.Background(), ProviderQuery{Query: "q", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	a := results[0].(types.WebResult)
	if a.Title != "Example" || a.DisplayURL != "example.com › a" || a.Snippet != "About A" {
		t.Errorf("a = %+v", a)
	}
	b := results[1].(types.WebResult)
	if b.Title != "Untitled" || b.DisplayURL != "https://example.com/b" {
		t.Errorf("b = %+v", b)
	}
}

func TestWebSearchAPIError(t *testing.T) {
	ts, _ := serveSerp(t, `{"error":"Your account has run out of searches."}`)
	w, _ := NewWeb("k", HTTPOptions{Client: ts.Client()})

	_, err := w.Search(context.Background(), ProviderQuery{Query: "q", MaxResults: 5})
	var pe *types.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if pe.Source != types.SourceWeb {
		t.Errorf("Source = %q, want web", pe.Source)
	}
}
