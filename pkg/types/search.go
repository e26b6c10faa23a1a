// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for deep-research: the unified
// search contract, the research run model, configuration, and error kinds.
package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxResultsCeiling is the hard request-level cap on returned results.
const MaxResultsCeiling = 100

// DefaultMaxResults applies when a request leaves MaxResults unset.
const DefaultMaxResults = 20

// SortBy selects the ordering of merged results.
type SortBy string

const (
	// SortRelevance keeps each provider's native order and concatenates.
	SortRelevance SortBy = "relevance"

	// SortDate orders by best-effort publish date, newest first.
	SortDate SortBy = "date"
)

// DateLayout is the calendar date format accepted in date ranges.
const DateLayout = "2006-01-02"

// DateRange bounds results by publication date. Either end may be empty.
type DateRange struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Bounds parses the range into times. Empty ends yield zero times.
func (d DateRange) Bounds() (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if s := strings.TrimSpace(d.Start); s != "" {
		if from, err = time.Parse(DateLayout, s); err != nil {
			return from, to, &ValidationError{Field: "dateRange.start", Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d.Start)}
		}
	}
	if s := strings.TrimSpace(d.End); s != "" {
		if to, err = time.Parse(DateLayout, s); err != nil {
			return from, to, &ValidationError{Field: "dateRange.end", Message: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d.End)}
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return from, to, &ValidationError{Field: "dateRange", Message: "start is after end"}
	}
	return from, to, nil
}

// Filters narrows a search. Each provider honours the fields it understands.
type Filters struct {
	// ContentType is a coarse hint: academic, news, or general.
	ContentType string `json:"contentType,omitempty" yaml:"content_type,omitempty"`

	// Domains restricts web results to these sites.
	Domains []string `json:"domain,omitempty" yaml:"domains,omitempty"`

	// Category restricts preprint results to one subject category (e.g. "cs.AI").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// DateType selects the biomedical date field: pdat, edat, or mdat.
	DateType string `json:"dateType,omitempty" yaml:"date_type,omitempty"`
}

// UnifiedSearchParams is one logical search across providers.
type UnifiedSearchParams struct {
	Query      string     `json:"query" yaml:"query"`
	Sources    []Source   `json:"sources" yaml:"sources"`
	MaxResults int        `json:"maxResults,omitempty" yaml:"max_results,omitempty"`
	DateRange  *DateRange `json:"dateRange,omitempty" yaml:"date_range,omitempty"`
	SortBy     SortBy     `json:"sortBy,omitempty" yaml:"sort_by,omitempty"`
	Filters    *Filters   `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// SourceStatus reports how one dispatched provider fared.
type SourceStatus struct {
	Count   int    `json:"count" yaml:"count"`
	HasMore bool   `json:"hasMore" yaml:"has_more"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SearchResponse is the merged outcome of a unified search.
type SearchResponse struct {
	// Results is sorted and truncated to the requested maximum.
	Results []Result `json:"results" yaml:"results"`

	// TotalResults counts merged results before truncation.
	TotalResults int `json:"totalResults" yaml:"total_results"`

	// SearchTime is the wall-clock duration in milliseconds.
	SearchTime int64 `json:"searchTime" yaml:"search_time"`

	// Sources has exactly one entry per dispatched provider.
	Sources map[Source]SourceStatus `json:"sources" yaml:"sources"`
}

// FilterMetadata describes the filters one provider accepts.
type FilterMetadata struct {
	Categories  []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	DateTypes   []string `json:"dateTypes,omitempty" yaml:"date_types,omitempty"`
	SortOptions []string `json:"sortOptions,omitempty" yaml:"sort_options,omitempty"`
	Engines     []string `json:"engines,omitempty" yaml:"engines,omitempty"`
}
