// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Source identifies a research-information provider. The string values are
// the wire tags accepted by the search API.
type Source string

const (
	// SourceScholar is the academic citation index (Google Scholar via SerpAPI).
	SourceScholar Source = "google_scholar"

	// SourceArxiv is the preprint repository.
	SourceArxiv Source = "arxiv"

	// SourcePubmed is the biomedical literature database.
	SourcePubmed Source = "pubmed"

	// SourceWeb is general web search (Google via SerpAPI).
	SourceWeb Source = "web"

	// SourceAll is the wildcard that expands to every provider.
	SourceAll Source = "all"
)

// AllSources lists every concrete provider in dispatch order.
var AllSources = []Source{SourceScholar, SourceArxiv, SourcePubmed, SourceWeb}

// validSources is the accepted tag set, including the wildcard, in the order
// error messages enumerate them.
var validSources = []Source{SourceScholar, SourceArxiv, SourcePubmed, SourceWeb, SourceAll}

// Valid reports whether s is a known tag (wildcard included).
func (s Source) Valid() bool {
	for _, v := range validSources {
		if s == v {
			return true
		}
	}
	return false
}

// ParseSources converts raw tags into Sources. Unknown tags produce a
// ValidationError that names them and enumerates every valid tag.
func ParseSources(raw []string) ([]Source, error) {
	out := make([]Source, 0, len(raw))
	var invalid []string
	for _, r := range raw {
		s := Source(strings.TrimSpace(r))
		if !s.Valid() {
			invalid = append(invalid, r)
			continue
		}
		out = append(out, s)
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{
			Field:   "sources",
			Message: fmt.Sprintf("invalid sources: %s. Valid sources are: %s", strings.Join(invalid, ", "), ValidSourceList()),
		}
	}
	return out, nil
}

// ValidSourceList returns the comma-separated list of accepted tags.
func ValidSourceList() string {
	names := make([]string, len(validSources))
	for i, s := range validSources {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// ExpandSources replaces the wildcard with the full provider set and drops
// duplicates, preserving first-seen order.
func ExpandSources(sources []Source) []Source {
	seen := make(map[Source]bool, len(AllSources))
	var out []Source
	add := func(s Source) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range sources {
		if s == SourceAll {
			for _, p := range AllSources {
				add(p)
			}
			continue
		}
		add(s)
	}
	return out
}
