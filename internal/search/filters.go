// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import "github.com/pdiddy/deep-research/pkg/types"

// SourceInfo describes one provider for API discovery.
type SourceInfo struct {
	ID          types.Source `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
}

// Sources returns the descriptions of every provider in dispatch order.
func Sources() []SourceInfo {
	return []SourceInfo{
		{ID: types.SourceScholar, Name: "Google Scholar", Description: "Academic papers and citations"},
		{ID: types.SourceArxiv, Name: "arXiv", Description: "Scientific preprints"},
		{ID: types.SourcePubmed, Name: "PubMed", Description: "Biomedical literature"},
		{ID: types.SourceWeb, Name: "Web Search", Description: "General web results"},
	}
}

// AvailableFilters returns the filter metadata each provider accepts. The
// values are static.
func AvailableFilters() map[types.Source]types.FilterMetadata {
	return map[types.Source]types.FilterMetadata{
		types.SourceArxiv: {
			Categories: []string{
				"cs.AI", "cs.CL", "cs.CV", "cs.LG", "cs.NE",
				"physics.bio-ph", "q-bio.BM", "q-bio.QM",
				"math.ST", "stat.ML", "stat.ME",
			},
		},
		types.SourcePubmed: {
			DateTypes:   []string{"pdat", "edat", "mdat"},
			SortOptions: []string{"relevance", "pub_date", "Author", "JournalName"},
		},
		types.SourceScholar: {
			SortOptions: []string{"relevance", "date"},
		},
		types.SourceWeb: {
			Engines: []string{"google", "bing", "duckduckgo"},
		},
	}
}
