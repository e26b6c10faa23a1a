// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// QueryFile is the on-disk representation of a unified search and its
// response. A saved search can be reloaded and re-printed without
// re-querying any provider.
type QueryFile struct {
	Params  types.UnifiedSearchParams           `yaml:"params"`
	Results []SavedResult                       `yaml:"results"`
	Sources map[types.Source]types.SourceStatus `yaml:"sources"`
	Summary QuerySummary                        `yaml:"summary"`
}

// SavedResult encodes one result variant under its source tag. Exactly one
// field is set.
type SavedResult struct {
	Scholar *types.ScholarResult `yaml:"google_scholar,omitempty"`
	Arxiv   *types.ArxivResult   `yaml:"arxiv,omitempty"`
	Pubmed  *types.PubmedResult  `yaml:"pubmed,omitempty"`
	Web     *types.WebResult     `yaml:"web,omitempty"`
}

// QuerySummary stores response statistics and a timestamp.
type QuerySummary struct {
	TotalResults int       `yaml:"total_results"`
	SearchTimeMS int64     `yaml:"search_time_ms"`
	Timestamp    time.Time `yaml:"timestamp"`
}

func saveResult(r types.Result) SavedResult {
	return types.MatchResult(r,
		func(v types.ScholarResult) SavedResult { return SavedResult{Scholar: &v} },
		func(v types.ArxivResult) SavedResult { return SavedResult{Arxiv: &v} },
		func(v types.PubmedResult) SavedResult { return SavedResult{Pubmed: &v} },
		func(v types.WebResult) SavedResult { return SavedResult{Web: &v} },
	)
}

// Result returns the stored variant.
func (s SavedResult) Result() (types.Result, error) {
	switch {
	case s.Scholar != nil:
		return *s.Scholar, nil
	case s.Arxiv != nil:
		return *s.Arxiv, nil
	case s.Pubmed != nil:
		return *s.Pubmed, nil
	case s.Web != nil:
		return *s.Web, nil
	default:
		return nil, fmt.Errorf("saved result has no source")
	}
}

// WriteQueryFile saves params and the response to a YAML file.
func WriteQueryFile(path string, params types.UnifiedSearchParams, resp *types.SearchResponse) error {
	qf := QueryFile{
		Params:  params,
		Results: make([]SavedResult, 0, len(resp.Results)),
		Sources: resp.Sources,
		Summary: QuerySummary{
			TotalResults: resp.TotalResults,
			SearchTimeMS: resp.SearchTime,
			Timestamp:    time.Now(),
		},
	}
	for _, r := range resp.Results {
		qf.Results = append(qf.Results, saveResult(r))
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Response rebuilds the saved SearchResponse.
func (qf *QueryFile) Response() (*types.SearchResponse, error) {
	resp := &types.SearchResponse{
		Results:      make([]types.Result, 0, len(qf.Results)),
		TotalResults: qf.Summary.TotalResults,
		SearchTime:   qf.Summary.SearchTimeMS,
		Sources:      qf.Sources,
	}
	for i, s := range qf.Results {
		r, err := s.Result()
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		resp.Results = append(resp.Results, r)
	}
	return resp, nil
}
