// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/metrics"
	"github.com/pdiddy/deep-research/pkg/types"
)

// DefaultStepSources is the provider subset a planned step searches.
var DefaultStepSources = []types.Source{types.SourceWeb, types.SourceArxiv}

// DefaultStepMaxResults is the aggregator ceiling for one step. It is higher
// than the search default because a step queries fewer providers.
const DefaultStepMaxResults = 15

// Searcher runs a unified search. *search.Aggregator satisfies it.
type Searcher interface {
	Search(ctx context.Context, params types.UnifiedSearchParams) (*types.SearchResponse, error)
}

// ExecutorOptions tunes an Executor. Zero values select defaults.
type ExecutorOptions struct {
	MaxResults int
	MaxRetries int
}

// Executor runs one research step: search, score, and analyze.
type Executor struct {
	search     Searcher
	model      llm.Completer
	maxResults int
	maxRetries int
	logger     *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(s Searcher, model llm.Completer, opts ExecutorOptions, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultStepMaxResults
	}
	return &Executor{
		search:     s,
		model:      model,
		maxResults: opts.MaxResults,
		maxRetries: opts.MaxRetries,
		logger:     logger,
	}
}

// ExecuteStep searches for the step's query, normalizes and scores the
// results, and asks the model to analyze them against the accumulated
// knowledge. Duration is left zero for the caller to fill.
func (e *Executor) ExecuteStep(ctx context.Context, step types.PlannedStep, knowledge string, q types.ResearchQuery) (types.ResearchStep, error) {
	sources := step.Sources
	if len(sources) == 0 {
		sources = DefaultStepSources
	}

	resp, err := e.search.Search(ctx, types.UnifiedSearchParams{
		Query:      step.Query,
		Sources:    sources,
		MaxResults: e.maxResults,
		SortBy:     types.SortRelevance,
	})
	if err != nil {
		return types.ResearchStep{}, fmt.Errorf("step %d search: %w", step.StepNumber, err)
	}
	for src, st := range resp.Sources {
		if st.Error != "" {
			e.logger.Warn("provider failed during research step",
				zap.Int("step", step.StepNumber), zap.String("source", string(src)), zap.String("error", st.Error))
		}
	}

	results := make([]types.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Normalize(r, step.Query))
	}

	prompt, err := stepPrompt(q, step.Query, results, knowledge)
	if err != nil {
		return types.ResearchStep{}, err
	}
	analysis, err := llm.Structured[Findings](ctx, e.model, llm.Request{System: analysisSystem, Prompt: prompt}, e.maxRetries)
	metrics.RecordLLMCall(types.PhaseStepAnalysis, err)
	if err != nil {
		if ctx.Err() != nil {
			return types.ResearchStep{}, ctx.Err()
		}
		return types.ResearchStep{}, &types.AnalysisError{Phase: types.PhaseStepAnalysis, Step: step.StepNumber, Err: err}
	}

	return types.ResearchStep{
		StepNumber:      step.StepNumber,
		Query:           step.Query,
		Rationale:       step.Rationale,
		Sources:         append([]types.Source(nil), sources...),
		Results:         results,
		KeyFindings:     analysis.KeyFindings,
		QuestionsRaised: analysis.QuestionsRaised,
	}, nil
}

type resultMeta struct {
	publishDate string
	authors     []string
}

// Normalize converts a provider result into a scored SearchResult.
func Normalize(r types.Result, query string) types.SearchResult {
	c := types.CommonFields(r)
	title := c.Title
	if title == "" {
		title = "Untitled"
	}
	m := types.MatchResult(r,
		func(s types.ScholarResult) resultMeta {
			if s.Year == 0 {
				return resultMeta{authors: s.Authors}
			}
			return resultMeta{strconv.Itoa(s.Year), s.Authors}
		},
		func(a types.ArxivResult) resultMeta {
			if a.Published.IsZero() {
				return resultMeta{authors: a.Authors}
			}
			return resultMeta{a.Published.Format(time.RFC3339), a.Authors}
		},
		func(p types.PubmedResult) resultMeta { return resultMeta{p.Published, p.Authors} },
		func(types.WebResult) resultMeta { return resultMeta{} },
	)
	return types.SearchResult{
		Title:          title,
		URL:            c.URL,
		Snippet:        c.Excerpt,
		Source:         r.Source(),
		RelevanceScore: RelevanceScore(r, query),
		KeyPoints:      KeyPoints(c.Excerpt),
		PublishDate:    m.publishDate,
		Authors:        m.authors,
		Raw:            r,
	}
}

// RelevanceScore is a heuristic in [0, 1]: 0.3 when the title contains the
// query, 0.4 when the excerpt does, a per-source trust bonus, and a recency
// bonus that is larger when the result carries a publish date.
func RelevanceScore(r types.Result, query string) float64 {
	c := types.CommonFields(r)
	q := strings.ToLower(query)

	var score float64
	if strings.Contains(strings.ToLower(c.Title), q) {
		score += 0.3
	}
	if strings.Contains(strings.ToLower(c.Excerpt), q) {
		score += 0.4
	}
	score += types.MatchResult(r,
		func(types.ScholarResult) float64 { return 0.15 },
		func(types.ArxivResult) float64 { return 0.2 },
		func(types.PubmedResult) float64 { return 0.1 },
		func(types.WebResult) float64 { return 0.1 },
	)
	dated := types.MatchResult(r,
		func(types.ScholarResult) bool { return false },
		func(a types.ArxivResult) bool { return !a.Published.IsZero() },
		func(p types.PubmedResult) bool { return p.Published != "" },
		func(types.WebResult) bool { return false },
	)
	if dated {
		score += 0.1
	} else {
		score += 0.05
	}
	if score > 1 {
		score = 1
	}
	return score
}

var sentenceEnd = regexp.MustCompile(`[.!?]`)

// KeyPoints returns up to four sentences of the excerpt longer than 25
// characters, trimmed.
func KeyPoints(excerpt string) []string {
	points := []string{}
	for _, s := range sentenceEnd.Split(excerpt, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) <= 25 {
			continue
		}
		points = append(points, s)
		if len(points) == 4 {
			break
		}
	}
	return points
}
