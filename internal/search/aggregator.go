// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deep-research/internal/metrics"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Aggregator defaults.
const (
	DefaultPerProviderCap  = 20
	DefaultProviderTimeout = 30 * time.Second
)

// Options tunes an Aggregator. Zero values select the defaults.
type Options struct {
	DefaultMaxResults int
	PerProviderCap    int
	ProviderTimeout   time.Duration
}

// Aggregator fans one query out to the selected providers, isolates their
// failures, and merges the results into a single response.
type Aggregator struct {
	providers map[types.Source]Provider
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator registers providers by their Name. A source with no
// registered provider is reported as not configured when requested.
func NewAggregator(providers []Provider, opts Options, logger *zap.Logger) *Aggregator {
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = types.DefaultMaxResults
	}
	if opts.PerProviderCap <= 0 {
		opts.PerProviderCap = DefaultPerProviderCap
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[types.Source]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Aggregator{providers: m, opts: opts, logger: logger, now: time.Now}
}

// Configured lists the registered sources in dispatch order.
func (a *Aggregator) Configured() []types.Source {
	var out []types.Source
	for _, s := range types.AllSources {
		if _, ok := a.providers[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// request is a validated UnifiedSearchParams.
type request struct {
	sources    []types.Source
	maxResults int
	query      ProviderQuery
}

// validate checks params and resolves the defaults: wildcard expansion,
// maxResults defaulting and clamping, and date parsing.
func (a *Aggregator) validate(params types.UnifiedSearchParams) (request, error) {
	var req request

	query := strings.TrimSpace(params.Query)
	if query == "" {
		return req, &types.ValidationError{Field: "query", Message: "query is required"}
	}
	if len(params.Sources) == 0 {
		return req, &types.ValidationError{Field: "sources", Message: "at least one source is required. Valid sources are: " + types.ValidSourceList()}
	}
	var invalid []string
	for _, s := range params.Sources {
		if !s.Valid() {
			invalid = append(invalid, string(s))
		}
	}
	if len(invalid) > 0 {
		return req, &types.ValidationError{
			Field:   "sources",
			Message: fmt.Sprintf("invalid sources: %s. Valid sources are: %s", strings.Join(invalid, ", "), types.ValidSourceList()),
		}
	}

	switch {
	case params.MaxResults < 0:
		return req, &types.ValidationError{Field: "maxResults", Message: "must not be negative"}
	case params.MaxResults == 0:
		req.maxResults = a.opts.DefaultMaxResults
	case params.MaxResults > types.MaxResultsCeiling:
		req.maxResults = types.MaxResultsCeiling
	default:
		req.maxResults = params.MaxResults
	}

	sortBy := params.SortBy
	switch sortBy {
	case "":
		sortBy = types.SortRelevance
	case types.SortRelevance, types.SortDate:
	default:
		return req, &types.ValidationError{Field: "sortBy", Message: fmt.Sprintf("unknown sort %q (want relevance or date)", params.SortBy)}
	}

	var from, to time.Time
	if params.DateRange != nil {
		var err error
		if from, to, err = params.DateRange.Bounds(); err != nil {
			return req, err
		}
	}

	var filters types.Filters
	if params.Filters != nil {
		filters = *params.Filters
	}

	req.sources = types.ExpandSources(params.Sources)
	req.query = ProviderQuery{
		Query:      query,
		MaxResults: min(req.maxResults, a.opts.PerProviderCap),
		From:       from,
		To:         to,
		SortBy:     sortBy,
		Filters:    filters,
	}
	return req, nil
}

// outcome is one provider's settled result.
type outcome struct {
	results []types.Result
	err     error
}

// Search runs params against every selected provider concurrently. A
// provider failure never fails the call: it is recorded in the response's
// Sources map and the remaining providers' results are returned. Only
// invalid params produce an error.
func (a *Aggregator) Search(ctx context.Context, params types.UnifiedSearchParams) (*types.SearchResponse, error) {
	start := a.now()

	req, err := a.validate(params)
	if err != nil {
		return nil, err
	}

	outcomes := make([]outcome, len(req.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range req.sources {
		provider, ok := a.providers[source]
		if !ok {
			outcomes[i].err = &types.ProviderError{Source: source, Message: "not configured"}
			continue
		}
		// Each goroutine reports through outcomes and returns nil so one
		// failure never cancels its siblings.
		g.Go(func() error {
			outcomes[i] = a.dispatch(gctx, provider, req.query)
			return nil
		})
	}
	_ = g.Wait()

	resp := &types.SearchResponse{
		Results: []types.Result{},
		Sources: make(map[types.Source]types.SourceStatus, len(req.sources)),
	}
	for i, source := range req.sources {
		o := outcomes[i]
		if o.err != nil {
			resp.Sources[source] = types.SourceStatus{Error: errorMessage(o.err)}
			continue
		}
		resp.Results = append(resp.Results, o.results...)
		resp.Sources[source] = types.SourceStatus{
			Count:   len(o.results),
			HasMore: len(o.results) == req.query.MaxResults,
		}
	}

	resp.TotalResults = len(resp.Results)
	if req.query.SortBy == types.SortDate {
		SortByDate(resp.Results, a.now())
	}
	if len(resp.Results) > req.maxResults {
		resp.Results = resp.Results[:req.maxResults]
	}
	resp.SearchTime = a.now().Sub(start).Milliseconds()

	a.logger.Debug("unified search complete",
		zap.String("query", req.query.Query),
		zap.Int("sources", len(req.sources)),
		zap.Int("total", resp.TotalResults),
		zap.Int64("ms", resp.SearchTime),
	)
	return resp, nil
}

// dispatch runs one provider under its own timeout and converts panics and
// errors into a ProviderError.
func (a *Aggregator) dispatch(ctx context.Context, p Provider, q ProviderQuery) (o outcome) {
	source := p.Name()
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.opts.ProviderTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: &types.ProviderError{Source: source, Message: fmt.Sprintf("provider panicked: %v", r)}}
			a.logger.Error("provider panicked", zap.String("source", string(source)), zap.Any("panic", r))
		}
		status := metrics.StatusSuccess
		if o.err != nil {
			status = metrics.StatusError
			if errors.Is(o.err, context.DeadlineExceeded) {
				status = metrics.StatusTimeout
			}
		}
		metrics.RecordProvider(string(source), status, time.Since(started))
	}()

	results, err := p.Search(ctx, q)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &types.ProviderError{
				Source:  source,
				Message: fmt.Sprintf("timed out after %s", a.opts.ProviderTimeout),
				Err:     context.DeadlineExceeded,
			}
		}
		a.logger.Warn("provider failed, continuing with other sources",
			zap.String("source", string(source)), zap.Error(err))
		return outcome{err: providerError(source, err)}
	}
	if results == nil {
		results = []types.Result{}
	}
	return outcome{results: results}
}

func errorMessage(err error) string {
	var pe *types.ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

// SortByDate orders results newest first by best-effort publish date. The
// sort is stable, so equal dates keep their merge order. Results without a
// usable date sort as now.
func SortByDate(results []types.Result, now time.Time) {
	dates := make([]time.Time, len(results))
	idx := make([]int, len(results))
	for i, r := range results {
		idx[i] = i
		dates[i] = PublishDate(r, now)
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return dates[idx[x]].After(dates[idx[y]])
	})
	sorted := make([]types.Result, len(results))
	for i, j := range idx {
		sorted[i] = results[j]
	}
	copy(results, sorted)
}

// PublishDate derives a sortable date from a result: January 1 of the
// citation year, the preprint publish time, or the parsed biomedical date.
// Web results and unparseable dates yield now.
func PublishDate(r types.Result, now time.Time) time.Time {
	return types.MatchResult(r,
		func(s types.ScholarResult) time.Time {
			return time.Date(s.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		},
		func(a types.ArxivResult) time.Time {
			if a.Published.IsZero() {
				return now
			}
			return a.Published
		},
		func(p types.PubmedResult) time.Time {
			if t, ok := parsePubmedDate(p.Published); ok {
				return t
			}
			return now
		},
		func(types.WebResult) time.Time { return now },
	)
}
