// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries research-information providers (citation index,
// preprint repository, biomedical database, web search) and merges their
// results into one unified response.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Provider searches a single source. Each adapter normalizes its provider's
// native response into types.Result values of its own variant. Zero hits is
// an empty slice, never an error.
type Provider interface {
	Name() types.Source
	Search(ctx context.Context, q ProviderQuery) ([]types.Result, error)
}

// ProviderQuery is the per-provider view of a unified search. The aggregator
// fills it after validation, so adapters can trust its fields.
type ProviderQuery struct {
	Query      string
	MaxResults int

	// From and To bound the publication date; zero means open.
	From time.Time
	To   time.Time

	SortBy  types.SortBy
	Filters types.Filters
}

// HTTPOptions are the transport settings shared by the HTTP adapters.
type HTTPOptions struct {
	Client     *http.Client
	UserAgent  string
	MaxRetries int
}

// defaultUserAgent is sent when HTTPOptions leaves UserAgent empty.
const defaultUserAgent = "deep-research/0.1"

// maxResponseBody bounds a provider response read into memory.
const maxResponseBody = 16 << 20

// get fetches rawURL and returns the body of a 2xx response.
func (o HTTPOptions) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	ua := o.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
}

// providerError wraps err as a *types.ProviderError unless it already is one.
func providerError(source types.Source, err error) error {
	var pe *types.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &types.ProviderError{Source: source, Message: err.Error(), Err: err}
}
