// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/delivery"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/research"
	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/pkg/types"
)

// llmTimeout bounds one model HTTP call. Long completions outlast the
// provider timeout, so the model client gets its own.
const llmTimeout = 3 * time.Minute

// app holds the services built from one configuration.
type app struct {
	cfg    types.Config
	search *search.Aggregator
	cache  *cache.Store
}

// newApp loads configuration and builds the search stack.
func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper(), creds)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	if err := a.buildSearch(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the cache database.
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

func (a *app) httpOptions() search.HTTPOptions {
	return search.HTTPOptions{
		Client:     &http.Client{Timeout: a.cfg.HTTP.Timeout},
		UserAgent:  a.cfg.HTTP.UserAgent,
		MaxRetries: a.cfg.HTTP.MaxRetries,
	}
}

// buildSearch constructs the configured providers. A provider missing its
// credential is left out and reported as not configured when requested.
func (a *app) buildSearch() error {
	opts := a.httpOptions()
	wanted := a.cfg.Search.Providers
	if len(wanted) == 0 {
		wanted = types.AllSources
	}

	var providers []search.Provider
	for _, src := range types.ExpandSources(wanted) {
		var p search.Provider
		var err error
		switch src {
		case types.SourceScholar:
			p, err = search.NewScholar(a.cfg.Search.SerpAPIKey, opts)
		case types.SourceArxiv:
			p = search.NewArxiv(opts, a.cfg.Search.ArxivInterval)
		case types.SourcePubmed:
			p = search.NewPubmed(a.cfg.Search.PubmedAPIKey, opts)
		case types.SourceWeb:
			p, err = search.NewWeb(a.cfg.Search.SerpAPIKey, opts)
		default:
			return &types.ValidationError{Field: "search.providers", Message: fmt.Sprintf("unknown provider %q. Valid sources are: %s", src, types.ValidSourceList())}
		}
		if err != nil {
			var cerr *types.ConfigurationError
			if !errors.As(err, &cerr) {
				return err
			}
			logger.Warn("provider not configured", zap.String("source", string(src)), zap.Error(err))
			continue
		}
		providers = append(providers, p)
	}

	if a.cfg.Cache.Enabled {
		store, err := cache.Open(a.cfg.Cache.Path)
		if err != nil {
			return err
		}
		a.cache = store
		for i, p := range providers {
			providers[i] = search.Cached(p, store, a.cfg.Cache.TTL, logger)
		}
	}

	a.search = search.NewAggregator(providers, search.Options{
		DefaultMaxResults: a.cfg.Search.DefaultMaxResults,
		PerProviderCap:    a.cfg.Search.PerProviderCap,
		ProviderTimeout:   a.cfg.Search.ProviderTimeout,
	}, logger)
	return nil
}

// orchestrator builds the deep-research orchestrator over the search stack.
// It fails with a ConfigurationError when the model credential is missing.
func (a *app) orchestrator() (*research.Orchestrator, error) {
	model, err := llm.New(a.cfg.AI, &http.Client{Timeout: llmTimeout})
	if err != nil {
		return nil, err
	}
	exec := research.NewExecutor(a.search, model, research.ExecutorOptions{
		MaxResults: a.cfg.Research.StepMaxResults,
		MaxRetries: a.cfg.AI.MaxRetries,
	}, logger)
	return research.NewOrchestrator(exec, model, research.Options{
		MaxSteps:        a.cfg.Research.MaxSteps,
		FollowUpsPerGap: a.cfg.Research.FollowUpsPerGap,
		MaxSources:      a.cfg.Research.MaxSources,
		MaxRetries:      a.cfg.AI.MaxRetries,
	}, logger), nil
}

// deliverers builds every delivery target whose configuration is complete.
func (a *app) deliverers() map[string]delivery.Deliverer {
	out := make(map[string]delivery.Deliverer)
	client := &http.Client{Timeout: a.cfg.HTTP.Timeout}
	for _, kind := range []string{delivery.KindNotion, delivery.KindFile} {
		d, err := delivery.New(kind, a.cfg.Delivery, client, logger)
		if err != nil {
			logger.Debug("delivery target unavailable", zap.String("kind", kind), zap.Error(err))
			continue
		}
		out[kind] = d
	}
	return out
}
