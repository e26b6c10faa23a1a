// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/metrics"
	"github.com/pdiddy/deep-research/pkg/types"
)

// ResultCache is the storage a cached provider reads and writes.
// *cache.Store satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedProvider serves repeated queries from a ResultCache. Only successful
// responses are stored; cache failures fall through to the provider.
type CachedProvider struct {
	Provider
	cache  ResultCache
	ttl    time.Duration
	logger *zap.Logger
}

// Cached decorates p with a TTL cache.
func Cached(p Provider, c ResultCache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{Provider: p, cache: c, ttl: ttl, logger: logger}
}

// Search returns the cached results for q when present, otherwise queries the
// wrapped provider and stores a successful response.
func (c *CachedProvider) Search(ctx context.Context, q ProviderQuery) ([]types.Result, error) {
	source := c.Provider.Name()
	key := cacheKey(source, q)

	if data, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", zap.String("source", string(source)), zap.Error(err))
	} else if ok {
		if results, err := types.UnmarshalResults(data); err == nil {
			metrics.CacheLookups.WithLabelValues(string(source), "hit").Inc()
			return results, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("source", string(source)))
	}
	metrics.CacheLookups.WithLabelValues(string(source), "miss").Inc()

	results, err := c.Provider.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(results)
	if err == nil {
		err = c.cache.Put(ctx, key, data, c.ttl)
	}
	if err != nil {
		c.logger.Warn("cache write failed", zap.String("source", string(source)), zap.Error(err))
	}
	return results, nil
}

// cacheKey identifies a provider query: the source tag plus a digest of every
// field that changes the provider's answer.
func cacheKey(source types.Source, q ProviderQuery) string {
	payload, _ := json.Marshal(struct {
		Query      string        `json:"q"`
		MaxResults int           `json:"n"`
		From       string        `json:"from"`
		To         string        `json:"to"`
		SortBy     types.SortBy  `json:"sort"`
		Filters    types.Filters `json:"filters"`
	}{
		Query:      q.Query,
		MaxResults: q.MaxResults,
		From:       formatDay(q.From),
		To:         formatDay(q.To),
		SortBy:     q.SortBy,
		Filters:    q.Filters,
	})
	sum := sha256.Sum256(payload)
	return string(source) + ":" + hex.EncodeToString(sum[:])
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(types.DateLayout)
}
