package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the search result cache",
	Long: `Cache manages the SQLite database that stores provider responses for
repeated queries. Entries expire after cache.ttl (default 24h).`,
	RunE: runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, s *cache.Store) error {
			n, err := s.Prune(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d expired entries\n", n)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(ctx context.Context, s *cache.Store) error {
			n, err := s.Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d entries\n", n)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	return withCache(func(ctx context.Context, s *cache.Store) error {
		live, expired, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cache: %s\n", viper.GetString("cache.path"))
		fmt.Printf("  live entries:    %d\n", live)
		fmt.Printf("  expired entries: %d\n", expired)
		return nil
	})
}

func withCache(fn func(context.Context, *cache.Store) error) error {
	path := viper.GetString("cache.path")
	if path == "" {
		return &types.ValidationError{Field: "cache.path", Message: "no cache path configured"}
	}
	s, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}
