package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search scholarly, preprint, biomedical, and web sources at once",
	Long: `Search sends one query to the selected providers concurrently and merges
their results. A provider that fails is reported in the per-source summary
while the others still return results.

Use --save to write the search and its results to a YAML file, and --load
to re-print a saved search without querying any provider.`,
	RunE: runSearch,
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the providers and the filters each accepts",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"filters": search.AvailableFilters(),
			"sources": search.Sources(),
		})
	},
}

func init() {
	searchCmd.Flags().StringSlice("sources", []string{string(types.SourceAll)}, "providers to query: google_scholar, arxiv, pubmed, web, all")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (default 20, capped at 100)")
	searchCmd.Flags().String("sort", "relevance", "result order: relevance or date")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().String("category", "", "preprint subject category (e.g. cs.AI)")
	searchCmd.Flags().StringSlice("domains", nil, "restrict web results to these sites")
	searchCmd.Flags().String("date-type", "", "biomedical date field: pdat, edat, or mdat")
	searchCmd.Flags().String("format", "table", "output format: table, json, or csl")
	searchCmd.Flags().String("save", "", "write the search and its results to this YAML file")
	searchCmd.Flags().String("load", "", "print a saved search instead of querying")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(filtersCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	if load, _ := cmd.Flags().GetString("load"); load != "" {
		qf, err := search.ReadQueryFile(load)
		if err != nil {
			return err
		}
		resp, err := qf.Response()
		if err != nil {
			return err
		}
		return printSearch(resp, format)
	}

	params, err := searchParamsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, err := a.search.Search(ctx, params)
	if err != nil {
		return err
	}
	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := search.WriteQueryFile(save, params, resp); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved search to %s\n", save)
	}
	return printSearch(resp, format)
}

func searchParamsFromFlags(cmd *cobra.Command, args []string) (types.UnifiedSearchParams, error) {
	var params types.UnifiedSearchParams
	params.Query = strings.Join(args, " ")
	if strings.TrimSpace(params.Query) == "" {
		return params, fmt.Errorf("provide a search query")
	}

	rawSources, _ := cmd.Flags().GetStringSlice("sources")
	sources, err := types.ParseSources(rawSources)
	if err != nil {
		return params, err
	}
	params.Sources = sources
	params.MaxResults, _ = cmd.Flags().GetInt("max-results")
	sortBy, _ := cmd.Flags().GetString("sort")
	params.SortBy = types.SortBy(sortBy)

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	if from != "" || to != "" {
		params.DateRange = &types.DateRange{Start: from, End: to}
	}

	var filters types.Filters
	filters.Category, _ = cmd.Flags().GetString("category")
	filters.Domains, _ = cmd.Flags().GetStringSlice("domains")
	filters.DateType, _ = cmd.Flags().GetString("date-type")
	if filters.Category != "" || len(filters.Domains) > 0 || filters.DateType != "" {
		params.Filters = &filters
	}
	return params, nil
}

func printSearch(resp *types.SearchResponse, format string) error {
	switch format {
	case "table", "":
		search.FormatTable(resp, os.Stdout)
		return nil
	case "json":
		return search.FormatJSON(resp, os.Stdout)
	case "csl":
		return search.FormatCSL(resp, os.Stdout)
	default:
		return fmt.Errorf("unknown format %q (want table, json, or csl)", format)
	}
}
