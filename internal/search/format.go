// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

// FormatTable writes a response as a human-readable table to w, followed by
// one status line per dispatched source.
func FormatTable(resp *types.SearchResponse, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-10s  %s\n",
			"Rank", "Title", "Authors", "Date", "Source")
		fmt.Fprintln(w, strings.Repeat("-", 110))

		for i, r := range resp.Results {
			c := types.CommonFields(r)
			fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-10s  %s\n",
				i+1, truncate(c.Title, 60), formatAuthors(resultAuthors(r)), displayDate(r), r.Source())
		}
	}

	fmt.Fprintf(w, "\n%d of %d results in %dms\n", len(resp.Results), resp.TotalResults, resp.SearchTime)

	sources := make([]string, 0, len(resp.Sources))
	for s := range resp.Sources {
		sources = append(sources, string(s))
	}
	sort.Strings(sources)
	for _, s := range sources {
		st := resp.Sources[types.Source(s)]
		if st.Error != "" {
			fmt.Fprintf(w, "  %-15s error: %s\n", s, st.Error)
			continue
		}
		more := ""
		if st.HasMore {
			more = " (more available)"
		}
		fmt.Fprintf(w, "  %-15s %d%s\n", s, st.Count, more)
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp *types.SearchResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func resultAuthors(r types.Result) []string {
	return types.MatchResult(r,
		func(s types.ScholarResult) []string { return s.Authors },
		func(a types.ArxivResult) []string { return a.Authors },
		func(p types.PubmedResult) []string { return p.Authors },
		func(types.WebResult) []string { return nil },
	)
}

// displayDate renders the date a result carries, or "" when it has none.
func displayDate(r types.Result) string {
	return types.MatchResult(r,
		func(s types.ScholarResult) string { return strconv.Itoa(s.Year) },
		func(a types.ArxivResult) string {
			if a.Published.IsZero() {
				return ""
			}
			return a.Published.Format(time.DateOnly)
		},
		func(p types.PubmedResult) string { return truncate(p.Published, 10) },
		func(types.WebResult) string { return "" },
	)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
