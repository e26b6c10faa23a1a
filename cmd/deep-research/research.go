// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/internal/delivery"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [query]",
	Short: "Run an iterative deep-research session",
	Long: `Research plans a set of search steps for the query, executes them against
the unified search, injects follow-up steps where gap analysis finds missing
information, and synthesizes a report.

The query comes from the arguments or from a YAML request file:

  original_query: solid-state battery commercialization
  depth: comprehensive
  focus_areas: [manufacturing, cost]

The report prints to stdout (or --output). --deliver also publishes it to
Notion or a report directory; a delivery failure does not discard the report.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("depth", "", "research depth: quick, standard, or comprehensive (default standard)")
	researchCmd.Flags().String("context", "", "background the planner should take into account")
	researchCmd.Flags().StringSlice("focus", nil, "focus areas")
	researchCmd.Flags().StringSlice("exclude", nil, "topics to exclude")
	researchCmd.Flags().String("request", "", "YAML file holding the research query")
	researchCmd.Flags().String("format", "markdown", "report format: markdown, json, yaml, or text")
	researchCmd.Flags().String("output", "", "write the report to this file instead of stdout")
	researchCmd.Flags().String("deliver", "", "also deliver the report: notion or file")
	researchCmd.Flags().String("destination", "", "delivery target: Notion database id or output directory")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	q, err := researchQueryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var d delivery.Deliverer
	if kind, _ := cmd.Flags().GetString("deliver"); kind != "" {
		// Fail before spending model calls on a report that cannot be delivered.
		if d, err = delivery.New(kind, a.cfg.Delivery, nil, logger); err != nil {
			return err
		}
	}

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := orch.Run(ctx, q)
	if err != nil {
		return err
	}

	data, err := report.Render(rep, format)
	if err != nil {
		return err
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report %s written to %s\n", rep.ID, output)
	} else {
		os.Stdout.Write(data)
	}

	if d != nil {
		destination, _ := cmd.Flags().GetString("destination")
		id, err := d.Deliver(ctx, rep, destination)
		if err != nil {
			var derr *types.DeliveryError
			if errors.As(err, &derr) {
				logger.Warn("report delivery failed", zap.String("report", rep.ID), zap.Error(err))
				fmt.Fprintf(os.Stderr, "Delivery failed: %v\n", err)
				return nil
			}
			return err
		}
		fmt.Fprintf(os.Stderr, "Delivered report %s: %s\n", rep.ID, id)
	}
	return nil
}

func researchQueryFromFlags(cmd *cobra.Command, args []string) (types.ResearchQuery, error) {
	var q types.ResearchQuery
	if path, _ := cmd.Flags().GetString("request"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return q, fmt.Errorf("reading request file: %w", err)
		}
		if err := yaml.Unmarshal(data, &q); err != nil {
			return q, fmt.Errorf("parsing request file: %w", err)
		}
	}

	if len(args) > 0 {
		q.OriginalQuery = strings.Join(args, " ")
	}
	if depth, _ := cmd.Flags().GetString("depth"); depth != "" {
		q.Depth = types.Depth(depth)
	}
	if c, _ := cmd.Flags().GetString("context"); c != "" {
		q.Context = c
	}
	if focus, _ := cmd.Flags().GetStringSlice("focus"); len(focus) > 0 {
		q.FocusAreas = focus
	}
	if exclude, _ := cmd.Flags().GetStringSlice("exclude"); len(exclude) > 0 {
		q.ExcludeTopics = exclude
	}

	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}
