// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research drives iterative deep-research runs: plan, execute each
// step against the unified search, analyze gaps, inject follow-ups within a
// fixed step budget, and synthesize a report.
package research

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/metrics"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Defaults for Options.
const (
	DefaultMaxSteps        = 8
	DefaultFollowUpsPerGap = 2
	DefaultMaxSources      = 50
)

// StepExecutor runs one planned step. *Executor satisfies it.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, step types.PlannedStep, knowledge string, q types.ResearchQuery) (types.ResearchStep, error)
}

// Options bounds a run. Zero values select defaults.
type Options struct {
	// MaxSteps is the hard ceiling on executed steps, planned and follow-up.
	MaxSteps int

	// FollowUpsPerGap bounds follow-ups injected after one gap analysis.
	FollowUpsPerGap int

	// MaxSources caps the consolidated source list.
	MaxSources int

	// MaxRetries bounds transport retries for each model call.
	MaxRetries int
}

// Orchestrator runs deep-research sessions. Steps execute sequentially; each
// model call sees the knowledge accumulated by every earlier step.
type Orchestrator struct {
	exec   StepExecutor
	model  llm.Completer
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(exec StepExecutor, model llm.Completer, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.FollowUpsPerGap <= 0 {
		opts.FollowUpsPerGap = DefaultFollowUpsPerGap
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}
	return &Orchestrator{exec: exec, model: model, opts: opts, logger: logger, now: time.Now}
}

// run holds the mutable state of one orchestration.
type run struct {
	query     types.ResearchQuery
	steps     []types.ResearchStep
	knowledge strings.Builder
}

// Run conducts one deep-research session. Any model failure aborts the run
// with an *types.AnalysisError naming the phase; no partial report is
// returned. Cancelling ctx aborts at the next suspension point.
func (o *Orchestrator) Run(ctx context.Context, q types.ResearchQuery) (report *types.ResearchReport, err error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := o.now()
	log := o.logger.With(zap.String("query", q.OriginalQuery), zap.String("depth", string(q.Depth)))
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		metrics.Runs.WithLabelValues(string(q.Depth), status).Inc()
	}()

	log.Info("starting deep research")
	plan, err := o.plan(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(plan.Steps) > o.opts.MaxSteps {
		plan.Steps = plan.Steps[:o.opts.MaxSteps]
	}
	log.Info("research plan ready", zap.Int("steps", len(plan.Steps)))

	r := &run{query: q}
	for i, planned := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("research cancelled: %w", err)
		}
		step, err := o.execute(ctx, r, planned, "planned")
		if err != nil {
			return nil, err
		}

		gaps, err := o.analyzeGaps(ctx, r, step)
		if err != nil {
			return nil, err
		}
		remaining := len(plan.Steps) - i - 1
		if err := o.followUp(ctx, r, gaps, remaining); err != nil {
			return nil, err
		}
	}

	log.Info("synthesizing report", zap.Int("steps", len(r.steps)))
	synth, err := o.synthesize(ctx, r)
	if err != nil {
		return nil, err
	}

	report = &types.ResearchReport{
		ID:                       "research_" + uuid.NewString(),
		Query:                    q,
		ResearchSteps:            r.steps,
		ExecutiveSummary:         synth.ExecutiveSummary,
		KeyFindings:              synth.KeyFindings,
		Methodology:              synth.Methodology,
		Limitations:              synth.Limitations,
		Recommendations:          synth.Recommendations,
		FutureResearchDirections: synth.FutureResearchDirections,
		Sources:                  Consolidate(r.steps, o.opts.MaxSources),
		Confidence:               synth.Confidence,
		CreatedAt:                o.now().UTC(),
		EstimatedReadTime:        int(math.Ceil(synth.EstimatedReadTime)),
	}
	report.TotalDuration = o.now().Sub(start).Milliseconds()
	log.Info("deep research complete",
		zap.String("id", report.ID), zap.Int("sources", len(report.Sources)), zap.Int64("duration_ms", report.TotalDuration))
	return report, nil
}

func (o *Orchestrator) plan(ctx context.Context, q types.ResearchQuery) (types.ResearchPlan, error) {
	prompt, err := planPrompt(q)
	if err != nil {
		return types.ResearchPlan{}, err
	}
	reply, err := llm.Structured[planReply](ctx, o.model, llm.Request{System: planSystem, Prompt: prompt}, o.opts.MaxRetries)
	if err == nil {
		err = checkStepCount(reply.ResearchPlan, q.Depth)
	}
	metrics.RecordLLMCall(types.PhasePlan, err)
	if err != nil {
		return types.ResearchPlan{}, o.analysisError(ctx, types.PhasePlan, 0, err)
	}
	return reply.ResearchPlan, nil
}

// execute runs one step, numbers it, times it, and appends it to the run.
func (o *Orchestrator) execute(ctx context.Context, r *run, planned types.PlannedStep, kind string) (types.ResearchStep, error) {
	planned.StepNumber = len(r.steps) + 1
	o.logger.Info("executing research step",
		zap.Int("step", planned.StepNumber), zap.String("kind", kind), zap.String("step_query", planned.Query))

	started := o.now()
	step, err := o.exec.ExecuteStep(ctx, planned, r.knowledge.String(), r.query)
	if err != nil {
		if ctx.Err() != nil {
			return types.ResearchStep{}, fmt.Errorf("research cancelled: %w", ctx.Err())
		}
		return types.ResearchStep{}, err
	}
	step.StepNumber = planned.StepNumber
	step.FollowUp = kind == "follow_up"
	step.Duration = o.now().Sub(started).Milliseconds()

	r.steps = append(r.steps, step)
	r.knowledge.WriteString(formatStep(step))
	metrics.Steps.WithLabelValues(kind).Inc()
	return step, nil
}

func (o *Orchestrator) analyzeGaps(ctx context.Context, r *run, step types.ResearchStep) (Findings, error) {
	prompt, err := gapPrompt(r.query, step, r.knowledge.String())
	if err != nil {
		return Findings{}, err
	}
	gaps, err := llm.Structured[Findings](ctx, o.model, llm.Request{System: gapSystem, Prompt: prompt}, o.opts.MaxRetries)
	metrics.RecordLLMCall(types.PhaseGapAnalysis, err)
	if err != nil {
		return Findings{}, o.analysisError(ctx, types.PhaseGapAnalysis, step.StepNumber, err)
	}
	return gaps, nil
}

// followUp injects steps for the queries a gap analysis proposed. Planned
// steps still to run count against the budget, so the run never exceeds
// MaxSteps however often gap analysis asks for more.
func (o *Orchestrator) followUp(ctx context.Context, r *run, gaps Findings, remaining int) error {
	queries := gaps.followUpQueries()
	if !gaps.NeedsMoreResearch || len(queries) == 0 {
		return nil
	}
	if len(queries) > o.opts.FollowUpsPerGap {
		queries = queries[:o.opts.FollowUpsPerGap]
	}
	o.logger.Info("follow-up research needed", zap.Strings("gaps", gaps.InformationGaps))

	sources := SourcesForGaps(gaps.InformationGaps)
	expected := make([]string, len(sources))
	for i, s := range sources {
		expected[i] = string(s)
	}
	for _, fq := range queries {
		if len(r.steps)+remaining >= o.opts.MaxSteps {
			o.logger.Info("step budget reached, skipping follow-up", zap.String("step_query", fq))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("research cancelled: %w", err)
		}
		_, err := o.execute(ctx, r, types.PlannedStep{
			Query:           fq,
			Rationale:       "Follow-up investigation addressing information gaps: " + strings.Join(gaps.InformationGaps, ", "),
			ExpectedSources: expected,
			FocusArea:       "gap analysis",
			Priority:        types.PriorityHigh,
			Sources:         sources,
		}, "follow_up")
		if err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) synthesize(ctx context.Context, r *run) (Synthesis, error) {
	prompt, err := synthesisPrompt(r.query, r.steps, r.knowledge.String())
	if err != nil {
		return Synthesis{}, err
	}
	synth, err := llm.Structured[Synthesis](ctx, o.model, llm.Request{System: synthesisSystem, Prompt: prompt}, o.opts.MaxRetries)
	metrics.RecordLLMCall(types.PhaseSynthesis, err)
	if err != nil {
		return Synthesis{}, o.analysisError(ctx, types.PhaseSynthesis, 0, err)
	}
	return synth, nil
}

func (o *Orchestrator) analysisError(ctx context.Context, phase string, step int, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("research cancelled: %w", ctx.Err())
	}
	return &types.AnalysisError{Phase: phase, Step: step, Err: err}
}

// SourcesForGaps picks the provider subset for follow-up steps from the
// wording of the information gaps. The first matching rule wins.
func SourcesForGaps(gaps []string) []types.Source {
	text := strings.ToLower(strings.Join(gaps, " "))
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
	switch {
	case containsAny("academic", "research", "study"):
		return []types.Source{types.SourceArxiv, types.SourceWeb}
	case containsAny("current", "recent", "trend"):
		return []types.Source{types.SourceWeb, types.SourceArxiv}
	case containsAny("medical", "health", "clinical"):
		return []types.Source{types.SourcePubmed, types.SourceWeb}
	default:
		return []types.Source{types.SourceWeb, types.SourceArxiv}
	}
}

// Consolidate flattens every step's results, keeps the first occurrence of
// each URL, and returns at most max results ordered by relevance score.
// Results without a URL are never merged with each other.
func Consolidate(steps []types.ResearchStep, max int) []types.SearchResult {
	seen := make(map[string]bool)
	out := []types.SearchResult{}
	for _, step := range steps {
		for _, res := range step.Results {
			if res.URL != "" {
				if seen[res.URL] {
					continue
				}
				seen[res.URL] = true
			}
			out = append(out, res)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
