// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

// --- fakes ---

// fakeSearcher returns one preprint and one web result per query, plus a
// result at a URL shared by every query.
type fakeSearcher struct {
	params []types.UnifiedSearchParams
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, p types.UnifiedSearchParams) (*types.SearchResponse, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	slug := strings.ReplaceAll(p.Query, " ", "-")
	results := []types.Result{
		types.ArxivResult{
			Title:     "Preprint on " + p.Query,
			URL:       "https://arxiv.example/" + slug,
			Abstract:  "This preprint studies " + p.Query + " in depth. Short one. It reports a substantial improvement over baselines!",
			Authors:   []string{"Ada Lovelace"},
			Published: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		types.WebResult{Title: "Web page", URL: "https://web.example/" + slug, Snippet: "General coverage."},
		types.WebResult{Title: "Shared page", URL: "https://shared.example", Snippet: "Appears in every step."},
	}
	return &types.SearchResponse{Results: results, TotalResults: len(results)}, nil
}

// fakeModel answers each phase from its system prompt. Gap analyses are
// answered by gap, called with the 1-based gap-analysis count.
type fakeModel struct {
	plan  string
	step  string
	gap   func(n int) string
	synth string

	gapCalls  int
	stepCalls int
	prompts   []llm.Request
}

func (m *fakeModel) Complete(_ context.Context, req llm.Request) (string, error) {
	m.prompts = append(m.prompts, req)
	switch req.System {
	case planSystem:
		return m.plan, nil
	case analysisSystem:
		m.stepCalls++
		return m.step, nil
	case gapSystem:
		m.gapCalls++
		return m.gap(m.gapCalls), nil
	case synthesisSystem:
		return m.synth, nil
	}
	return "", fmt.Errorf("unexpected system prompt %q", req.System)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func planJSON(t *testing.T, n int) string {
	t.Helper()
	steps := make([]types.PlannedStep, n)
	for i := range steps {
		steps[i] = types.PlannedStep{
			StepNumber:      i + 1,
			Query:           fmt.Sprintf("planned research query %d", i+1),
			Rationale:       strings.Repeat("This step establishes necessary context. ", 2),
			ExpectedSources: []string{"academic papers"},
			FocusArea:       "current state",
			Priority:        types.PriorityMedium,
		}
	}
	return mustJSON(t, types.ResearchPlan{
		Steps:              steps,
		Methodology:        strings.Repeat("Systematic multi-source review. ", 5),
		EstimatedDuration:  "10 minutes",
		ResearchObjectives: []string{"understand the field"},
	})
}

func findingsJSON(t *testing.T, needsMore bool, queries, gaps []string) string {
	t.Helper()
	if queries == nil {
		queries = []string{}
	}
	if gaps == nil {
		gaps = []string{}
	}
	return mustJSON(t, Findings{
		KeyFindings:       []string{"A finding that is long enough to count."},
		QuestionsRaised:   []string{"What remains unknown?"},
		NextSearchQueries: queries,
		ConfidenceLevel:   0.7,
		NeedsMoreResearch: needsMore,
		InformationGaps:   gaps,
		SourceQuality:     QualityGood,
	})
}

func synthesisJSON(t *testing.T) string {
	t.Helper()
	return mustJSON(t, Synthesis{
		ExecutiveSummary:         strings.Repeat("The evidence points in a consistent direction. ", 6),
		KeyFindings:              []string{"Finding one is supported by several independent sources."},
		Methodology:              strings.Repeat("We planned, searched, analyzed, and synthesized. ", 4),
		Limitations:              []string{"Coverage of non-English sources is thin."},
		Recommendations:          []string{"Pilot the approach in one team before scaling it."},
		Confidence:               0.8,
		EstimatedReadTime:        4.2,
		FutureResearchDirections: []string{"Longitudinal studies"},
	})
}

func noGaps(t *testing.T) func(int) string {
	return func(int) string { return findingsJSON(t, false, nil, nil) }
}

func newTestOrchestrator(s Searcher, m llm.Completer) *Orchestrator {
	return NewOrchestrator(NewExecutor(s, m, ExecutorOptions{}, nil), m, Options{}, nil)
}

func stepNumbers(steps []types.ResearchStep) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.StepNumber
	}
	return out
}

// --- Orchestrator ---

func TestRunQuickPlan(t *testing.T) {
	s := &fakeSearcher{}
	m := &fakeModel{plan: planJSON(t, 3), step: findingsJSON(t, false, nil, nil), gap: noGaps(t), synth: synthesisJSON(t)}

	report, err := newTestOrchestrator(s, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "quantum computing", Depth: types.DepthQuick})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, stepNumbers(report.ResearchSteps))
	assert.Equal(t, 3, m.gapCalls, "gap analysis runs after every planned step")
	assert.True(t, strings.HasPrefix(report.ID, "research_"))
	assert.Equal(t, 5, report.EstimatedReadTime, "read time rounds up")
	assert.Equal(t, 0.8, report.Confidence)
	assert.Equal(t, types.DepthQuick, report.Query.Depth)
	assert.False(t, report.CreatedAt.IsZero())

	for _, step := range report.ResearchSteps {
		assert.Equal(t, DefaultStepSources, step.Sources)
		assert.False(t, step.FollowUp)
		assert.Len(t, step.Results, 3)
	}
	// 3 steps x 2 unique results + 1 shared URL.
	assert.Len(t, report.Sources, 7)
}

func TestRunDefaultsToStandardDepth(t *testing.T) {
	m := &fakeModel{plan: planJSON(t, 4), step: findingsJSON(t, false, nil, nil), gap: noGaps(t), synth: synthesisJSON(t)}
	report, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "soil carbon"})
	require.NoError(t, err)
	assert.Equal(t, types.DepthStandard, report.Query.Depth)
	assert.Contains(t, m.prompts[0].Prompt, "4-6 research steps")
}

func TestRunRejectsInvalidQuery(t *testing.T) {
	m := &fakeModel{}
	_, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "  "})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, m.prompts, "no model call for invalid input")

	_, err = newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "x", Depth: "deep"})
	require.ErrorAs(t, err, &ve)
}

func TestRunPlanFailures(t *testing.T) {
	noFocusArea := strings.Replace(planJSON(t, 3), `"focusArea":"current state",`, "", 1)
	noDuration := strings.Replace(planJSON(t, 3), `"estimatedDuration":"10 minutes",`, "", 1)
	shortRationale := strings.Replace(planJSON(t, 3), strings.Repeat("This step establishes necessary context. ", 2), "too short", 1)
	tests := []struct {
		name  string
		depth types.Depth
		plan  string
		want  string
	}{
		{"too few steps for depth", types.DepthComprehensive, planJSON(t, 4), "comprehensive research needs 6-8 steps, got 4"},
		{"too many steps for depth", types.DepthQuick, planJSON(t, 5), "quick research needs 3-4 steps, got 5"},
		{"short rationale", types.DepthQuick, shortRationale, "researchSteps[0].rationale: must be at least 50 characters"},
		{"not json", types.DepthQuick, "Sure! Here is a plan.", "no JSON object"},
		{"step without focus area", types.DepthQuick, noFocusArea, "researchSteps[0].focusArea: required"},
		{"no estimated duration", types.DepthQuick, noDuration, "estimatedDuration: required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{}
			m := &fakeModel{plan: tt.plan}
			report, err := newTestOrchestrator(s, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: tt.depth})
			assert.Nil(t, report)

			var ae *types.AnalysisError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, types.PhasePlan, ae.Phase)
			var se *llm.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, s.params, "no search runs without a valid plan")
		})
	}
}

func TestRunInjectsFollowUps(t *testing.T) {
	s := &fakeSearcher{}
	m := &fakeModel{
		plan: planJSON(t, 4),
		step: findingsJSON(t, false, nil, nil),
		gap: func(n int) string {
			if n == 1 {
				return findingsJSON(t, true,
					[]string{"first follow-up query", " ", "second follow-up query", "third follow-up query"},
					[]string{"recent adoption trends", "cost data"})
			}
			return findingsJSON(t, false, nil, nil)
		},
		synth: synthesisJSON(t),
	}

	report, err := newTestOrchestrator(s, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "heat pumps", Depth: types.DepthStandard})
	require.NoError(t, err)

	steps := report.ResearchSteps
	require.Len(t, steps, 6)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, stepNumbers(steps))
	assert.Equal(t, "first follow-up query", steps[1].Query)
	assert.Equal(t, "second follow-up query", steps[2].Query, "blank proposals are skipped")
	for _, fu := range steps[1:3] {
		assert.True(t, fu.FollowUp)
		assert.Equal(t, "Follow-up investigation addressing information gaps: recent adoption trends, cost data", fu.Rationale)
		assert.Equal(t, []types.Source{types.SourceWeb, types.SourceArxiv}, fu.Sources)
	}
	assert.Equal(t, "planned research query 2", steps[3].Query)
	assert.Equal(t, 4, m.gapCalls, "follow-up steps are not gap-analyzed")
	assert.Equal(t, 6, m.stepCalls)
}

func TestRunFollowUpSourcesFromGaps(t *testing.T) {
	s := &fakeSearcher{}
	m := &fakeModel{
		plan: planJSON(t, 3),
		step: findingsJSON(t, false, nil, nil),
		gap: func(n int) string {
			if n == 1 {
				return findingsJSON(t, true, []string{"clinical outcomes in adults"}, []string{"clinical trial outcomes"})
			}
			return findingsJSON(t, false, nil, nil)
		},
		synth: synthesisJSON(t),
	}
	_, err := newTestOrchestrator(s, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "statins", Depth: types.DepthQuick})
	require.NoError(t, err)

	require.Len(t, s.params, 4)
	assert.Equal(t, []types.Source{types.SourcePubmed, types.SourceWeb}, s.params[1].Sources)
	assert.Equal(t, DefaultStepSources, s.params[2].Sources)
}

func TestRunNeverExceedsStepBudget(t *testing.T) {
	for _, n := range []int{6, 7, 8} {
		t.Run(fmt.Sprintf("%d planned", n), func(t *testing.T) {
			m := &fakeModel{
				plan: planJSON(t, n),
				step: findingsJSON(t, false, nil, nil),
				gap: func(n int) string {
					return findingsJSON(t, true, []string{fmt.Sprintf("follow-up %d a", n), fmt.Sprintf("follow-up %d b", n)}, []string{"more study needed"})
				},
				synth: synthesisJSON(t),
			}
			report, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "fusion energy", Depth: types.DepthComprehensive})
			require.NoError(t, err)

			steps := report.ResearchSteps
			assert.Len(t, steps, DefaultMaxSteps)
			for i := 1; i < len(steps); i++ {
				assert.Greater(t, steps[i].StepNumber, steps[i-1].StepNumber)
			}
			planned := 0
			for _, s := range steps {
				if !s.FollowUp {
					planned++
				}
			}
			assert.Equal(t, n, planned, "every planned step still runs")
		})
	}
}

func TestRunStepAnalysisFailure(t *testing.T) {
	m := &fakeModel{plan: planJSON(t, 3), step: `{"keyFindings":["short"]}`, gap: noGaps(t), synth: synthesisJSON(t)}
	_, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthQuick})

	var ae *types.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, types.PhaseStepAnalysis, ae.Phase)
	assert.Equal(t, 1, ae.Step)
}

func TestRunGapAnalysisFailure(t *testing.T) {
	m := &fakeModel{
		plan: planJSON(t, 3),
		step: findingsJSON(t, false, nil, nil),
		gap: func(n int) string {
			if n == 2 {
				return `{"keyFindings":[],"sourceQuality":"stellar"}`
			}
			return findingsJSON(t, false, nil, nil)
		},
	}
	_, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthQuick})

	var ae *types.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, types.PhaseGapAnalysis, ae.Phase)
	assert.Equal(t, 2, ae.Step)
	assert.Contains(t, err.Error(), "sourceQuality")
}

func TestRunSynthesisFailure(t *testing.T) {
	bad := mustJSON(t, Synthesis{ExecutiveSummary: "Too short.", Confidence: 2})
	m := &fakeModel{plan: planJSON(t, 3), step: findingsJSON(t, false, nil, nil), gap: noGaps(t), synth: bad}
	report, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthQuick})
	assert.Nil(t, report)

	var ae *types.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, types.PhaseSynthesis, ae.Phase)
	for _, want := range []string{"executiveSummary", "confidence", "estimatedReadTime", "keyFindings: required"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRunSynthesisWithoutConfidence(t *testing.T) {
	synth := strings.Replace(synthesisJSON(t), `"confidence":0.8,`, "", 1)
	require.NotContains(t, synth, `"confidence"`)
	m := &fakeModel{plan: planJSON(t, 3), step: findingsJSON(t, false, nil, nil), gap: noGaps(t), synth: synth}
	report, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthQuick})
	assert.Nil(t, report)

	var ae *types.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, types.PhaseSynthesis, ae.Phase)
	assert.Contains(t, err.Error(), "confidence: required")
}

func TestRunSearchFailureAbortsRun(t *testing.T) {
	s := &fakeSearcher{err: &types.ValidationError{Field: "query", Message: "query is required"}}
	m := &fakeModel{plan: planJSON(t, 3)}
	_, err := newTestOrchestrator(s, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthQuick})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "step 1 search")
}

// cancellingExecutor cancels the run while executing the given step.
type cancellingExecutor struct {
	at     int
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingExecutor) ExecuteStep(ctx context.Context, step types.PlannedStep, _ string, _ types.ResearchQuery) (types.ResearchStep, error) {
	c.calls++
	if step.StepNumber == c.at {
		c.cancel()
		return types.ResearchStep{}, ctx.Err()
	}
	return types.ResearchStep{StepNumber: step.StepNumber, Query: step.Query, Results: []types.SearchResult{}}, nil
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &cancellingExecutor{at: 2, cancel: cancel}
	m := &fakeModel{plan: planJSON(t, 4), gap: noGaps(t), synth: synthesisJSON(t)}

	report, err := NewOrchestrator(exec, m, Options{}, nil).Run(ctx, types.ResearchQuery{OriginalQuery: "q"})
	assert.Nil(t, report)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, exec.calls, "no steps run after cancellation")
}

func TestRunTruncatesPlanToMaxSteps(t *testing.T) {
	m := &fakeModel{plan: planJSON(t, 6), step: findingsJSON(t, false, nil, nil), gap: noGaps(t), synth: synthesisJSON(t)}
	o := NewOrchestrator(NewExecutor(&fakeSearcher{}, m, ExecutorOptions{}, nil), m, Options{MaxSteps: 5}, nil)
	report, err := o.Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthComprehensive})
	require.NoError(t, err)
	assert.Len(t, report.ResearchSteps, 5)
}

func TestRunAccumulatesKnowledge(t *testing.T) {
	m := &fakeModel{plan: planJSON(t, 3), step: findingsJSON(t, false, nil, nil), gap: noGaps(t), synth: synthesisJSON(t)}
	_, err := newTestOrchestrator(&fakeSearcher{}, m).Run(context.Background(), types.ResearchQuery{OriginalQuery: "q", Depth: types.DepthQuick})
	require.NoError(t, err)

	var stepPrompts []string
	for _, p := range m.prompts {
		if p.System == analysisSystem {
			stepPrompts = append(stepPrompts, p.Prompt)
		}
	}
	require.Len(t, stepPrompts, 3)
	assert.NotContains(t, stepPrompts[0], "=== RESEARCH STEP 1 ===")
	assert.Contains(t, stepPrompts[2], "=== RESEARCH STEP 1 ===")
	assert.Contains(t, stepPrompts[2], "=== RESEARCH STEP 2 ===")

	last := m.prompts[len(m.prompts)-1]
	assert.Equal(t, synthesisSystem, last.System)
	assert.Contains(t, last.Prompt, "Research Steps Completed: 3")
}

// --- Consolidate and source selection ---

func TestConsolidate(t *testing.T) {
	steps := []types.ResearchStep{
		{Results: []types.SearchResult{
			{URL: "https://x", RelevanceScore: 0.4, Title: "first x"},
			{URL: "https://a", RelevanceScore: 0.6},
			{URL: "", RelevanceScore: 0.1, Title: "no url 1"},
		}},
		{Results: []types.SearchResult{
			{URL: "https://x", RelevanceScore: 0.8, Title: "second x"},
			{URL: "https://b", RelevanceScore: 0.6},
			{URL: "", RelevanceScore: 0.2, Title: "no url 2"},
		}},
	}

	got := Consolidate(steps, 50)
	require.Len(t, got, 5)

	var xs []types.SearchResult
	for _, r := range got {
		if r.URL == "https://x" {
			xs = append(xs, r)
		}
	}
	require.Len(t, xs, 1)
	assert.Equal(t, "first x", xs[0].Title, "first occurrence wins")
	assert.Equal(t, 0.4, xs[0].RelevanceScore)

	urls := make([]string, len(got))
	for i, r := range got {
		urls[i] = r.URL
	}
	assert.Equal(t, []string{"https://a", "https://b", "https://x", "", ""}, urls, "score order, stable on ties")
	assert.Equal(t, "no url 2", got[3].Title)
}

func TestConsolidateCap(t *testing.T) {
	var results []types.SearchResult
	for i := 0; i < 70; i++ {
		results = append(results, types.SearchResult{URL: fmt.Sprintf("https://r/%d", i), RelevanceScore: float64(i) / 100})
	}
	got := Consolidate([]types.ResearchStep{{Results: results}}, DefaultMaxSources)
	require.Len(t, got, 50)
	assert.Equal(t, "https://r/69", got[0].URL)
	assert.Equal(t, "https://r/20", got[49].URL)

	assert.Empty(t, Consolidate(nil, 50))
}

func TestSourcesForGaps(t *testing.T) {
	tests := []struct {
		gaps []string
		want []types.Source
	}{
		{[]string{"Lack of academic consensus"}, []types.Source{types.SourceArxiv, types.SourceWeb}},
		{[]string{"Recent market data"}, []types.Source{types.SourceWeb, types.SourceArxiv}},
		{[]string{"Clinical evidence"}, []types.Source{types.SourcePubmed, types.SourceWeb}},
		{[]string{"HEALTH outcomes"}, []types.Source{types.SourcePubmed, types.SourceWeb}},
		{[]string{"clinical", "study design"}, []types.Source{types.SourceArxiv, types.SourceWeb}},
		{[]string{"pricing"}, []types.Source{types.SourceWeb, types.SourceArxiv}},
		{nil, []types.Source{types.SourceWeb, types.SourceArxiv}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourcesForGaps(tt.gaps), "gaps %v", tt.gaps)
	}
}

func TestAnalysisErrorUnwrapsSchemaError(t *testing.T) {
	err := error(&types.AnalysisError{Phase: types.PhaseSynthesis, Err: &llm.SchemaError{Violations: []string{"x"}}})
	var se *llm.SchemaError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "synthesis failed: model output does not match schema: x", err.Error())
}
