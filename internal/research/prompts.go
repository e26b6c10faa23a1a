// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	planSystem      = "You are a world-class research strategist who designs comprehensive research methodologies for complex topics."
	analysisSystem  = "You are a distinguished research analyst with expertise in synthesizing complex information from multiple sources."
	gapSystem       = "You are a strategic research coordinator who determines optimal research directions to maximize insight value and completeness."
	synthesisSystem = "You are a senior research director known for producing publication-quality research reports that inform strategic decisions."
)

var funcs = template.FuncMap{
	"join":    strings.Join,
	"add":     func(a, b int) int { return a + b },
	"sources": joinSources,
}

func joinSources(ss []types.Source) string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}

const findingsFormat = `Respond with a single JSON object and no other text:
{
  "keyFindings": [string, each at least 20 characters],
  "questionsRaised": [string],
  "nextSearchQueries": [string],
  "confidenceLevel": number between 0 and 1,
  "needsMoreResearch": boolean,
  "informationGaps": [string],
  "sourceQuality": "excellent" | "good" | "moderate" | "poor"
}`

var planPromptTmpl = template.Must(template.New("plan").Funcs(funcs).Parse(`You are an expert research strategist creating a comprehensive, multi-step research plan.

RESEARCH QUERY: "{{.Query.OriginalQuery}}"
RESEARCH DEPTH: {{.Query.Depth}}
CONTEXT: {{if .Query.Context}}{{.Query.Context}}{{else}}None provided{{end}}
FOCUS AREAS: {{if .Query.FocusAreas}}{{join .Query.FocusAreas ", "}}{{else}}General comprehensive coverage{{end}}
{{- if .Query.ExcludeTopics}}
EXCLUDED TOPICS: {{join .Query.ExcludeTopics ", "}}
{{- end}}

Approach the topic from technical, economic, social, and practical perspectives. Cover historical
context, the current state, and future implications. Each step should build on the previous ones
and have a clear, specific objective; rationales explain why the step matters.

Generate a research plan with {{.Min}}-{{.Max}} research steps.

Respond with a single JSON object and no other text:
{
  "researchSteps": [
    {
      "stepNumber": number,
      "query": string of at least 10 characters,
      "rationale": string of at least 50 characters,
      "expectedSources": [string],
      "focusArea": string,
      "priority": "high" | "medium" | "low"
    }
  ],
  "methodology": string of at least 100 characters,
  "estimatedDuration": string,
  "researchObjectives": [string]
}
`))

var stepPromptTmpl = template.Must(template.New("step").Funcs(funcs).Parse(`You are a senior research analyst analyzing the findings of one research step.

RESEARCH CONTEXT:
Original Query: "{{.Query.OriginalQuery}}"
Current Research Step: "{{.StepQuery}}"
Research Depth: {{.Query.Depth}}

ACCUMULATED KNOWLEDGE:
{{.Knowledge}}

CURRENT SEARCH RESULTS:
{{range $i, $r := .Results}}
[{{add $i 1}}] {{$r.Title}}
Source: {{$r.Source}} | URL: {{$r.URL}}
Content: {{$r.Snippet}}
Key Points: {{join $r.KeyPoints "; "}}
{{else}}
No results were returned for this step.
{{end}}
Extract the most significant findings, connect them into coherent insights, assess source
credibility, identify what critical information is still missing, and formulate specific
questions for further investigation.

` + findingsFormat + `
`))

var gapPromptTmpl = template.Must(template.New("gap").Funcs(funcs).Parse(`You are a research coordinator determining the next strategic research steps.

RESEARCH OVERVIEW:
Original Query: "{{.Query.OriginalQuery}}"
Completed Step: {{.Step.StepNumber}} - "{{.Step.Query}}"
Research Depth Target: {{.Query.Depth}}

CURRENT STEP ANALYSIS:
Rationale: {{.Step.Rationale}}
Key Findings: {{join .Step.KeyFindings " | "}}
Questions Raised: {{join .Step.QuestionsRaised " | "}}
Sources Used: {{sources .Step.Sources}}

ACCUMULATED RESEARCH:
{{.Knowledge}}

Decide whether critical gaps prevent a comprehensive understanding. If additional research is
needed, set needsMoreResearch and propose specific follow-up queries that address the most
critical information gaps.

` + findingsFormat + `
`))

var synthesisPromptTmpl = template.Must(template.New("synthesis").Funcs(funcs).Parse(`You are creating a comprehensive research report of professional quality.

RESEARCH OVERVIEW:
Query: "{{.Query.OriginalQuery}}"
Research Depth: {{.Query.Depth}}
Research Steps Completed: {{len .Steps}}
Total Sources Analyzed: {{.TotalResults}}
Research Duration: {{.Seconds}} seconds

COMPREHENSIVE RESEARCH DATA:
{{.Knowledge}}

DETAILED FINDINGS BY STEP:
{{range .Steps}}
Step {{.StepNumber}}: {{.Query}}
Duration: {{.Duration}}ms | Sources: {{sources .Sources}}
Key Findings: {{join .KeyFindings " | "}}
Questions Raised: {{join .QuestionsRaised " | "}}
{{end}}
REPORT REQUIREMENTS:
1. Executive summary of 200-400 words that states the key insights and implications.
2. Five to eight key findings, each at least 30 characters, supported by the sources.
3. Research methodology of at least 150 characters: approach, source selection, analysis.
4. Three to five limitations, each at least 20 characters.
5. Three to six recommendations, each at least 25 characters.

Respond with a single JSON object and no other text:
{
  "executiveSummary": string of at least 200 characters,
  "keyFindings": [string],
  "methodology": string,
  "limitations": [string],
  "recommendations": [string],
  "confidence": number between 0 and 1,
  "estimatedReadTime": number of minutes, at least 3,
  "futureResearchDirections": [string]
}
`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func planPrompt(q types.ResearchQuery) (string, error) {
	lo, hi := q.Depth.StepRange()
	return render(planPromptTmpl, struct {
		Query    types.ResearchQuery
		Min, Max int
	}{q, lo, hi})
}

func stepPrompt(q types.ResearchQuery, stepQuery string, results []types.SearchResult, knowledge string) (string, error) {
	return render(stepPromptTmpl, struct {
		Query     types.ResearchQuery
		StepQuery string
		Results   []types.SearchResult
		Knowledge string
	}{q, stepQuery, results, knowledge})
}

func gapPrompt(q types.ResearchQuery, step types.ResearchStep, knowledge string) (string, error) {
	return render(gapPromptTmpl, struct {
		Query     types.ResearchQuery
		Step      types.ResearchStep
		Knowledge string
	}{q, step, knowledge})
}

func synthesisPrompt(q types.ResearchQuery, steps []types.ResearchStep, knowledge string) (string, error) {
	total := 0
	var ms int64
	for _, s := range steps {
		total += len(s.Results)
		ms += s.Duration
	}
	return render(synthesisPromptTmpl, struct {
		Query        types.ResearchQuery
		Steps        []types.ResearchStep
		TotalResults int
		Seconds      float64
		Knowledge    string
	}{q, steps, total, float64(ms) / 1000, knowledge})
}

// formatStep renders a step as a block of the accumulated knowledge text.
func formatStep(s types.ResearchStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== RESEARCH STEP %d ===\n", s.StepNumber)
	fmt.Fprintf(&b, "Query: %s\n", s.Query)
	fmt.Fprintf(&b, "Rationale: %s\n", s.Rationale)
	fmt.Fprintf(&b, "Duration: %dms\n", s.Duration)
	fmt.Fprintf(&b, "Sources: %s\n", joinSources(s.Sources))
	b.WriteString("Key Findings:\n")
	for _, f := range s.KeyFindings {
		fmt.Fprintf(&b, "  • %s\n", f)
	}
	b.WriteString("Questions Raised:\n")
	for _, q := range s.QuestionsRaised {
		fmt.Fprintf(&b, "  ? %s\n", q)
	}
	fmt.Fprintf(&b, "Results Count: %d\n---\n", len(s.Results))
	return b.String()
}
