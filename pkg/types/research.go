// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// Depth controls how many planned steps a research run takes.
type Depth string

const (
	DepthQuick         Depth = "quick"
	DepthStandard      Depth = "standard"
	DepthComprehensive Depth = "comprehensive"
)

// ParseDepth validates a depth string. Empty means standard.
func ParseDepth(s string) (Depth, error) {
	switch d := Depth(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DepthStandard, nil
	case DepthQuick, DepthStandard, DepthComprehensive:
		return d, nil
	default:
		return "", &ValidationError{Field: "depth", Message: fmt.Sprintf("unknown depth %q (want quick, standard, or comprehensive)", s)}
	}
}

// StepRange returns the inclusive bounds on planned steps for d.
func (d Depth) StepRange() (lo, hi int) {
	switch d {
	case DepthQuick:
		return 3, 4
	case DepthComprehensive:
		return 6, 8
	default:
		return 4, 6
	}
}

// ResearchQuery is the immutable input to one orchestration run.
type ResearchQuery struct {
	OriginalQuery string   `json:"originalQuery" yaml:"original_query"`
	Context       string   `json:"context,omitempty" yaml:"context,omitempty"`
	Depth         Depth    `json:"depth" yaml:"depth"`
	FocusAreas    []string `json:"focusAreas,omitempty" yaml:"focus_areas,omitempty"`
	ExcludeTopics []string `json:"excludeTopics,omitempty" yaml:"exclude_topics,omitempty"`
}

// Validate checks the query and fills the default depth.
func (q *ResearchQuery) Validate() error {
	q.OriginalQuery = strings.TrimSpace(q.OriginalQuery)
	if q.OriginalQuery == "" {
		return &ValidationError{Field: "query", Message: "query is required"}
	}
	d, err := ParseDepth(string(q.Depth))
	if err != nil {
		return err
	}
	q.Depth = d
	return nil
}

// Priority ranks planned steps.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PlannedStep is one step of a research plan, either produced by the
// planning call or injected as a follow-up.
type PlannedStep struct {
	StepNumber      int      `json:"stepNumber" yaml:"step_number"`
	Query           string   `json:"query" yaml:"query"`
	Rationale       string   `json:"rationale" yaml:"rationale"`
	ExpectedSources []string `json:"expectedSources" yaml:"expected_sources"`
	FocusArea       string   `json:"focusArea" yaml:"focus_area"`
	Priority        Priority `json:"priority" yaml:"priority"`

	// Sources overrides the provider subset. Follow-up steps set it from the
	// gap text; planned steps leave it empty and use the default subset.
	Sources []Source `json:"-" yaml:"-"`
}

// ResearchPlan is the validated output of the planning call.
type ResearchPlan struct {
	Steps              []PlannedStep `json:"researchSteps" yaml:"research_steps"`
	Methodology        string        `json:"methodology" yaml:"methodology"`
	EstimatedDuration  string        `json:"estimatedDuration" yaml:"estimated_duration"`
	ResearchObjectives []string      `json:"researchObjectives" yaml:"research_objectives"`
}

// SearchResult is a normalized, scored result as used inside a research run.
type SearchResult struct {
	Title          string   `json:"title" yaml:"title"`
	URL            string   `json:"url" yaml:"url"`
	Snippet        string   `json:"snippet" yaml:"snippet"`
	Source         Source   `json:"source" yaml:"source"`
	RelevanceScore float64  `json:"relevanceScore" yaml:"relevance_score"`
	KeyPoints      []string `json:"keyPoints" yaml:"key_points"`
	PublishDate    string   `json:"publishDate,omitempty" yaml:"publish_date,omitempty"`
	Authors        []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Raw is the provider-specific result this entry was derived from.
	Raw Result `json:"-" yaml:"-"`
}

// ResearchStep records one executed query+analysis cycle.
type ResearchStep struct {
	StepNumber      int            `json:"stepNumber" yaml:"step_number"`
	Query           string         `json:"query" yaml:"query"`
	Rationale       string         `json:"rationale" yaml:"rationale"`
	Sources         []Source       `json:"sources" yaml:"sources"`
	Results         []SearchResult `json:"results" yaml:"results"`
	KeyFindings     []string       `json:"keyFindings" yaml:"key_findings"`
	QuestionsRaised []string       `json:"questionsRaised" yaml:"questions_raised"`
	FollowUp        bool           `json:"followUp,omitempty" yaml:"follow_up,omitempty"`

	// Duration is in milliseconds and is set by the orchestrator.
	Duration int64 `json:"duration" yaml:"duration"`
}

// ResearchReport is the final product of one orchestration run.
type ResearchReport struct {
	ID                       string         `json:"id" yaml:"id"`
	Query                    ResearchQuery  `json:"query" yaml:"query"`
	ResearchSteps            []ResearchStep `json:"researchSteps" yaml:"research_steps"`
	ExecutiveSummary         string         `json:"executiveSummary" yaml:"executive_summary"`
	KeyFindings              []string       `json:"keyFindings" yaml:"key_findings"`
	Methodology              string         `json:"methodology" yaml:"methodology"`
	Limitations              []string       `json:"limitations" yaml:"limitations"`
	Recommendations          []string       `json:"recommendations" yaml:"recommendations"`
	FutureResearchDirections []string       `json:"futureResearchDirections,omitempty" yaml:"future_research_directions,omitempty"`
	Sources                  []SearchResult `json:"sources" yaml:"sources"`
	Confidence               float64        `json:"confidence" yaml:"confidence"`
	CreatedAt                time.Time      `json:"createdAt" yaml:"created_at"`

	// EstimatedReadTime is in minutes.
	EstimatedReadTime int `json:"estimatedReadTime" yaml:"estimated_read_time"`

	// TotalDuration is in milliseconds.
	TotalDuration int64 `json:"totalDuration" yaml:"total_duration"`
}
