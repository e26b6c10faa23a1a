// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders finished research reports. Layout builds a
// format-neutral block document that both the Markdown renderer and the
// Notion deliverer consume, so every destination shows the same structure.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/deep-research/internal/search"
	"github.com/pdiddy/deep-research/pkg/types"
)

// BlockKind is the type of one layout block.
type BlockKind int

const (
	Heading1 BlockKind = iota + 1
	Heading2
	Heading3
	Paragraph
	Bullet
	Divider
)

// Span is a run of text with inline formatting.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Link   string
}

// Block is one element of a report layout.
type Block struct {
	Kind  BlockKind
	Spans []Span
}

// PlainText concatenates the block's spans.
func (b Block) PlainText() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func heading(kind BlockKind, text string) Block {
	return Block{Kind: kind, Spans: []Span{{Text: text}}}
}

func paragraph(spans ...Span) Block {
	return Block{Kind: Paragraph, Spans: spans}
}

func bullet(spans ...Span) Block {
	return Block{Kind: Bullet, Spans: spans}
}

// Title is the page title for a report.
func Title(r *types.ResearchReport) string {
	return "Research: " + r.Query.OriginalQuery
}

// ConfidencePercent is the report confidence as a rounded percentage.
func ConfidencePercent(r *types.ResearchReport) int {
	return int(math.Round(r.Confidence * 100))
}

// Layout arranges a report into blocks: executive summary, key findings,
// research process with one heading per step, methodology, recommendations,
// limitations, future directions, sources grouped by provider, and a
// metadata footer.
func Layout(r *types.ResearchReport) []Block {
	var blocks []Block

	blocks = append(blocks,
		heading(Heading1, "Executive Summary"),
		paragraph(Span{Text: r.ExecutiveSummary}),
		heading(Heading2, "Key Findings"),
	)
	for _, f := range r.KeyFindings {
		blocks = append(blocks, bullet(Span{Text: f}))
	}

	blocks = append(blocks,
		heading(Heading2, "Research Process"),
		paragraph(Span{Text: fmt.Sprintf("This research was conducted through %d systematic steps using multiple academic and web sources.", len(r.ResearchSteps))}),
	)
	for _, step := range r.ResearchSteps {
		title := fmt.Sprintf("Step %d: %s", step.StepNumber, step.Query)
		if step.FollowUp {
			title += " (follow-up)"
		}
		blocks = append(blocks, heading(Heading3, title), paragraph(Span{Text: step.Rationale}))
		if len(step.KeyFindings) > 0 {
			blocks = append(blocks, paragraph(
				Span{Text: "Key findings: ", Bold: true},
				Span{Text: strings.Join(step.KeyFindings, "; ")},
			))
		}
	}

	blocks = append(blocks,
		heading(Heading2, "Methodology"),
		paragraph(Span{Text: r.Methodology}),
	)
	blocks = appendList(blocks, "Recommendations", r.Recommendations)
	blocks = appendList(blocks, "Limitations", r.Limitations)
	blocks = appendList(blocks, "Future Research Directions", r.FutureResearchDirections)

	blocks = append(blocks, heading(Heading2, "Sources"))
	for _, group := range groupSources(r.Sources) {
		blocks = append(blocks, heading(Heading3, sourceName(group.source)+" Sources"))
		for _, s := range group.results {
			spans := []Span{{Text: s.Title, Bold: true}}
			if s.URL != "" {
				spans = append(spans, Span{Text: " - "}, Span{Text: s.URL, Link: s.URL})
			}
			blocks = append(blocks, bullet(spans...))
			if s.Snippet != "" {
				blocks = append(blocks, paragraph(Span{Text: s.Snippet, Italic: true}))
			}
		}
	}

	blocks = append(blocks,
		Block{Kind: Divider},
		paragraph(
			Span{Text: "Research ID: ", Bold: true},
			Span{Text: r.ID + " | "},
			Span{Text: "Confidence: ", Bold: true},
			Span{Text: fmt.Sprintf("%d%% | ", ConfidencePercent(r))},
			Span{Text: "Read Time: ", Bold: true},
			Span{Text: fmt.Sprintf("%d min", r.EstimatedReadTime)},
		),
	)
	return blocks
}

func appendList(blocks []Block, title string, items []string) []Block {
	if len(items) == 0 {
		return blocks
	}
	blocks = append(blocks, heading(Heading2, title))
	for _, item := range items {
		blocks = append(blocks, bullet(Span{Text: item}))
	}
	return blocks
}

type sourceGroup struct {
	source  types.Source
	results []types.SearchResult
}

// groupSources groups results by provider in order of first appearance.
func groupSources(results []types.SearchResult) []sourceGroup {
	var groups []sourceGroup
	index := make(map[types.Source]int)
	for _, r := range results {
		i, ok := index[r.Source]
		if !ok {
			i = len(groups)
			index[r.Source] = i
			groups = append(groups, sourceGroup{source: r.Source})
		}
		groups[i].results = append(groups[i].results, r)
	}
	return groups
}

func sourceName(s types.Source) string {
	for _, info := range search.Sources() {
		if info.ID == s {
			return info.Name
		}
	}
	return string(s)
}
