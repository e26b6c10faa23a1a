// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

func sampleReport() *types.ResearchReport {
	return &types.ResearchReport{
		ID:    "research_1234",
		Query: types.ResearchQuery{OriginalQuery: "solid-state batteries", Depth: types.DepthQuick},
		ResearchSteps: []types.ResearchStep{
			{StepNumber: 1, Query: "solid electrolytes", Rationale: "Establish the materials landscape.", KeyFindings: []string{"Sulfides conduct well", "Oxides are stable"}},
			{StepNumber: 2, Query: "dendrite suppression", Rationale: "Close the dendrite gap.", FollowUp: true},
		},
		ExecutiveSummary: "Solid-state batteries are close to commercial use.",
		KeyFindings:      []string{"Energy density gains are real."},
		Methodology:      "Searched preprints and the web.",
		Recommendations:  []string{"Track pilot lines."},
		Sources: []types.SearchResult{
			{Title: "Sulfide electrolytes", URL: "https://arxiv.org/abs/1", Snippet: "A review.", Source: types.SourceArxiv},
			{Title: "Industry news", URL: "https://example.com/news", Source: types.SourceWeb},
			{Title: "Oxide electrolytes", URL: "https://arxiv.org/abs/2", Source: types.SourceArxiv},
		},
		Confidence:        0.786,
		CreatedAt:         time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC),
		EstimatedReadTime: 5,
	}
}

func headings(blocks []Block) []string {
	var out []string
	for _, b := range blocks {
		if b.Kind == Heading1 || b.Kind == Heading2 || b.Kind == Heading3 {
			out = append(out, b.PlainText())
		}
	}
	return out
}

func TestLayoutSections(t *testing.T) {
	blocks := Layout(sampleReport())

	assert.Equal(t, []string{
		"Executive Summary",
		"Key Findings",
		"Research Process",
		"Step 1: solid electrolytes",
		"Step 2: dendrite suppression (follow-up)",
		"Methodology",
		"Recommendations",
		"Sources",
		"arXiv Sources",
		"Web Search Sources",
	}, headings(blocks), "empty limitations and future directions are omitted")

	last := blocks[len(blocks)-1]
	assert.Equal(t, "Research ID: research_1234 | Confidence: 79% | Read Time: 5 min", last.PlainText())
	assert.Equal(t, Divider, blocks[len(blocks)-2].Kind)
}

func TestLayoutGroupsSourcesInFirstSeenOrder(t *testing.T) {
	var bullets []string
	inSources := false
	for _, b := range Layout(sampleReport()) {
		if b.Kind == Heading2 {
			inSources = b.PlainText() == "Sources"
		}
		if inSources && b.Kind == Bullet {
			bullets = append(bullets, b.Spans[0].Text)
		}
	}
	assert.Equal(t, []string{"Sulfide electrolytes", "Oxide electrolytes", "Industry news"}, bullets)
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	for _, want := range []string{
		"# Research: solid-state batteries\n",
		"_Depth: quick | Created: 2026-03-04 05:06 UTC_",
		"## Executive Summary\n\nSolid-state batteries are close to commercial use.\n",
		"- Energy density gains are real.\n\n## Research Process",
		"### Step 1: solid electrolytes\n\nEstablish the materials landscape.\n\n**Key findings:** Sulfides conduct well; Oxides are stable\n",
		"### arXiv Sources\n\n- **Sulfide electrolytes** - [https://arxiv.org/abs/1](https://arxiv.org/abs/1)\n\n_A review._\n",
		"---\n\n**Research ID:** research_1234 | **Confidence:** 79% | **Read Time:** 5 min\n",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "## Limitations")
	assert.True(t, strings.HasSuffix(md, "min\n"))
}

func TestText(t *testing.T) {
	txt := Text(sampleReport())
	assert.True(t, strings.HasPrefix(txt, "Research: solid-state batteries\n===="))
	assert.Contains(t, txt, "EXECUTIVE SUMMARY\n\n")
	assert.Contains(t, txt, "  • Energy density gains are real.\n")
	assert.NotContains(t, txt, "**")
}

func TestRenderStructured(t *testing.T) {
	r := sampleReport()

	data, err := Render(r, FormatJSON)
	require.NoError(t, err)
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, "research_1234", fromJSON["id"])
	assert.Contains(t, fromJSON, "executiveSummary")

	data, err = Render(r, FormatYAML)
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "research_1234", fromYAML["id"])
	assert.Contains(t, fromYAML, "executive_summary")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
	}{
		{"", FormatMarkdown, "md"},
		{"MD", FormatMarkdown, "md"},
		{"json", FormatJSON, "json"},
		{"yml", FormatYAML, "yaml"},
		{"txt", FormatText, "txt"},
	}
	for _, tt := range tests {
		f, err := ParseFormat(tt.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", tt.in, err)
		}
		if f != tt.want || f.Ext() != tt.ext {
			t.Errorf("ParseFormat(%q) = %q (.%s), want %q (.%s)", tt.in, f, f.Ext(), tt.want, tt.ext)
		}
	}

	_, err := ParseFormat("pdf")
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}
