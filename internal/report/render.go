// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Format names a report rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatText     Format = "text"
)

// ParseFormat resolves a format name or common alias. Empty means markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", &types.ValidationError{Field: "format", Message: fmt.Sprintf("unknown report format %q (want markdown, json, yaml, or text)", s)}
	}
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatText:
		return "txt"
	default:
		return "md"
	}
}

// Render renders r in format f.
func Render(r *types.ResearchReport, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(r)
	case FormatYAML:
		return YAML(r)
	case FormatText:
		return []byte(Text(r)), nil
	case FormatMarkdown, "":
		return []byte(Markdown(r)), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", f)
	}
}

// JSON renders the full report as indented JSON.
func JSON(r *types.ResearchReport) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// YAML renders the full report as YAML.
func YAML(r *types.ResearchReport) ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	return data, nil
}

// Markdown renders the report layout as a Markdown document.
func Markdown(r *types.ResearchReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", Title(r))
	fmt.Fprintf(&sb, "_Depth: %s | Created: %s_\n\n", r.Query.Depth, r.CreatedAt.Format("2006-01-02 15:04 MST"))

	blocks := Layout(r)
	for i, b := range blocks {
		switch b.Kind {
		case Heading1, Heading2:
			sb.WriteString("## " + b.PlainText() + "\n\n")
		case Heading3:
			sb.WriteString("### " + b.PlainText() + "\n\n")
		case Paragraph:
			sb.WriteString(markdownSpans(b.Spans) + "\n\n")
		case Bullet:
			sb.WriteString("- " + markdownSpans(b.Spans) + "\n")
			if i+1 == len(blocks) || blocks[i+1].Kind != Bullet {
				sb.WriteString("\n")
			}
		case Divider:
			sb.WriteString("---\n\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func markdownSpans(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		text := s.Text
		if text == "" {
			continue
		}
		if s.Link != "" {
			text = fmt.Sprintf("[%s](%s)", text, s.Link)
		}
		// Emphasis markers must hug the text, so surrounding spaces move outside.
		lead, core, trail := splitSpace(text)
		switch {
		case s.Bold && core != "":
			core = "**" + core + "**"
		case s.Italic && core != "":
			core = "_" + core + "_"
		}
		sb.WriteString(lead + core + trail)
	}
	return sb.String()
}

func splitSpace(s string) (lead, core, trail string) {
	core = strings.TrimLeft(s, " ")
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRight(core, " ")
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

// Text renders the report layout as plain text for terminals.
func Text(r *types.ResearchReport) string {
	var sb strings.Builder
	title := Title(r)
	sb.WriteString(title + "\n" + strings.Repeat("=", utf8.RuneCountInString(title)) + "\n\n")

	for _, b := range Layout(r) {
		text := b.PlainText()
		switch b.Kind {
		case Heading1, Heading2:
			sb.WriteString(strings.ToUpper(text) + "\n\n")
		case Heading3:
			sb.WriteString(text + "\n")
		case Paragraph:
			sb.WriteString(text + "\n\n")
		case Bullet:
			sb.WriteString("  • " + text + "\n")
		case Divider:
			sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
