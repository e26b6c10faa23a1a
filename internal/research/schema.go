// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/pkg/types"
)

// violations collects schema failures in the order they are found.
type violations []string

func (v *violations) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v *violations) required(field string, present bool) {
	if !present {
		v.add("%s: required", field)
	}
}

func (v *violations) minLen(field, s string, n int) {
	if utf8.RuneCountInString(s) < n {
		v.add("%s: must be at least %d characters", field, n)
	}
}

// each applies minLen to every element and requires the array itself.
func (v *violations) each(field string, items []string, n int) {
	v.required(field, items != nil)
	for i, s := range items {
		v.minLen(fmt.Sprintf("%s[%d]", field, i), s, n)
	}
}

func (v *violations) between(field string, x, lo, hi float64) {
	if x < lo || x > hi {
		v.add("%s: must be between %g and %g", field, lo, hi)
	}
}

// missing records required scalar keys absent from a decoded reply. Arrays
// are checked through nil instead.
func (v *violations) missing(prefix string, keys []string) {
	for _, k := range keys {
		v.add("%s%s: required", prefix, k)
	}
}

// absentKeys returns the keys that are missing or null in the JSON object.
func absentKeys(data []byte, keys ...string) ([]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	var out []string
	for _, k := range keys {
		if raw, ok := fields[k]; !ok || string(raw) == "null" {
			out = append(out, k)
		}
	}
	return out, nil
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &llm.SchemaError{Violations: v}
}

// planReply is the planning call's reply.
type planReply struct {
	types.ResearchPlan

	absent     []string
	stepAbsent map[int][]string
}

func (p *planReply) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &p.ResearchPlan); err != nil {
		return err
	}
	absent, err := absentKeys(data, "estimatedDuration")
	if err != nil {
		return err
	}
	p.absent = absent

	var raw struct {
		Steps []json.RawMessage `json:"researchSteps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.stepAbsent = nil
	for i, step := range raw.Steps {
		keys, err := absentKeys(step, "stepNumber", "focusArea")
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if p.stepAbsent == nil {
				p.stepAbsent = make(map[int][]string)
			}
			p.stepAbsent[i] = keys
		}
	}
	return nil
}

// Validate checks field constraints. The depth-dependent step count is
// checked separately by checkStepCount.
func (p planReply) Validate() error {
	var v violations
	v.required("researchSteps", p.Steps != nil)
	for i, s := range p.Steps {
		field := fmt.Sprintf("researchSteps[%d]", i)
		v.missing(field+".", p.stepAbsent[i])
		v.minLen(field+".query", s.Query, 10)
		v.minLen(field+".rationale", s.Rationale, 50)
		v.required(field+".expectedSources", s.ExpectedSources != nil)
		switch s.Priority {
		case types.PriorityHigh, types.PriorityMedium, types.PriorityLow:
		default:
			v.add("%s.priority: must be one of high, medium, low", field)
		}
	}
	v.minLen("methodology", p.Methodology, 100)
	v.missing("", p.absent)
	v.required("researchObjectives", p.ResearchObjectives != nil)
	return v.err()
}

func checkStepCount(plan types.ResearchPlan, depth types.Depth) error {
	lo, hi := depth.StepRange()
	if n := len(plan.Steps); n < lo || n > hi {
		return &llm.SchemaError{Violations: []string{
			fmt.Sprintf("researchSteps: %s research needs %d-%d steps, got %d", depth, lo, hi, n),
		}}
	}
	return nil
}

// SourceQuality grades the evidence behind a findings analysis.
type SourceQuality string

const (
	QualityExcellent SourceQuality = "excellent"
	QualityGood      SourceQuality = "good"
	QualityModerate  SourceQuality = "moderate"
	QualityPoor      SourceQuality = "poor"
)

// Findings is the reply shape shared by step analysis and gap analysis.
type Findings struct {
	KeyFindings       []string      `json:"keyFindings"`
	QuestionsRaised   []string      `json:"questionsRaised"`
	NextSearchQueries []string      `json:"nextSearchQueries"`
	ConfidenceLevel   float64       `json:"confidenceLevel"`
	NeedsMoreResearch bool          `json:"needsMoreResearch"`
	InformationGaps   []string      `json:"informationGaps"`
	SourceQuality     SourceQuality `json:"sourceQuality"`

	absent []string
}

func (f *Findings) UnmarshalJSON(data []byte) error {
	type plain Findings
	if err := json.Unmarshal(data, (*plain)(f)); err != nil {
		return err
	}
	absent, err := absentKeys(data, "confidenceLevel", "needsMoreResearch")
	f.absent = absent
	return err
}

func (f Findings) Validate() error {
	var v violations
	v.missing("", f.absent)
	v.each("keyFindings", f.KeyFindings, 20)
	v.required("questionsRaised", f.QuestionsRaised != nil)
	v.required("nextSearchQueries", f.NextSearchQueries != nil)
	v.between("confidenceLevel", f.ConfidenceLevel, 0, 1)
	v.required("informationGaps", f.InformationGaps != nil)
	switch f.SourceQuality {
	case QualityExcellent, QualityGood, QualityModerate, QualityPoor:
	default:
		v.add("sourceQuality: must be one of excellent, good, moderate, poor")
	}
	return v.err()
}

// followUpQueries returns the non-blank proposed queries.
func (f Findings) followUpQueries() []string {
	var out []string
	for _, q := range f.NextSearchQueries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Synthesis is the final report call's reply.
type Synthesis struct {
	ExecutiveSummary         string   `json:"executiveSummary"`
	KeyFindings              []string `json:"keyFindings"`
	Methodology              string   `json:"methodology"`
	Limitations              []string `json:"limitations"`
	Recommendations          []string `json:"recommendations"`
	Confidence               float64  `json:"confidence"`
	EstimatedReadTime        float64  `json:"estimatedReadTime"`
	FutureResearchDirections []string `json:"futureResearchDirections"`

	absent []string
}

func (s *Synthesis) UnmarshalJSON(data []byte) error {
	type plain Synthesis
	if err := json.Unmarshal(data, (*plain)(s)); err != nil {
		return err
	}
	absent, err := absentKeys(data, "confidence")
	s.absent = absent
	return err
}

func (s Synthesis) Validate() error {
	var v violations
	v.missing("", s.absent)
	v.minLen("executiveSummary", s.ExecutiveSummary, 200)
	v.each("keyFindings", s.KeyFindings, 30)
	v.minLen("methodology", s.Methodology, 150)
	v.each("limitations", s.Limitations, 20)
	v.each("recommendations", s.Recommendations, 25)
	v.between("confidence", s.Confidence, 0, 1)
	if s.EstimatedReadTime < 3 {
		v.add("estimatedReadTime: must be at least 3")
	}
	v.required("futureResearchDirections", s.FutureResearchDirections != nil)
	return v.err()
}
