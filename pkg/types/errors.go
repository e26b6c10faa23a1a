// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ValidationError reports malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProviderError reports one provider's transport or parse failure.
type ProviderError struct {
	Source  Source
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing credential at construction time.
type ConfigurationError struct {
	// Variable is the environment variable (or secret file) that must be set.
	Variable  string
	Component string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s environment variable is required for %s", e.Variable, e.Component)
}

// Phases of an orchestration run that call the language model.
const (
	PhasePlan         = "plan"
	PhaseStepAnalysis = "step-analysis"
	PhaseGapAnalysis  = "gap-analysis"
	PhaseSynthesis    = "synthesis"
)

// AnalysisError reports that a language-model call failed, usually because
// its output did not satisfy the required schema. It is fatal to the run.
type AnalysisError struct {
	Phase string
	// Step is the 1-based step number, or 0 for run-level phases.
	Step int
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("%s failed at step %d: %v", e.Phase, e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// DeliveryError reports that a finished report could not be delivered. The
// report itself stays valid.
type DeliveryError struct {
	Destination string
	Err         error
}

func (e *DeliveryError) Error() string {
	if e.Destination == "" {
		return fmt.Sprintf("report delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("report delivery to %s failed: %v", e.Destination, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
