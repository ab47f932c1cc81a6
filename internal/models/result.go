package models

import (
	"fmt"
	"time"
)

// Task outcome status constants
const (
	StatusSuccess = "success" // Answer extracted (possibly best-effort after a wait timeout)
	StatusSkipped = "skipped" // Model was not offered by the selector
	StatusFailed  = "failed"  // Any other per-task failure
)

// ElapsedSentinel is written in place of a duration when a task never
// reached the submit step.
const ElapsedSentinel = "-"

// Completion signal names carried on successful outcomes.
const (
	SignalBusyIndicator = "busy-indicator"
	SignalTextStable    = "text-stable"
	SignalNone          = "none"
)

// TaskOutcome is the durable record produced for exactly one Task.
type TaskOutcome struct {
	Task       Task          // The task this outcome belongs to
	Status     string        // success, skipped or failed
	Elapsed    time.Duration // Submit-to-extraction wall clock time
	HasElapsed bool          // False when Elapsed is meaningless
	Text       string        // Extracted answer or a failure description
	Signal     string        // Completion signal used (success only)
	TimedOut   bool          // Completion wait hit its bound
	RecordedAt time.Time     // When the outcome was produced
}

// ElapsedField renders the elapsed column: seconds with one decimal, or the
// sentinel when there is no duration.
func (o TaskOutcome) ElapsedField() string {
	if !o.HasElapsed {
		return ElapsedSentinel
	}
	return fmt.Sprintf("%.1fs", o.Elapsed.Seconds())
}

// IsSuccess reports whether the outcome carries an extracted answer.
func (o TaskOutcome) IsSuccess() bool {
	return o.Status == StatusSuccess
}

// RunSummary represents the aggregate result of one run over the matrix
type RunSummary struct {
	RunID      string        // Unique run identifier
	Total      int           // Number of tasks in the matrix
	Succeeded  int           // Outcomes with StatusSuccess
	Skipped    int           // Outcomes with StatusSkipped
	Failed     int           // Outcomes with StatusFailed
	Duration   time.Duration // Total run time
	OutputPath string        // Result file written by the run
}

// Recorded returns how many outcomes have been produced so far.
func (s RunSummary) Recorded() int {
	return s.Succeeded + s.Skipped + s.Failed
}

// Add counts one outcome.
func (s *RunSummary) Add(outcome TaskOutcome) {
	switch outcome.Status {
	case StatusSuccess:
		s.Succeeded++
	case StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}
