package executor

import (
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/jg-fukuda/auto-genspark2/internal/sink"
)

// RunContext is the run-scoped state handed to every task.
type RunContext struct {
	Plan    models.RunPlan
	Tasks   []models.Task
	Page    driver.Driver
	Sink    sink.Sink
	Logger  Logger
	Summary models.RunSummary
	Started time.Time
}

func newRunContext(plan models.RunPlan, page driver.Driver, out sink.Sink, log Logger, outputPath string) *RunContext {
	return &RunContext{
		Plan:   plan,
		Tasks:  plan.Tasks(),
		Page:   page,
		Sink:   out,
		Logger: log,
		Summary: models.RunSummary{
			RunID:      plan.RunID,
			Total:      plan.Total(),
			OutputPath: outputPath,
		},
		Started: time.Now(),
	}
}

// Record stamps and appends outcome, then counts it. The outcome is only
// counted once the sink accepted it.
func (rc *RunContext) Record(outcome models.TaskOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now()
	}
	if err := rc.Sink.Append(outcome); err != nil {
		return &RecordError{Task: outcome.Task, Err: err}
	}
	rc.Logger.LogTaskOutcome(outcome)
	rc.Summary.Add(outcome)
	return nil
}

// Finish stamps the run duration and returns the summary.
func (rc *RunContext) Finish() models.RunSummary {
	rc.Summary.Duration = time.Since(rc.Started)
	return rc.Summary
}
