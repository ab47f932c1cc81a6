// Package retry runs fallible UI steps with operator-assisted recovery:
// after a failed attempt the operator is asked to fix the browser state,
// the page is reset and the step runs again.
package retry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jg-fukuda/auto-genspark2/internal/human"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// DefaultMaxAttempts applies when neither the step nor the controller
// sets a limit.
const DefaultMaxAttempts = 3

// ErrExhausted matches every ExhaustedError.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError reports a step that failed on every attempt.
type ExhaustedError struct {
	Step     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Step, e.Attempts, e.Last)
}

// Unwrap exposes both ErrExhausted and the last attempt's error.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Logger receives attempt and escalation messages.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Step is one retryable unit of work.
type Step struct {
	Name        string
	MaxAttempts int // 0 uses the controller default
	Run         func(ctx context.Context, attempt models.RetryAttempt) error
	// Reset restores a clean surface before the next attempt. Optional.
	Reset func(ctx context.Context) error
}

// Controller drives Steps.
type Controller struct {
	prompter    human.Prompter
	logger      Logger
	maxAttempts int
}

// New creates a Controller. maxAttempts <= 0 means DefaultMaxAttempts.
func New(prompter human.Prompter, logger Logger, maxAttempts int) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = discard{}
	}
	return &Controller{prompter: prompter, logger: logger, maxAttempts: maxAttempts}
}

// Do runs step until it succeeds or attempts run out. Between attempts it
// blocks on operator acknowledgment, then calls Reset. A cancelled context
// ends the loop with the context error; exhaustion returns *ExhaustedError.
func (c *Controller) Do(ctx context.Context, step Step) error {
	limit := step.MaxAttempts
	if limit <= 0 {
		limit = c.maxAttempts
	}

	var last error
	for n := 1; n <= limit; n++ {
		attempt := models.RetryAttempt{Number: n, Max: limit}
		if n > 1 {
			c.logger.Infof("%s: attempt %d/%d", step.Name, n, limit)
		}

		last = step.Run(ctx, attempt)
		if last == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt.IsLast() {
			break
		}

		c.logger.Warnf("%s failed (attempt %d/%d): %v", step.Name, n, limit, last)
		c.logger.Warnf("Check the login state and the page in the browser window.")

		msg := fmt.Sprintf("Resolve the issue, then press Enter (retry %d/%d)...", n, limit)
		if err := c.prompter.Acknowledge(ctx, msg); err != nil {
			return fmt.Errorf("%s: waiting for operator: %w", step.Name, err)
		}

		if step.Reset != nil {
			if err := step.Reset(ctx); err != nil {
				return fmt.Errorf("%s: reset before retry: %w", step.Name, err)
			}
		}
	}

	c.logger.Warnf("%s gave up after %d attempts", step.Name, limit)
	return &ExhaustedError{Step: step.Name, Attempts: limit, Last: last}
}

type discard struct{}

func (discard) Infof(string, ...any) {}
func (discard) Warnf(string, ...any) {}
