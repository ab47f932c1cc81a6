package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jg-fukuda/auto-genspark2/internal/human"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordLogger struct {
	lines []string
}

func (r *recordLogger) Infof(format string, args ...any) {
	r.lines = append(r.lines, "INFO "+fmt.Sprintf(format, args...))
}

func (r *recordLogger) Warnf(format string, args ...any) {
	r.lines = append(r.lines, "WARN "+fmt.Sprintf(format, args...))
}

type countingPrompter struct {
	messages []string
	err      error
}

func (p *countingPrompter) Acknowledge(ctx context.Context, message string) error {
	p.messages = append(p.messages, message)
	return p.err
}

func TestDoSucceedsFirstTry(t *testing.T) {
	prompter := &countingPrompter{}
	c := New(prompter, nil, 3)

	var attempts []models.RetryAttempt
	err := c.Do(context.Background(), Step{
		Name: "attach",
		Run: func(ctx context.Context, a models.RetryAttempt) error {
			attempts = append(attempts, a)
			return nil
		},
		Reset: func(ctx context.Context) error {
			t.Fatal("reset must not run after success")
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []models.RetryAttempt{{Number: 1, Max: 3}}, attempts)
	assert.Empty(t, prompter.messages)
}

func TestDoRecoversOnSecondAttempt(t *testing.T) {
	prompter := &countingPrompter{}
	log := &recordLogger{}
	c := New(prompter, log, 3)

	var order []string
	err := c.Do(context.Background(), Step{
		Name: "attach",
		Run: func(ctx context.Context, a models.RetryAttempt) error {
			order = append(order, fmt.Sprintf("run %d", a.Number))
			if a.Number == 1 {
				return errors.New("chooser did not open")
			}
			return nil
		},
		Reset: func(ctx context.Context) error {
			order = append(order, "reset")
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"run 1", "reset", "run 2"}, order)
	require.Len(t, prompter.messages, 1)
	assert.Contains(t, prompter.messages[0], "retry 1/3")
	assert.Contains(t, log.lines[0], "attach failed (attempt 1/3): chooser did not open")
}

func TestDoExhausts(t *testing.T) {
	prompter := &countingPrompter{}
	c := New(prompter, nil, 0)

	runs, resets := 0, 0
	last := errors.New("no add-entry button")
	err := c.Do(context.Background(), Step{
		Name: "attach",
		Run: func(ctx context.Context, a models.RetryAttempt) error {
			runs++
			return last
		},
		Reset: func(ctx context.Context) error {
			resets++
			return nil
		},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.True(t, errors.Is(err, last))

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, DefaultMaxAttempts, exhausted.Attempts)
	assert.Equal(t, "attach failed after 3 attempts: no add-entry button", err.Error())

	assert.Equal(t, 3, runs)
	assert.Equal(t, 2, resets, "no reset after the final attempt")
	assert.Len(t, prompter.messages, 2, "one acknowledgment between each pair of attempts")
}

func TestDoStepOverridesAttempts(t *testing.T) {
	c := New(&countingPrompter{}, nil, 3)
	runs := 0
	err := c.Do(context.Background(), Step{
		Name:        "once",
		MaxAttempts: 1,
		Run: func(ctx context.Context, a models.RetryAttempt) error {
			runs++
			assert.True(t, a.IsLast())
			return errors.New("boom")
		},
	})
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 1, runs)
}

func TestDoPrompterFailureAborts(t *testing.T) {
	prompter := &countingPrompter{err: human.ErrInputClosed}
	c := New(prompter, nil, 3)

	runs := 0
	err := c.Do(context.Background(), Step{
		Name: "attach",
		Run: func(ctx context.Context, a models.RetryAttempt) error {
			runs++
			return errors.New("fail")
		},
	})

	assert.True(t, errors.Is(err, human.ErrInputClosed))
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 1, runs)
}

func TestDoResetFailureAborts(t *testing.T) {
	c := New(&countingPrompter{}, nil, 3)
	resetErr := errors.New("navigation timeout")

	err := c.Do(context.Background(), Step{
		Name:  "attach",
		Run:   func(ctx context.Context, a models.RetryAttempt) error { return errors.New("fail") },
		Reset: func(ctx context.Context) error { return resetErr },
	})

	assert.True(t, errors.Is(err, resetErr))
	assert.Contains(t, err.Error(), "reset before retry")
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prompter := &countingPrompter{}
	c := New(prompter, nil, 3)

	err := c.Do(ctx, Step{
		Name: "attach",
		Run: func(ctx context.Context, a models.RetryAttempt) error {
			cancel()
			return ctx.Err()
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, prompter.messages)
}

func TestDoWithPrompterFunc(t *testing.T) {
	acks := 0
	c := New(human.PrompterFunc(func(ctx context.Context, message string) error {
		acks++
		return nil
	}), nil, 2)

	err := c.Do(context.Background(), Step{
		Name: "x",
		Run:  func(ctx context.Context, a models.RetryAttempt) error { return errors.New("no") },
	})
	assert.Error(t, err)
	assert.Equal(t, 1, acks)
}
