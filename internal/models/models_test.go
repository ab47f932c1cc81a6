package models

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTasks_AssetMajorOrder(t *testing.T) {
	assets := []Asset{
		{Name: "a.png", Path: "images/a.png"},
		{Name: "b.png", Path: "images/b.png"},
	}
	models := []string{"gpt-x", "claude-y", "gemini-z"}

	tasks := ExpandTasks(assets, models)

	require.Len(t, tasks, 6)
	want := []struct {
		asset string
		model string
	}{
		{"a.png", "gpt-x"},
		{"a.png", "claude-y"},
		{"a.png", "gemini-z"},
		{"b.png", "gpt-x"},
		{"b.png", "claude-y"},
		{"b.png", "gemini-z"},
	}
	for i, w := range want {
		assert.Equal(t, i+1, tasks[i].Number)
		assert.Equal(t, w.asset, tasks[i].Asset.Name)
		assert.Equal(t, w.model, tasks[i].ModelName)
	}
}

func TestExpandTasks_Empty(t *testing.T) {
	assert.Empty(t, ExpandTasks(nil, []string{"m"}))
	assert.Empty(t, ExpandTasks([]Asset{{Name: "a", Path: "a"}}, nil))
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"valid", Task{Number: 1, Asset: Asset{Name: "a", Path: "a"}, ModelName: "m"}, false},
		{"zero number", Task{Asset: Asset{Path: "a"}, ModelName: "m"}, true},
		{"no asset", Task{Number: 1, ModelName: "m"}, true},
		{"no model", Task{Number: 1, Asset: Asset{Path: "a"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentialNeverPrintsSecret(t *testing.T) {
	c := Credential{Identity: "me@example.com", Secret: "hunter2"}

	for _, out := range []string{c.String(), fmt.Sprintf("%v", c), fmt.Sprintf("%+v", c), fmt.Sprintf("%#v", c)} {
		assert.NotContains(t, out, "hunter2")
		assert.Contains(t, out, "me@example.com")
	}
	assert.True(t, c.IsComplete())
	assert.False(t, Credential{Identity: "x"}.IsComplete())
}

func TestElapsedField(t *testing.T) {
	assert.Equal(t, "-", TaskOutcome{}.ElapsedField())
	assert.Equal(t, "12.3s", TaskOutcome{Elapsed: 12340 * time.Millisecond, HasElapsed: true}.ElapsedField())
	assert.Equal(t, "0.0s", TaskOutcome{HasElapsed: true}.ElapsedField())
}

func TestRunSummaryAdd(t *testing.T) {
	var s RunSummary
	s.Add(TaskOutcome{Status: StatusSuccess})
	s.Add(TaskOutcome{Status: StatusSkipped})
	s.Add(TaskOutcome{Status: StatusFailed})
	s.Add(TaskOutcome{Status: "weird"})

	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 4, s.Recorded())
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "unknown", SessionState(42).String())
}

func TestRetryAttemptIsLast(t *testing.T) {
	assert.False(t, RetryAttempt{Number: 1, Max: 3}.IsLast())
	assert.True(t, RetryAttempt{Number: 3, Max: 3}.IsLast())
}

func TestRunPlan(t *testing.T) {
	plan := RunPlan{
		Prompt:     "Describe\nthis   image " + strings.Repeat("x", 60),
		Assets:     []Asset{{Name: "a.png"}, {Name: "b.png"}},
		ModelNames: []string{"m1", "m2", "m3"},
	}

	assert.Equal(t, 6, plan.Total())
	assert.Len(t, plan.Tasks(), 6)

	preview := plan.PromptPreview()
	assert.True(t, strings.HasPrefix(preview, "Describe this image x"))
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Equal(t, 53, len([]rune(preview)))

	assert.Equal(t, "short", RunPlan{Prompt: "  short "}.PromptPreview())
}
