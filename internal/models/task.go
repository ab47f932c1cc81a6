package models

import (
	"errors"
	"fmt"
)

// Asset is a local file submitted alongside the prompt (an image).
type Asset struct {
	Name string // Base file name, used in result rows
	Path string // Absolute or working-directory relative path
}

// Task is one cell of the asset × model cross product.
type Task struct {
	Number    int    // 1-based position in execution order
	Asset     Asset  // Asset attached to the chat
	ModelName string // Model name as rendered in the model selector
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if t.Number <= 0 {
		return errors.New("task number must be positive")
	}
	if t.Asset.Path == "" {
		return errors.New("task asset path is required")
	}
	if t.ModelName == "" {
		return errors.New("task model name is required")
	}
	return nil
}

// String returns a short label used in log lines.
func (t Task) String() string {
	return fmt.Sprintf("%s / %s", t.Asset.Name, t.ModelName)
}

// ExpandTasks builds the task list for every (asset, model) pair.
// The outer loop runs over assets and the inner loop over models, both in
// declaration order, so the result is deterministic for identical inputs.
func ExpandTasks(assets []Asset, modelNames []string) []Task {
	tasks := make([]Task, 0, len(assets)*len(modelNames))
	n := 0
	for _, asset := range assets {
		for _, model := range modelNames {
			n++
			tasks = append(tasks, Task{
				Number:    n,
				Asset:     asset,
				ModelName: model,
			})
		}
	}
	return tasks
}
