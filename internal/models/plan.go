package models

import "strings"

// promptPreviewRunes bounds the prompt excerpt shown in run banners.
const promptPreviewRunes = 50

// RunPlan describes one run before it starts: the prompt and the matrix
// axes it will be submitted over.
type RunPlan struct {
	RunID      string
	Prompt     string
	Assets     []Asset
	ModelNames []string
}

// Tasks expands the plan into its ordered task list.
func (p RunPlan) Tasks() []Task {
	return ExpandTasks(p.Assets, p.ModelNames)
}

// Total returns |assets| × |models|.
func (p RunPlan) Total() int {
	return len(p.Assets) * len(p.ModelNames)
}

// PromptPreview returns the first runes of the prompt on a single line.
func (p RunPlan) PromptPreview() string {
	flat := strings.Join(strings.Fields(p.Prompt), " ")
	r := []rune(flat)
	if len(r) <= promptPreviewRunes {
		return flat
	}
	return string(r[:promptPreviewRunes]) + "..."
}
