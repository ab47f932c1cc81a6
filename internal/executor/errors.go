package executor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

var (
	// ErrModelNotFound marks a task whose model is not offered by the
	// selector. Such tasks are recorded as skipped.
	ErrModelNotFound = errors.New("model not found")
	// ErrPromptInputNotFound is returned when no prompt input candidate
	// exists on the chat surface.
	ErrPromptInputNotFound = errors.New("prompt input not found")
	// ErrFileChooserNotOpened is returned when clicking the upload option
	// did not open a file chooser in time.
	ErrFileChooserNotOpened = errors.New("file chooser did not open")
)

// TaskPhase is the step of the per-task protocol where an error occurred.
type TaskPhase int

const (
	// PhaseReset opens a fresh chat surface.
	PhaseReset TaskPhase = iota
	// PhaseModel selects the model.
	PhaseModel
	// PhaseAttach attaches the image asset.
	PhaseAttach
	// PhaseSubmit fills and sends the prompt.
	PhaseSubmit
	// PhaseCompletion waits for and extracts the answer.
	PhaseCompletion
)

// String returns the string representation of TaskPhase.
func (p TaskPhase) String() string {
	switch p {
	case PhaseReset:
		return "reset"
	case PhaseModel:
		return "model"
	case PhaseAttach:
		return "attach"
	case PhaseSubmit:
		return "submit"
	case PhaseCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// TaskError represents an error that occurred during one task.
// It includes context about which task failed and when.
type TaskError struct {
	Task      models.Task
	Phase     TaskPhase
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewTaskError creates a new TaskError with the current timestamp.
func NewTaskError(task models.Task, phase TaskPhase, msg string, err error) *TaskError {
	return &TaskError{
		Task:      task,
		Phase:     phase,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TaskError.
func (e *TaskError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// PanicError is produced when a task panics. The run goes on with the
// next task.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("unexpected panic: %v", e.Value)
}

// RecordError reports that an outcome could not be stored. It aborts the
// run since nothing recorded after it would be durable.
type RecordError struct {
	Task models.Task
	Err  error
}

// Error implements the error interface for RecordError.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record task %d (%s / %s): %v", e.Task.Number, e.Task.Asset.Name, e.Task.ModelName, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *RecordError) Unwrap() error {
	return e.Err
}
