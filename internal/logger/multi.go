package logger

import (
	"fmt"

	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// RunLogger is the full set of run events a logger reports.
type RunLogger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRunStart(plan models.RunPlan)
	LogTaskStart(task models.Task, total int)
	LogTaskOutcome(outcome models.TaskOutcome)
	LogSummary(summary models.RunSummary)
}

// Multi fans every event out to each logger in order. Nil entries are
// ignored.
type Multi []RunLogger

// NewMulti builds a Multi from the non-nil loggers.
func NewMulti(loggers ...RunLogger) Multi {
	m := make(Multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m Multi) LogDebug(message string) {
	for _, l := range m {
		l.LogDebug(message)
	}
}

func (m Multi) LogInfo(message string) {
	for _, l := range m {
		l.LogInfo(message)
	}
}

func (m Multi) LogWarn(message string) {
	for _, l := range m {
		l.LogWarn(message)
	}
}

func (m Multi) LogError(message string) {
	for _, l := range m {
		l.LogError(message)
	}
}

func (m Multi) LogRunStart(plan models.RunPlan) {
	for _, l := range m {
		l.LogRunStart(plan)
	}
}

func (m Multi) LogTaskStart(task models.Task, total int) {
	for _, l := range m {
		l.LogTaskStart(task, total)
	}
}

func (m Multi) LogTaskOutcome(outcome models.TaskOutcome) {
	for _, l := range m {
		l.LogTaskOutcome(outcome)
	}
}

func (m Multi) LogSummary(summary models.RunSummary) {
	for _, l := range m {
		l.LogSummary(summary)
	}
}

// LevelLogger is the message-only subset of RunLogger.
type LevelLogger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Printf adapts a LevelLogger to printf-style methods for components that
// only emit diagnostic lines.
type Printf struct {
	L LevelLogger
}

// Formatted wraps l. A nil l discards everything.
func Formatted(l LevelLogger) Printf {
	if l == nil {
		l = NewNoOpLogger()
	}
	return Printf{L: l}
}

// Debugf logs at debug level.
func (p Printf) Debugf(format string, args ...any) {
	p.L.LogDebug(fmt.Sprintf(format, args...))
}

// Infof logs at info level.
func (p Printf) Infof(format string, args ...any) {
	p.L.LogInfo(fmt.Sprintf(format, args...))
}

// Warnf logs at warn level.
func (p Printf) Warnf(format string, args ...any) {
	p.L.LogWarn(fmt.Sprintf(format, args...))
}

// Errorf logs at error level.
func (p Printf) Errorf(format string, args ...any) {
	p.L.LogError(fmt.Sprintf(format, args...))
}
