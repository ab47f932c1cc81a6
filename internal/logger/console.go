// Package logger provides logging implementations for gencompare runs.
//
// The logger package records run progress at the task and summary levels.
// Implementations are thread-safe and write to the console, a per-run log
// file, or both through Multi.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/mattn/go-isatty"
)

const bannerWidth = 50

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a TTY that should get colors.
// NO_COLOR is honored through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !enabled(cl.logLevel, level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		cl.write(fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message))
		return
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", ts, level, message))
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	}
	return level
}

func (cl *ConsoleLogger) write(s string) {
	_, _ = io.WriteString(cl.writer, s)
}

// LogRunStart prints the run banner: prompt preview and matrix size.
func (cl *ConsoleLogger) LogRunStart(plan models.RunPlan) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.progress = NewProgressBar(plan.Total(), 20, cl.colorOutput)

	ts := timestamp()
	rule := strings.Repeat("=", bannerWidth)
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, rule)
	fmt.Fprintf(&b, "[%s] Run %s\n", ts, plan.RunID)
	fmt.Fprintf(&b, "[%s] Prompt: %s\n", ts, plan.PromptPreview())
	fmt.Fprintf(&b, "[%s] Models: %d  Images: %d  Tasks: %d\n", ts, len(plan.ModelNames), len(plan.Assets), plan.Total())
	fmt.Fprintf(&b, "[%s] %s\n", ts, rule)
	cl.write(b.String())
}

// LogTaskStart prints the "[n/total] image / model" banner.
func (cl *ConsoleLogger) LogTaskStart(task models.Task, total int) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	rule := strings.Repeat("=", bannerWidth)
	head := fmt.Sprintf("[%d/%d] %s / %s", task.Number, total, task.Asset.Name, task.ModelName)
	if cl.colorOutput {
		head = color.New(color.Bold).Sprint(head)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s\n", ts, rule)
	fmt.Fprintf(&b, "[%s] %s\n", ts, head)
	fmt.Fprintf(&b, "[%s] %s\n", ts, rule)
	cl.write(b.String())
}

// LogTaskOutcome prints the result line for a recorded outcome, followed by
// the progress bar when a run banner was printed.
func (cl *ConsoleLogger) LogTaskOutcome(outcome models.TaskOutcome) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	symbol, label := outcomeMarker(outcome.Status)
	if cl.colorOutput {
		c := color.New(color.FgGreen)
		switch outcome.Status {
		case models.StatusSkipped:
			c = color.New(color.FgYellow)
		case models.StatusFailed:
			c = color.New(color.FgRed)
		}
		symbol = c.Sprint(symbol)
		label = c.Sprint(label)
	}

	detail := outcome.ElapsedField()
	if outcome.Signal != "" && outcome.Signal != models.SignalNone {
		detail += ", " + outcome.Signal
	}
	if outcome.TimedOut {
		detail += ", timed out"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s %s / %s (%s)\n", ts, symbol, label,
		outcome.Task.Asset.Name, outcome.Task.ModelName, detail)
	if p := preview(outcome.Text, 80); p != "" {
		fmt.Fprintf(&b, "[%s]     %s\n", ts, p)
	}
	if cl.progress != nil {
		cl.progress.Increment()
		fmt.Fprintf(&b, "[%s] %s\n", ts, cl.progress.Render())
	}
	cl.write(b.String())
}

func outcomeMarker(status string) (string, string) {
	switch status {
	case models.StatusSuccess:
		return "✓", "done"
	case models.StatusSkipped:
		return "-", "skipped"
	default:
		return "✗", "failed"
	}
}

// LogSummary prints the final run statistics.
func (cl *ConsoleLogger) LogSummary(summary models.RunSummary) {
	if cl.writer == nil || !enabled(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	succeeded := fmt.Sprintf("%d", summary.Succeeded)
	problems := fmt.Sprintf("%d", summary.Skipped+summary.Failed)
	if cl.colorOutput {
		succeeded = color.New(color.FgGreen).Sprint(succeeded)
		if summary.Skipped+summary.Failed > 0 {
			problems = color.New(color.FgRed).Sprint(problems)
		}
	}

	rule := strings.Repeat("=", bannerWidth)
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s\n", ts, rule)
	fmt.Fprintf(&b, "[%s] Run complete: %d/%d tasks recorded in %s\n", ts,
		summary.Recorded(), summary.Total, formatDuration(summary.Duration))
	fmt.Fprintf(&b, "[%s] Succeeded: %s  Skipped/failed: %s (skipped %d, failed %d)\n", ts,
		succeeded, problems, summary.Skipped, summary.Failed)
	if summary.OutputPath != "" {
		fmt.Fprintf(&b, "[%s] Output: %s\n", ts, summary.OutputPath)
	}
	fmt.Fprintf(&b, "[%s] %s\n", ts, rule)
	cl.write(b.String())
}

// timestamp returns the current time formatted as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// preview returns the first n runes of s on one line.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// formatDuration renders d as "45s", "2m5s" or "1h3m".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm%ds", m, s)
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogRunStart(models.RunPlan) {}
func (n *NoOpLogger) LogTaskStart(models.Task, int) {}
func (n *NoOpLogger) LogTaskOutcome(models.TaskOutcome) {}
func (n *NoOpLogger) LogSummary(models.RunSummary) {}
