package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// DefaultLogDir is used when no log directory is configured.
var DefaultLogDir = filepath.Join(".gencompare", "logs")

// FileLogger logs run events to a timestamped file and maintains a
// latest.log symlink pointing to the most recent run.
// Unlike the console it keeps full answer texts.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLoggerWithDirAndLevel creates a FileLogger writing
// <logDir>/run-YYYYMMDD-HHMMSS.log.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if logDir == "" {
		logDir = DefaultLogDir
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== gencompare run log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// Path returns the run log file path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) { fl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) { fl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !enabled(fl.logLevel, level) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogRunStart records the run id, the full prompt and the matrix axes.
func (fl *FileLogger) LogRunStart(plan models.RunPlan) {
	if !enabled(fl.logLevel, "info") {
		return
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Run %s: %d tasks\n", ts, plan.RunID, plan.Total())
	fmt.Fprintf(&b, "[%s] Prompt:\n%s\n", ts, plan.Prompt)
	fmt.Fprintf(&b, "[%s] Models: %s\n", ts, strings.Join(plan.ModelNames, ", "))
	names := make([]string, 0, len(plan.Assets))
	for _, a := range plan.Assets {
		names = append(names, a.Name)
	}
	fmt.Fprintf(&b, "[%s] Images: %s\n", ts, strings.Join(names, ", "))
	fl.writeRunLog(b.String())
}

// LogTaskStart records the start of one task.
func (fl *FileLogger) LogTaskStart(task models.Task, total int) {
	if !enabled(fl.logLevel, "info") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("\n[%s] [%d/%d] %s / %s (%s)\n",
		timestamp(), task.Number, total, task.Asset.Name, task.ModelName, task.Asset.Path))
}

// LogTaskOutcome records the outcome with its complete text.
func (fl *FileLogger) LogTaskOutcome(outcome models.TaskOutcome) {
	if !enabled(fl.logLevel, "info") {
		return
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Task %d %s: elapsed=%s signal=%s timed_out=%t\n",
		ts, outcome.Task.Number, strings.ToUpper(outcome.Status),
		outcome.ElapsedField(), orNone(outcome.Signal), outcome.TimedOut)
	fmt.Fprintf(&b, "--- response ---\n%s\n--- end ---\n", outcome.Text)
	fl.writeRunLog(b.String())
}

func orNone(s string) string {
	if s == "" {
		return models.SignalNone
	}
	return s
}

// LogSummary records final statistics.
func (fl *FileLogger) LogSummary(summary models.RunSummary) {
	if !enabled(fl.logLevel, "info") {
		return
	}

	ts := timestamp()
	status := "SUCCESS"
	if summary.Skipped+summary.Failed > 0 {
		status = "PARTIAL"
		if summary.Succeeded == 0 {
			status = "FAILED"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === RUN SUMMARY ===\n"+
			"[%s] Run:          %s\n"+
			"[%s] Total tasks:  %d\n"+
			"[%s] Succeeded:    %d\n"+
			"[%s] Skipped:      %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Status:       %s\n"+
			"[%s] Output:       %s\n",
		ts, ts, summary.RunID,
		ts, summary.Total,
		ts, summary.Succeeded,
		ts, summary.Skipped,
		ts, summary.Failed,
		ts, summary.Duration.Seconds(),
		ts, status,
		ts, summary.OutputPath,
	)
	fl.writeRunLog(message)
}

// Close closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return nil
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog == nil {
		return
	}
	_, _ = fl.runLog.WriteString(message)
	_ = fl.runLog.Sync()
}
