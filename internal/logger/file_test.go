package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLog(t *testing.T, fl *FileLogger) string {
	t.Helper()
	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	return string(data)
}

func TestFileLoggerCreatesRunFileAndSymlink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	fl, err := NewFileLoggerWithDirAndLevel(dir, "info")
	require.NoError(t, err)
	defer fl.Close()

	base := filepath.Base(fl.Path())
	assert.True(t, strings.HasPrefix(base, "run-"))
	assert.True(t, strings.HasSuffix(base, ".log"))

	target, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, base, target)

	assert.Contains(t, readLog(t, fl), "=== gencompare run log ===")
}

func TestFileLoggerReplacesSymlink(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "latest.log")
	require.NoError(t, os.Symlink("run-old.log", stale))

	fl, err := NewFileLoggerWithDirAndLevel(dir, "info")
	require.NoError(t, err)
	defer fl.Close()

	target, err := os.Readlink(stale)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.Path()), target)
}

func TestFileLoggerKeepsFullResponse(t *testing.T) {
	fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "debug")
	require.NoError(t, err)
	defer fl.Close()

	task := models.Task{Number: 1, Asset: models.Asset{Name: "a.png", Path: "in/a.png"}, ModelName: "m"}
	long := strings.Repeat("line of answer\n", 20)

	fl.LogTaskStart(task, 3)
	fl.LogTaskOutcome(models.TaskOutcome{Task: task, Status: models.StatusSuccess, HasElapsed: true,
		Elapsed: 2 * time.Second, Text: long, Signal: models.SignalBusyIndicator})
	fl.LogDebug("probe settled")

	out := readLog(t, fl)
	assert.Contains(t, out, "[1/3] a.png / m (in/a.png)")
	assert.Contains(t, out, "Task 1 SUCCESS: elapsed=2.0s signal=busy-indicator timed_out=false")
	assert.Contains(t, out, long)
	assert.Contains(t, out, "[DEBUG] probe settled")
}

func TestFileLoggerSummaryStatus(t *testing.T) {
	tests := []struct {
		name    string
		summary models.RunSummary
		want    string
	}{
		{name: "all good", summary: models.RunSummary{Total: 2, Succeeded: 2}, want: "Status:       SUCCESS"},
		{name: "partial", summary: models.RunSummary{Total: 2, Succeeded: 1, Skipped: 1}, want: "Status:       PARTIAL"},
		{name: "nothing succeeded", summary: models.RunSummary{Total: 2, Failed: 2}, want: "Status:       FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "info")
			require.NoError(t, err)
			defer fl.Close()

			fl.LogSummary(tt.summary)
			assert.Contains(t, readLog(t, fl), tt.want)
		})
	}
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	fl, err := NewFileLoggerWithDirAndLevel(t.TempDir(), "info")
	require.NoError(t, err)

	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
	assert.NotPanics(t, func() { fl.LogInfo("after close") })
}
