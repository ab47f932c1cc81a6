package sink

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/filelock"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/jg-fukuda/auto-genspark2/internal/sink/sinktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcome(n int, asset, model, text string) models.TaskOutcome {
	return models.TaskOutcome{
		Task:       models.Task{Number: n, Asset: models.Asset{Name: asset}, ModelName: model},
		Status:     models.StatusSuccess,
		Elapsed:    1300 * time.Millisecond,
		HasElapsed: true,
		Text:       text,
	}
}

func parseCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), utf8BOM), "missing BOM")

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), utf8BOM)))
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVSinkWritesHeaderAndRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dest")
	start := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	s, err := CreateCSV(dir, start)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-09_140507.csv"), s.Path())

	require.NoError(t, s.Append(outcome(1, "a.png", "gpt-x", `He said "hi", then left`)))
	require.NoError(t, s.Append(outcome(2, "a.png", "claude-y", "line1\r\nline2\rline3")))
	skipped := models.TaskOutcome{
		Task:   models.Task{Number: 3, Asset: models.Asset{Name: "a.png"}, ModelName: "missing"},
		Status: models.StatusSkipped,
		Text:   `[skipped] model "missing" was not found`,
	}
	require.NoError(t, s.Append(skipped))
	assert.Equal(t, 3, s.Rows())

	// Rows are durable before Close.
	records := parseCSV(t, s.Path())
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"a.png", "gpt-x", "1.3s", `He said "hi", then left`}, records[1])
	assert.Equal(t, "line1\nline2\nline3", records[2][3])
	assert.Equal(t, []string{"a.png", "missing", "-", `[skipped] model "missing" was not found`}, records[3])

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Append(outcome(4, "b.png", "m", "x")), ErrClosed)
}

func TestCSVSinkHoldsLock(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	s, err := CreateCSV(dir, start)
	require.NoError(t, err)

	_, err = filelock.Acquire(s.Path())
	assert.True(t, errors.Is(err, filelock.ErrLocked))

	require.NoError(t, s.Close())
	assert.NoFileExists(t, s.Path()+filelock.LockSuffix)
}

func TestCSVSinkRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()
	path := PathFor(dir, start)
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	_, err := CreateCSV(dir, start)
	require.Error(t, err)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "old", string(data))
	assert.NoFileExists(t, path+filelock.LockSuffix)
}

func TestFreshRunsProduceSameRecords(t *testing.T) {
	dir := t.TempDir()
	write := func(start time.Time) [][]string {
		s, err := CreateCSV(dir, start)
		require.NoError(t, err)
		for i, m := range []string{"m1", "m2"} {
			require.NoError(t, s.Append(outcome(i+1, "img.png", m, "answer")))
		}
		require.NoError(t, s.Close())
		return parseCSV(t, s.Path())
	}

	first := write(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	second := write(time.Date(2024, 1, 1, 0, 0, 1, 0, time.Local))
	assert.Equal(t, first, second)
}

type failingSink struct {
	sinktest.Memory
	err error
}

func (f *failingSink) Append(o models.TaskOutcome) error {
	if f.err != nil {
		return f.err
	}
	return f.Memory.Append(o)
}

func TestTee(t *testing.T) {
	primary := &sinktest.Memory{}
	broken := &failingSink{err: errors.New("db is gone")}
	mirror := &sinktest.Memory{}

	var warned []error
	s := Tee(func(err error) { warned = append(warned, err) }, primary, broken, mirror)

	require.NoError(t, s.Append(outcome(1, "a", "m", "t")))
	assert.Len(t, primary.Outcomes, 1)
	assert.Len(t, mirror.Outcomes, 1)
	require.Len(t, warned, 1)
	assert.EqualError(t, warned[0], "db is gone")

	require.NoError(t, s.Close())
	assert.True(t, primary.Closed)
	assert.True(t, mirror.Closed)
}

func TestTeePrimaryFailureStops(t *testing.T) {
	primary := &failingSink{err: errors.New("disk full")}
	mirror := &sinktest.Memory{}

	s := Tee(nil, primary, mirror)
	err := s.Append(outcome(1, "a", "m", "t"))

	assert.EqualError(t, err, "disk full")
	assert.Empty(t, mirror.Outcomes)
}
