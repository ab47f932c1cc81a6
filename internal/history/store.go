// Package history keeps every run and its outcomes in a SQLite database so
// past comparisons can be listed and exported after the CSV is gone.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

var (
	// ErrRunNotFound is returned when no run matches an id or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when a prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // Zero while running
	Status     string
	Prompt     string
	ModelNames []string
	OutputPath string
	Summary    models.RunSummary
}

// Store manages the SQLite history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating when needed) the database at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun inserts a running row for plan.
func (s *Store) StartRun(ctx context.Context, plan models.RunPlan, outputPath string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, prompt, models, output_path, total)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.RunID, startedAt.UTC(), RunRunning, plan.Prompt,
		strings.Join(plan.ModelNames, "\n"), outputPath, plan.Total())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", plan.RunID, err)
	}
	return nil
}

// RecordOutcome stores one outcome of runID. Re-recording a task number
// replaces the previous row.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o models.TaskOutcome) error {
	var elapsed sql.NullInt64
	if o.HasElapsed {
		elapsed = sql.NullInt64{Int64: o.Elapsed.Milliseconds(), Valid: true}
	}
	recordedAt := o.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outcomes
		 (run_id, task_number, image_file, image_path, model, status, elapsed_ms, response, signal, timed_out, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Task.Number, o.Task.Asset.Name, o.Task.Asset.Path, o.Task.ModelName,
		o.Status, elapsed, o.Text, o.Signal, o.TimedOut, recordedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert outcome %d of run %s: %w", o.Task.Number, runID, err)
	}
	return nil
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, summary models.RunSummary, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, total = ?, succeeded = ?, skipped = ?, failed = ?, duration_ms = ?
		 WHERE id = ?`,
		time.Now().UTC(), status, summary.Total, summary.Succeeded, summary.Skipped, summary.Failed,
		summary.Duration.Milliseconds(), summary.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", summary.RunID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", summary.RunID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, status, prompt, models, output_path,
	total, succeeded, skipped, failed, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r          Run
		finished   sql.NullTime
		modelNames string
		durationMS int64
	)
	err := row.Scan(&r.ID, &r.StartedAt, &finished, &r.Status, &r.Prompt, &modelNames, &r.OutputPath,
		&r.Summary.Total, &r.Summary.Succeeded, &r.Summary.Skipped, &r.Summary.Failed, &durationMS)
	if err != nil {
		return Run{}, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	if modelNames != "" {
		r.ModelNames = strings.Split(modelNames, "\n")
	}
	r.Summary.RunID = r.ID
	r.Summary.OutputPath = r.OutputPath
	r.Summary.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun finds a run by full id or unique prefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(idOrPrefix)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		if r.ID == idOrPrefix {
			return r, nil
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%q: %w", idOrPrefix, ErrRunNotFound)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("%q: %w", idOrPrefix, ErrAmbiguousRun)
	}
}

// Outcomes returns the outcomes of runID in task order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]models.TaskOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_number, image_file, image_path, model, status, elapsed_ms, response, signal, timed_out, recorded_at
		 FROM outcomes WHERE run_id = ? ORDER BY task_number`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.TaskOutcome
	for rows.Next() {
		var (
			o       models.TaskOutcome
			elapsed sql.NullInt64
		)
		if err := rows.Scan(&o.Task.Number, &o.Task.Asset.Name, &o.Task.Asset.Path, &o.Task.ModelName,
			&o.Status, &elapsed, &o.Text, &o.Signal, &o.TimedOut, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if elapsed.Valid {
			o.HasElapsed = true
			o.Elapsed = time.Duration(elapsed.Int64) * time.Millisecond
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// RecordTimeout bounds one Recorder write.
const RecordTimeout = 10 * time.Second

// Recorder returns a sink that stores outcomes under runID.
func (s *Store) Recorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID, timeout: RecordTimeout}
}

// Recorder adapts a Store to the sink interface for one run. Close does
// not close the store.
type Recorder struct {
	store   *Store
	runID   string
	timeout time.Duration
}

// Append stores outcome. Each write gets its own bounded context, so
// the outcomes of an interrupted run are still kept.
func (r *Recorder) Append(outcome models.TaskOutcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.store.RecordOutcome(ctx, r.runID, outcome)
}

// Close implements the sink interface.
func (r *Recorder) Close() error {
	return nil
}
