package executor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jg-fukuda/auto-genspark2/internal/completion"
	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/human"
	"github.com/jg-fukuda/auto-genspark2/internal/logger"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/jg-fukuda/auto-genspark2/internal/retry"
	"github.com/jg-fukuda/auto-genspark2/internal/sink"
)

// Logger defines the interface for logging orchestrator progress and results.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogRunStart(plan models.RunPlan)
	LogTaskStart(task models.Task, total int)
	LogTaskOutcome(outcome models.TaskOutcome)
	LogSummary(summary models.RunSummary)
}

// Authenticator establishes the session once per run.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) (models.SessionState, error)
}

// Settings holds the selectors and waits of the per-task protocol.
type Settings struct {
	ChatURL string

	ModelButtonSelectors    []string
	ModelDropdownSelectors  []string
	AddEntrySelectors       []string
	AddEntryOptionSelectors []string
	PromptInputSelectors    []string
	UploadKeywords          []string

	NavigationTimeout  time.Duration
	PageSettle         time.Duration
	ActionDelay        time.Duration
	ModelItemTimeout   time.Duration
	DropdownClose      time.Duration
	FileChooserTimeout time.Duration
	PromptFillDelay    time.Duration // Between focusing and filling the prompt input

	AttachAttempts int
	Completion     completion.Settings

	// OutputPath is reported in the summary.
	OutputPath string
	// HandleSignals cancels the run on SIGINT/SIGTERM.
	HandleSignals bool
}

// Orchestrator runs every task of a plan against one page and records
// exactly one outcome per task.
type Orchestrator struct {
	page     driver.Driver
	auth     Authenticator
	sink     sink.Sink
	logger   Logger
	settings Settings
	retry    *retry.Controller
	detector *completion.Detector
}

// NewOrchestrator creates a new Orchestrator instance.
// The logger parameter is optional and can be nil.
func NewOrchestrator(page driver.Driver, auth Authenticator, out sink.Sink, prompter human.Prompter, log Logger, settings Settings) *Orchestrator {
	if page == nil {
		panic("page cannot be nil")
	}
	if out == nil {
		panic("sink cannot be nil")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	diag := logger.Formatted(log)

	return &Orchestrator{
		page:     page,
		auth:     auth,
		sink:     out,
		logger:   log,
		settings: settings,
		retry:    retry.New(prompter, diag, settings.AttachAttempts),
		detector: completion.New(page, settings.Completion, diag),
	}
}

// NewPlan assigns a fresh run id to the matrix axes.
func NewPlan(assets []models.Asset, modelNames []string, prompt string) models.RunPlan {
	return models.RunPlan{
		RunID:      uuid.NewString(),
		Prompt:     prompt,
		Assets:     assets,
		ModelNames: modelNames,
	}
}

// Run executes the assets × models matrix with prompt.
func (o *Orchestrator) Run(ctx context.Context, assets []models.Asset, modelNames []string, prompt string) (*models.RunSummary, error) {
	return o.Execute(ctx, NewPlan(assets, modelNames, prompt))
}

// Execute orchestrates the plan with graceful shutdown support.
// Authentication failures and sink faults abort the run; every other
// task-level problem becomes a failed or skipped outcome. A summary is
// returned whenever tasks started, including on abort.
func (o *Orchestrator) Execute(ctx context.Context, plan models.RunPlan) (*models.RunSummary, error) {
	if plan.RunID == "" {
		plan.RunID = uuid.NewString()
	}
	for _, task := range plan.Tasks() {
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("invalid task %d: %w", task.Number, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.settings.HandleSignals {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				o.logger.LogWarn("Received interrupt signal, stopping after the current step...")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o.logger.LogRunStart(plan)

	if o.auth != nil {
		if _, err := o.auth.EnsureAuthenticated(ctx); err != nil {
			o.logger.LogError(fmt.Sprintf("Login could not be confirmed, aborting: %v", err))
			return nil, err
		}
		o.logger.LogInfo("Login confirmed")
	}

	rc := newRunContext(plan, o.page, o.sink, o.logger, o.settings.OutputPath)
	for _, task := range rc.Tasks {
		if err := ctx.Err(); err != nil {
			return o.finish(rc), err
		}

		o.logger.LogTaskStart(task, rc.Summary.Total)
		outcome := o.runTask(ctx, rc, task)
		if err := rc.Record(outcome); err != nil {
			o.logger.LogError(err.Error())
			return o.finish(rc), err
		}
	}

	return o.finish(rc), ctx.Err()
}

func (o *Orchestrator) finish(rc *RunContext) *models.RunSummary {
	summary := rc.Finish()
	o.logger.LogSummary(summary)
	return &summary
}
