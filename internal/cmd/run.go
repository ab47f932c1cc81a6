package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/auth"
	"github.com/jg-fukuda/auto-genspark2/internal/config"
	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/executor"
	"github.com/jg-fukuda/auto-genspark2/internal/history"
	"github.com/jg-fukuda/auto-genspark2/internal/human"
	"github.com/jg-fukuda/auto-genspark2/internal/logger"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/jg-fukuda/auto-genspark2/internal/sink"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the prompt over every image × model combination",
		Long: `Open a browser, make sure the Genspark session is logged in, then for
every image and every model: start a new chat, select the model, attach
the image, send the prompt and record the answer.

Results are appended to <output-dir>/<YYYY-MM-DD_HHMMSS>.csv as soon as
each answer is read, so an interrupted run keeps everything recorded so far.
When an image cannot be attached the run pauses and asks you to fix the
browser window, then retries.

Configuration is loaded from .gencompare/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  gencompare run
  gencompare run --input-dir ./batch1 --output-dir ./results
  gencompare run --timeout 2h --verbose
  gencompare run --headless --no-history`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	addConfigFlag(cmd)
	addInputFlags(cmd)
	cmd.Flags().String("output-dir", "", "Directory receiving the result CSV (default: dest)")
	cmd.Flags().String("log-dir", "", "Directory for log files")
	cmd.Flags().Bool("headless", false, "Run the browser without a window")
	cmd.Flags().String("timeout", "", "Maximum run time (e.g., 30m, 2h, 1h30m)")
	cmd.Flags().Bool("verbose", false, "Show detailed progress")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	inputs, err := config.LoadInputs(cfg.InputDir, true)
	if err != nil {
		return fmt.Errorf("failed to load inputs: %w", err)
	}

	w := cmd.OutOrStdout()
	log, closeLogs := openLoggers(cfg, w)
	defer closeLogs()

	ctx, cancel := runContext(cmd, cfg)
	defer cancel()

	started := time.Now()
	csvSink, err := sink.CreateCSV(cfg.OutputDir, started)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	log.LogInfo(fmt.Sprintf("Writing results to %s", csvSink.Path()))

	plan := executor.NewPlan(inputs.Assets, inputs.ModelNames, inputs.Prompt)
	results, store := openResults(ctx, cfg, plan, csvSink, started, log)
	if store != nil {
		defer store.Close()
	}

	page, closeBrowser, err := driver.LaunchChrome(ctx, browserOptions(cfg))
	if err != nil {
		_ = results.Close()
		finishHistory(ctx, store, plan, nil, err, log)
		return err
	}
	defer closeBrowser()

	prompter := human.NewConsolePrompter(cmd.InOrStdin(), w)
	if !human.Interactive() {
		log.LogWarn("Standard input is not a terminal; manual recovery prompts will fail once input ends")
	}

	authenticator := auth.New(page, inputs.Credential, authSettings(cfg), prompter, logger.Formatted(log))

	settings := executorSettings(cfg)
	settings.OutputPath = csvSink.Path()
	settings.HandleSignals = true
	orchestrator := executor.NewOrchestrator(page, authenticator, results, prompter, log, settings)

	summary, runErr := orchestrator.Execute(ctx, plan)
	closeErr := results.Close()
	log.LogInfo(fmt.Sprintf("%d result rows written to %s", csvSink.Rows(), csvSink.Path()))
	finishHistory(ctx, store, plan, summary, runErr, log)

	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close result file: %w", closeErr)
	}
	return nil
}

// openResults tees the CSV into the history database when history is
// enabled. History problems never stop a run; they are logged and the run
// goes on with the CSV only.
func openResults(ctx context.Context, cfg *config.Config, plan models.RunPlan, csvSink *sink.CSVSink, started time.Time, log logger.RunLogger) (sink.Sink, *history.Store) {
	if !cfg.History.Enabled {
		return csvSink, nil
	}

	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		return csvSink, nil
	}
	if err := store.StartRun(ctx, plan, csvSink.Path(), started); err != nil {
		log.LogWarn(fmt.Sprintf("History disabled: %v", err))
		_ = store.Close()
		return csvSink, nil
	}

	warn := func(err error) {
		executor.GracefulWarn(log, "History write failed: %v", err)
	}
	return sink.Tee(warn, csvSink, store.Recorder(plan.RunID)), store
}

func finishHistory(ctx context.Context, store *history.Store, plan models.RunPlan, summary *models.RunSummary, runErr error, log logger.RunLogger) {
	if store == nil {
		return
	}

	final := models.RunSummary{RunID: plan.RunID, Total: plan.Total()}
	if summary != nil {
		final = *summary
	}
	status := history.RunCompleted
	if runErr != nil {
		status = history.RunAborted
	}
	if err := store.FinishRun(context.WithoutCancel(ctx), final, status); err != nil {
		log.LogWarn(fmt.Sprintf("History update failed: %v", err))
	}
}
