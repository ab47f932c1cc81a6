package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/config"
	"github.com/jg-fukuda/auto-genspark2/internal/history"
	"github.com/spf13/cobra"
)

// errNoHistory is returned when the history database was never created.
var errNoHistory = errors.New("no run history recorded yet")

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show the outcomes of one run",
		Long: `Without arguments, list the most recent runs from the history database.
With a run id (or a unique prefix of one), print every outcome of that run.

Examples:
  gencompare history
  gencompare history --limit 5
  gencompare history 3f2a9c1e`,
		Args: cobra.MaximumNArgs(1),
		RunE: historyCommand,
	}

	addConfigFlag(cmd)
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if len(args) == 1 {
		return showRun(cmd, store, args[0], w)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return printRuns(runs, w)
}

// openHistory opens the configured database without creating it.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if _, err := os.Stat(cfg.History.DBPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w (%s)", errNoHistory, cfg.History.DBPath)
	}
	return history.NewStore(cfg.History.DBPath)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printRuns(runs []history.Run, w io.Writer) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tTASKS\tOK\tSKIPPED\tFAILED\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), r.Status,
			r.Summary.Total, r.Summary.Succeeded, r.Summary.Skipped, r.Summary.Failed, r.OutputPath)
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, store *history.Store, idOrPrefix string, w io.Writer) error {
	run, err := store.GetRun(cmd.Context(), idOrPrefix)
	if err != nil {
		return err
	}
	outcomes, err := store.Outcomes(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run:     %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(w, "Started: %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Output:  %s\n", run.OutputPath)
	fmt.Fprintf(w, "Prompt:  %s\n", run.Prompt)
	fmt.Fprintf(w, "Tasks:   %d/%d recorded (succeeded %d, skipped %d, failed %d)\n",
		len(outcomes), run.Summary.Total, run.Summary.Succeeded, run.Summary.Skipped, run.Summary.Failed)

	for _, o := range outcomes {
		fmt.Fprintf(w, "\n[%d] %s / %s: %s %s\n", o.Task.Number, o.Task.Asset.Name, o.Task.ModelName, o.Status, o.ElapsedField())
		fmt.Fprintln(w, o.Text)
	}
	return nil
}
