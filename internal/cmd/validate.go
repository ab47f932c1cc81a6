package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jg-fukuda/auto-genspark2/internal/config"
	"github.com/jg-fukuda/auto-genspark2/internal/executor"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the inputs and print the task matrix",
		Long: `Load the configuration and every input file, then print the tasks a run
would execute, in order. No browser is started.

Checks:
  - config.yaml parses and its values are valid
  - prompt.txt is not empty
  - models.txt lists at least one model
  - images/ holds at least one supported image
  - login credentials are available (genspark.txt or environment)

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return validateInputs(cfg, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	addConfigFlag(cmd)
	addInputFlags(cmd)

	return cmd
}

// validateInputs prints the run plan for cfg.InputDir. Missing credentials
// are reported after the plan so the rest can still be reviewed.
func validateInputs(cfg *config.Config, output io.Writer) error {
	inputs, err := config.LoadInputs(cfg.InputDir, false)
	if err != nil {
		fmt.Fprintf(output, "✗ %v\n", err)
		return err
	}

	plan := executor.NewPlan(inputs.Assets, inputs.ModelNames, inputs.Prompt)

	fmt.Fprintf(output, "Prompt: %s\n", plan.PromptPreview())
	fmt.Fprintf(output, "Models (%d): %s\n", len(plan.ModelNames), strings.Join(plan.ModelNames, ", "))
	fmt.Fprintf(output, "Images (%d): %s\n", len(plan.Assets), filepath.Join(cfg.InputDir, config.ImagesDir))
	fmt.Fprintf(output, "Tasks: %d\n\n", plan.Total())

	width := len(fmt.Sprint(plan.Total()))
	for _, task := range plan.Tasks() {
		fmt.Fprintf(output, "  %*d. %s / %s\n", width, task.Number, task.Asset.Name, task.ModelName)
	}
	fmt.Fprintln(output)

	cred, err := config.LoadCredential(filepath.Join(cfg.InputDir, config.CredentialsFile))
	if err != nil {
		fmt.Fprintf(output, "✗ %v\n", err)
		return err
	}
	fmt.Fprintf(output, "✓ Credentials found for %s\n", cred.Identity)
	fmt.Fprintf(output, "✓ Inputs are valid (results go to %s)\n", cfg.OutputDir)
	return nil
}
