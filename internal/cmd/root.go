package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for gencompare
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gencompare",
		Short: "Compare chat model answers over a set of images",
		Long: `gencompare drives the Genspark chat UI in a real browser and records one
answer for every (image × model) combination.

Inputs are read from the input directory:
  genspark.txt   id=<login id> and pass=<password> lines
                 (or GENSPARK_ID / GENSPARK_PASS)
  prompt.txt     the prompt sent with every image
  models.txt     one model name per line, as shown in the model selector
  images/        .png .jpg .jpeg .gif .webp .bmp files

Each run writes dest/<YYYY-MM-DD_HHMMSS>.csv and, unless disabled, keeps
a copy of every answer in the run history.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewLoginCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewExportCommand())

	return cmd
}
