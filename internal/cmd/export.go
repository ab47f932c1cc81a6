package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jg-fukuda/auto-genspark2/internal/report"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write a recorded run as an Excel workbook and an HTML page",
		Long: `Export the outcomes of a recorded run for side-by-side reading.

  xlsx  one row per outcome, an image × model grid and the run details
  html  the answers rendered from markdown, grouped by image

Examples:
  gencompare export 3f2a9c1e
  gencompare export 3f2a9c1e --format html --out ./reports`,
		Args: cobra.ExactArgs(1),
		RunE: exportCommand,
	}

	addConfigFlag(cmd)
	cmd.Flags().StringSlice("format", []string{"xlsx", "html"}, "Formats to write (xlsx, html)")
	cmd.Flags().String("out", "", "Directory for the exported files (default: output_dir)")

	return cmd
}

func exportCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	formats, _ := cmd.Flags().GetStringSlice("format")
	writers := make([]func(string, report.Run) error, 0, len(formats))
	exts := make([]string, 0, len(formats))
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "xlsx":
			writers, exts = append(writers, report.WriteXLSX), append(exts, ".xlsx")
		case "html":
			writers, exts = append(writers, report.WriteHTML), append(exts, ".html")
		default:
			return fmt.Errorf("unknown export format %q (use xlsx or html)", f)
		}
	}

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	outcomes, err := store.Outcomes(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	r := report.Run{Run: run, Outcomes: outcomes}

	base := filepath.Join(outDir, "run-"+shortID(run.ID))
	w := cmd.OutOrStdout()
	for i, write := range writers {
		path := base + exts[i]
		if err := write(path, r); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(w, "✓ Wrote %s\n", path)
	}
	return nil
}
