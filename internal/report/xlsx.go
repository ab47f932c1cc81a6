package report

import (
	"fmt"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/filelock"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook.
const (
	SheetResults = "Results"
	SheetMatrix  = "Matrix"
	SheetRun     = "Run"
)

var resultsHeader = []any{"#", "image_file", "model", "status", "response_time", "response"}

// WriteXLSX writes r as a workbook with a row per outcome, an
// image × model answer grid and the run metadata.
func WriteXLSX(path string, r Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeResults(f, r); err != nil {
		return err
	}
	if err := writeMatrix(f, r); err != nil {
		return err
	}
	if err := writeRunInfo(f, r); err != nil {
		return err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return filelock.AtomicWrite(path, buf.Bytes())
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeResults(f *excelize.File, r Run) error {
	if err := writeRow(f, SheetResults, 1, resultsHeader); err != nil {
		return err
	}
	for i, o := range r.Outcomes {
		values := []any{o.Task.Number, o.Task.Asset.Name, o.Task.ModelName, o.Status, o.ElapsedField(), o.Text}
		if err := writeRow(f, SheetResults, i+2, values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetResults, "F", "F", 100); err != nil {
		return err
	}
	return f.SetPanes(SheetResults, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeMatrix(f *excelize.File, r Run) error {
	if _, err := f.NewSheet(SheetMatrix); err != nil {
		return fmt.Errorf("create %s sheet: %w", SheetMatrix, err)
	}
	m := NewMatrix(r)

	header := []any{"image_file"}
	for _, model := range m.Models {
		header = append(header, model)
	}
	if err := writeRow(f, SheetMatrix, 1, header); err != nil {
		return err
	}

	for i, asset := range m.Assets {
		row := []any{asset}
		for _, model := range m.Models {
			o, ok := m.Cell(asset, model)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, o.Text)
		}
		if err := writeRow(f, SheetMatrix, i+2, row); err != nil {
			return err
		}
	}

	if len(m.Models) > 0 {
		last, err := excelize.ColumnNumberToName(len(m.Models) + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetMatrix, "B", last, 60); err != nil {
			return err
		}
	}
	return nil
}

func writeRunInfo(f *excelize.File, r Run) error {
	if _, err := f.NewSheet(SheetRun); err != nil {
		return fmt.Errorf("create %s sheet: %w", SheetRun, err)
	}
	finished := ""
	if !r.FinishedAt.IsZero() {
		finished = r.FinishedAt.Local().Format(time.DateTime)
	}
	rows := [][]any{
		{"run_id", r.ID},
		{"status", r.Status},
		{"started_at", r.StartedAt.Local().Format(time.DateTime)},
		{"finished_at", finished},
		{"total", r.Summary.Total},
		{"succeeded", r.Summary.Succeeded},
		{"skipped", r.Summary.Skipped},
		{"failed", r.Summary.Failed},
		{"output", r.OutputPath},
		{"prompt", r.Prompt},
	}
	for i, values := range rows {
		if err := writeRow(f, SheetRun, i+1, values); err != nil {
			return err
		}
	}
	return nil
}
