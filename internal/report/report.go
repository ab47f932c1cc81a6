// Package report renders a recorded run as a spreadsheet or an HTML page
// for side-by-side reading of the model answers.
package report

import (
	"github.com/jg-fukuda/auto-genspark2/internal/history"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// Run bundles a history run with its outcomes.
type Run struct {
	history.Run
	Outcomes []models.TaskOutcome
}

// Matrix indexes outcomes by asset and model in first-seen order.
type Matrix struct {
	Assets []string
	Models []string
	cells  map[[2]string]models.TaskOutcome
}

// NewMatrix builds the asset × model grid of outcomes. Model columns
// follow the run's model order, then any model only seen in outcomes.
func NewMatrix(r Run) *Matrix {
	m := &Matrix{cells: make(map[[2]string]models.TaskOutcome)}
	seenAsset := make(map[string]bool)
	seenModel := make(map[string]bool)

	for _, name := range r.ModelNames {
		if !seenModel[name] {
			seenModel[name] = true
			m.Models = append(m.Models, name)
		}
	}
	for _, o := range r.Outcomes {
		asset := o.Task.Asset.Name
		if !seenAsset[asset] {
			seenAsset[asset] = true
			m.Assets = append(m.Assets, asset)
		}
		if !seenModel[o.Task.ModelName] {
			seenModel[o.Task.ModelName] = true
			m.Models = append(m.Models, o.Task.ModelName)
		}
		m.cells[[2]string{asset, o.Task.ModelName}] = o
	}
	return m
}

// Cell returns the outcome recorded for asset and model.
func (m *Matrix) Cell(asset, model string) (models.TaskOutcome, bool) {
	o, ok := m.cells[[2]string{asset, model}]
	return o, ok
}
