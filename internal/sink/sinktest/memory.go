// Package sinktest provides an in-memory result sink for tests.
package sinktest

import "github.com/jg-fukuda/auto-genspark2/internal/models"

// Memory keeps outcomes in order.
type Memory struct {
	Outcomes []models.TaskOutcome
	Closed   bool
}

// Append implements sink.Sink.
func (m *Memory) Append(outcome models.TaskOutcome) error {
	m.Outcomes = append(m.Outcomes, outcome)
	return nil
}

// Close implements sink.Sink.
func (m *Memory) Close() error {
	m.Closed = true
	return nil
}
