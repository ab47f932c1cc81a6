// Package sink persists task outcomes as soon as they are produced.
package sink

import (
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// Sink accepts outcomes one at a time. An Append that returns nil must
// have made the record durable.
type Sink interface {
	Append(outcome models.TaskOutcome) error
	Close() error
}

// tee writes to a primary sink and mirrors to secondaries.
type tee struct {
	primary     Sink
	secondaries []Sink
	warn        func(err error)
}

// Tee returns a Sink whose Append and Close results come from primary.
// Errors from the secondaries are reported to warn and otherwise ignored.
func Tee(warn func(err error), primary Sink, secondaries ...Sink) Sink {
	if warn == nil {
		warn = func(error) {}
	}
	return &tee{primary: primary, secondaries: secondaries, warn: warn}
}

func (t *tee) Append(outcome models.TaskOutcome) error {
	if err := t.primary.Append(outcome); err != nil {
		return err
	}
	for _, s := range t.secondaries {
		if err := s.Append(outcome); err != nil {
			t.warn(err)
		}
	}
	return nil
}

func (t *tee) Close() error {
	for _, s := range t.secondaries {
		if err := s.Close(); err != nil {
			t.warn(err)
		}
	}
	return t.primary.Close()
}
