// Package completion decides when the remote application has finished
// producing an answer and extracts it.
//
// Two signals are used. The primary one is a transient busy control (a
// stop button) that is visible while an answer streams. When no such
// control shows up shortly after submission the detector falls back to
// sampling the answer text until it stops changing. The choice between
// the two is made once per answer.
package completion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// ExtractionFailedText is returned as the answer when no answer element
// exists after completion.
const ExtractionFailedText = "[error] failed to extract the answer text"

// Settings tunes detection.
type Settings struct {
	BusySelectors      []string      // Busy indicator candidates, tried in order
	AnswerSelector     string        // Matches every answer element; the last one is read
	BusyPollAttempts   int           // Polls for a busy indicator before falling back
	BusyPollInterval   time.Duration // Delay between busy indicator polls
	ResponseTimeout    time.Duration // Bound on the busy indicator disappearing
	FallbackWarmup     time.Duration // Wait before the first text sample
	StablePollInterval time.Duration // Delay between text samples
	StableSamples      int           // Identical non-empty samples in a row that mean done
	MaxStableSamples   int           // Sample cap
	SettleDelay        time.Duration // Wait between completion and extraction
}

// DefaultSettings returns the tuned defaults.
func DefaultSettings() Settings {
	return Settings{
		AnswerSelector:     ".assistant.plain-text",
		BusyPollAttempts:   20,
		BusyPollInterval:   500 * time.Millisecond,
		ResponseTimeout:    3 * time.Minute,
		FallbackWarmup:     5 * time.Second,
		StablePollInterval: 3 * time.Second,
		StableSamples:      3,
		MaxStableSamples:   60,
		SettleDelay:        2 * time.Second,
	}
}

// Result describes how an answer was obtained.
type Result struct {
	Text         string // Trimmed answer, or ExtractionFailedText
	Signal       string // models.SignalBusyIndicator or models.SignalTextStable
	TimedOut     bool   // The chosen signal hit its bound
	Extracted    bool   // An answer element existed
	Samples      int    // Text samples taken on the fallback path
	BusySelector string // Busy indicator that was observed
}

// Logger receives progress messages.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Detector waits for completion on one page.
type Detector struct {
	page     driver.Driver
	settings Settings
	logger   Logger
}

// New creates a Detector. Zero counts in s fall back to the defaults.
func New(page driver.Driver, s Settings, logger Logger) *Detector {
	def := DefaultSettings()
	if s.BusyPollAttempts <= 0 {
		s.BusyPollAttempts = def.BusyPollAttempts
	}
	if s.StableSamples <= 0 {
		s.StableSamples = def.StableSamples
	}
	if s.MaxStableSamples <= 0 {
		s.MaxStableSamples = def.MaxStableSamples
	}
	if s.AnswerSelector == "" {
		s.AnswerSelector = def.AnswerSelector
	}
	if logger == nil {
		logger = discard{}
	}
	return &Detector{page: page, settings: s, logger: logger}
}

// Await blocks until the current answer is complete and returns it.
// Wait timeouts are reported through Result.TimedOut; only context
// cancellation and driver faults are returned as errors.
func (d *Detector) Await(ctx context.Context) (Result, error) {
	var res Result

	busy, err := d.findBusyIndicator(ctx)
	if err != nil {
		return res, err
	}

	if busy.Found() {
		res.Signal = models.SignalBusyIndicator
		res.BusySelector = busy.Element.Selector
		d.logger.Infof("Generating (busy indicator %s), waiting up to %s", busy.Element.Selector, d.settings.ResponseTimeout)

		gone, err := d.page.WaitForElementState(ctx, busy.Element.Selector, driver.Hidden, d.settings.ResponseTimeout)
		if err != nil {
			return res, err
		}
		if gone.Status == driver.TimedOut {
			res.TimedOut = true
			d.logger.Warnf("Busy indicator still visible after %s, reading the current answer", d.settings.ResponseTimeout)
		} else {
			d.logger.Infof("Answer complete")
		}
	} else {
		res.Signal = models.SignalTextStable
		d.logger.Warnf("No busy indicator found, falling back to text stabilization")
		samples, stable, err := d.awaitStableText(ctx)
		if err != nil {
			return res, err
		}
		res.Samples = samples
		res.TimedOut = !stable
		if stable {
			d.logger.Infof("Answer text stable after %d samples", samples)
		} else {
			d.logger.Warnf("Answer text still changing after %d samples, reading it anyway", samples)
		}
	}

	if err := driver.Sleep(ctx, d.settings.SettleDelay); err != nil {
		return res, err
	}

	text, ok, err := d.lastAnswerText(ctx)
	if err != nil {
		return res, err
	}
	if !ok {
		d.logger.Warnf("No answer element matched %s", d.settings.AnswerSelector)
		res.Text = ExtractionFailedText
		return res, nil
	}
	res.Text = strings.TrimSpace(text)
	res.Extracted = true
	return res, nil
}

// findBusyIndicator polls the candidates until one is visible or the
// attempts run out.
func (d *Detector) findBusyIndicator(ctx context.Context) (driver.Lookup, error) {
	if len(d.settings.BusySelectors) == 0 {
		return driver.Lookup{Status: driver.NotFound}, nil
	}
	for i := 0; i < d.settings.BusyPollAttempts; i++ {
		if i > 0 {
			if err := driver.Sleep(ctx, d.settings.BusyPollInterval); err != nil {
				return driver.Lookup{}, err
			}
		}
		lookup, err := driver.FirstVisible(ctx, d.page, d.settings.BusySelectors...)
		if err != nil {
			return driver.Lookup{}, err
		}
		if lookup.Found() {
			return lookup, nil
		}
	}
	return driver.Lookup{Status: driver.NotFound}, nil
}

// awaitStableText samples the answer text until StableSamples identical
// non-empty samples were seen in a row, or MaxStableSamples were taken.
func (d *Detector) awaitStableText(ctx context.Context) (samples int, stable bool, err error) {
	if err := driver.Sleep(ctx, d.settings.FallbackWarmup); err != nil {
		return 0, false, err
	}

	var prev string
	run := 0
	for samples < d.settings.MaxStableSamples {
		if samples > 0 {
			if err := driver.Sleep(ctx, d.settings.StablePollInterval); err != nil {
				return samples, false, err
			}
		}

		text, _, err := d.lastAnswerText(ctx)
		if err != nil {
			return samples, false, err
		}
		samples++
		text = strings.TrimSpace(text)

		switch {
		case text == "":
			run = 0
		case text == prev:
			run++
		default:
			run = 1
		}
		prev = text
		d.logger.Debugf("Sample %d: %d chars, run %d", samples, len([]rune(text)), run)

		if run >= d.settings.StableSamples {
			return samples, true, nil
		}
	}
	return samples, false, nil
}

// lastAnswerText reads the last answer element. ok is false when there is
// none or it went stale between lookup and read.
func (d *Detector) lastAnswerText(ctx context.Context) (string, bool, error) {
	elements, err := d.page.FindAllElements(ctx, d.settings.AnswerSelector)
	if err != nil {
		return "", false, err
	}
	if len(elements) == 0 {
		return "", false, nil
	}
	text, err := d.page.ReadText(ctx, elements[len(elements)-1])
	if errors.Is(err, driver.ErrStaleElement) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

type discard struct{}

func (discard) Debugf(string, ...any) {}
func (discard) Infof(string, ...any) {}
func (discard) Warnf(string, ...any) {}
