// Package driver defines the UI capability set the orchestrator consumes
// and a chromedp-backed implementation of it.
//
// Lookups never return a nil element to signal absence. Every lookup
// reports a Status (Found, NotFound, TimedOut) so call sites handle all
// three outcomes explicitly.
package driver

import (
	"context"
	"errors"
	"time"
)

// Status is the outcome of a lookup or a bounded wait.
type Status int

const (
	// NotFound means the selector matched nothing at the time of the call.
	NotFound Status = iota
	// Found means the element exists (or the awaited state was reached).
	Found
	// TimedOut means a bounded wait expired before the condition held.
	TimedOut
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not-found"
	case TimedOut:
		return "timeout"
	default:
		return "unknown"
	}
}

// ElementState is a condition WaitForElementState can wait for.
type ElementState int

const (
	// Visible waits until a matching element is rendered.
	Visible ElementState = iota
	// Hidden waits until no matching element is rendered.
	Hidden
	// Attached waits until a matching element exists in the DOM.
	Attached
	// Detached waits until no matching element exists in the DOM.
	Detached
)

// String returns the string representation of ElementState.
func (s ElementState) String() string {
	switch s {
	case Visible:
		return "visible"
	case Hidden:
		return "hidden"
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Key names accepted by PressKey.
const (
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
	KeyTab    = "Tab"
)

// Element is an opaque handle to a node on the current page. Handles are
// only valid until the next navigation.
type Element struct {
	Selector string // Selector the element was resolved from
	Index    int    // Position among the selector's matches
	Handle   any    // Driver specific node reference
}

// Lookup is the result of resolving a selector to a single element.
type Lookup struct {
	Status  Status
	Element Element
}

// Found reports whether the lookup resolved an element.
func (l Lookup) Found() bool {
	return l.Status == Found
}

// FileChooser is a captured native file selection dialog.
type FileChooser interface {
	SetFiles(ctx context.Context, paths ...string) error
}

// Driver performs atomic UI operations against one live page.
// Implementations are used from a single goroutine.
type Driver interface {
	// Navigate loads url and waits for the document, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// CurrentURL returns the location of the page.
	CurrentURL(ctx context.Context) (string, error)
	// FindElement resolves the first match of selector without waiting.
	FindElement(ctx context.Context, selector string) (Lookup, error)
	// FindAllElements resolves every match of selector without waiting.
	FindAllElements(ctx context.Context, selector string) ([]Element, error)
	// IsVisible reports whether el is currently rendered.
	IsVisible(ctx context.Context, el Element) (bool, error)
	// Click clicks el.
	Click(ctx context.Context, el Element) error
	// Fill focuses el and replaces its content with text.
	Fill(ctx context.Context, el Element, text string) error
	// PressKey sends a key press to the focused element.
	PressKey(ctx context.Context, key string) error
	// WaitForElementState blocks until selector reaches state. The returned
	// Lookup is Found on success and TimedOut when timeout expires.
	WaitForElementState(ctx context.Context, selector string, state ElementState, timeout time.Duration) (Lookup, error)
	// InterceptFileSelection arms file chooser interception, runs trigger
	// and waits for the chooser to open, bounded by timeout.
	InterceptFileSelection(ctx context.Context, trigger func(ctx context.Context) error, timeout time.Duration) (FileChooser, Status, error)
	// ReadText returns the text content of el.
	ReadText(ctx context.Context, el Element) (string, error)
}

// FirstFound returns the first element matched by any of selectors, tried
// in order. The Lookup is NotFound when none match.
func FirstFound(ctx context.Context, d Driver, selectors ...string) (Lookup, error) {
	for _, sel := range selectors {
		lookup, err := d.FindElement(ctx, sel)
		if err != nil {
			return Lookup{}, err
		}
		if lookup.Found() {
			return lookup, nil
		}
	}
	return Lookup{Status: NotFound}, nil
}

// FirstVisible returns the first element among selectors that is both
// present and rendered. Lookup errors on individual selectors are skipped
// so one malformed candidate does not hide the others.
func FirstVisible(ctx context.Context, d Driver, selectors ...string) (Lookup, error) {
	for _, sel := range selectors {
		lookup, err := d.FindElement(ctx, sel)
		if err != nil {
			if ctx.Err() != nil {
				return Lookup{}, ctx.Err()
			}
			continue
		}
		if !lookup.Found() {
			continue
		}
		visible, err := d.IsVisible(ctx, lookup.Element)
		if err != nil {
			if ctx.Err() != nil {
				return Lookup{}, ctx.Err()
			}
			continue
		}
		if visible {
			return lookup, nil
		}
	}
	return Lookup{Status: NotFound}, nil
}

// VisiblePollInterval is the delay between WaitFirstVisible rounds.
var VisiblePollInterval = 100 * time.Millisecond

// WaitFirstVisible waits for any of selectors to become visible within
// timeout. Every round checks all candidates in order against one shared
// deadline. The result is TimedOut when no candidate appeared.
func WaitFirstVisible(ctx context.Context, d Driver, timeout time.Duration, selectors ...string) (Lookup, error) {
	if len(selectors) == 0 {
		return Lookup{Status: NotFound}, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		lookup, err := FirstVisible(ctx, d, selectors...)
		if err != nil {
			return Lookup{}, err
		}
		if lookup.Found() {
			return lookup, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Lookup{Status: TimedOut}, nil
		}
		if err := Sleep(ctx, min(VisiblePollInterval, remaining)); err != nil {
			return Lookup{}, err
		}
	}
}

// PollElementState implements WaitForElementState for drivers that can only
// answer point-in-time queries. It re-evaluates selector every interval
// until state holds or timeout expires.
func PollElementState(ctx context.Context, d Driver, selector string, state ElementState, timeout, interval time.Duration) (Lookup, error) {
	deadline := time.Now().Add(timeout)
	for {
		lookup, ok, err := checkState(ctx, d, selector, state)
		if err != nil {
			return Lookup{}, err
		}
		if ok {
			return lookup, nil
		}
		if !time.Now().Before(deadline) {
			return Lookup{Status: TimedOut}, nil
		}
		if err := Sleep(ctx, interval); err != nil {
			return Lookup{}, err
		}
	}
}

func checkState(ctx context.Context, d Driver, selector string, state ElementState) (Lookup, bool, error) {
	elements, err := d.FindAllElements(ctx, selector)
	if err != nil {
		return Lookup{}, false, err
	}

	switch state {
	case Attached:
		if len(elements) > 0 {
			return Lookup{Status: Found, Element: elements[0]}, true, nil
		}
		return Lookup{}, false, nil
	case Detached:
		return Lookup{Status: Found}, len(elements) == 0, nil
	}

	for _, el := range elements {
		visible, err := d.IsVisible(ctx, el)
		if err != nil {
			if errors.Is(err, ErrStaleElement) {
				continue
			}
			return Lookup{}, false, err
		}
		if visible {
			if state == Visible {
				return Lookup{Status: Found, Element: el}, true, nil
			}
			return Lookup{}, false, nil
		}
	}
	if state == Hidden {
		return Lookup{Status: Found}, true, nil
	}
	return Lookup{}, false, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
