package driver

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleElement is returned when a handle no longer refers to a node,
	// usually because the page navigated.
	ErrStaleElement = errors.New("stale element handle")
	// ErrUnsupportedKey is returned by PressKey for unknown key names.
	ErrUnsupportedKey = errors.New("unsupported key")
	// ErrInvalidSelector is returned when a selector cannot be parsed.
	ErrInvalidSelector = errors.New("invalid selector")
	// ErrBrowserClosed is returned when the browser went away.
	ErrBrowserClosed = errors.New("browser closed")
)

// ActionError wraps a failed driver operation with the selector and action
// involved.
type ActionError struct {
	Action   string // navigate, click, fill, ...
	Selector string // Selector or URL the action targeted (optional)
	Err      error
}

// Error implements the error interface for ActionError.
func (e *ActionError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("%s %q: %v", e.Action, e.Selector, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ActionError) Unwrap() error {
	return e.Err
}

func actionError(action, selector string, err error) error {
	if err == nil {
		return nil
	}
	return &ActionError{Action: action, Selector: selector, Err: err}
}
