package auth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is matched by every terminal authentication failure.
var ErrNotAuthenticated = errors.New("not authenticated")

// Error reports that no path produced an authenticated session.
type Error struct {
	Stage string // Last stage attempted
	URL   string // Page location when giving up
	Err   error  // Underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("login could not be confirmed after %s", e.Stage)
	if e.URL != "" {
		msg += " (at " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrNotAuthenticated and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotAuthenticated}
	}
	return []error{ErrNotAuthenticated, e.Err}
}
