package models

// SessionState is the observed authentication state of the live browser
// session. It is always derived by probing the page, never cached.
type SessionState int

const (
	// Unauthenticated means the probe landed on a login surface or saw an
	// upgrade prompt.
	Unauthenticated SessionState = iota
	// Authenticated means the chat surface is usable.
	Authenticated
)

// String returns the string representation of SessionState.
func (s SessionState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// RetryAttempt identifies one try of a fallible step.
// It only lives for the duration of that step.
type RetryAttempt struct {
	Number int // 1-based
	Max    int
}

// IsLast reports whether no further attempts remain after this one.
func (a RetryAttempt) IsLast() bool {
	return a.Number >= a.Max
}
