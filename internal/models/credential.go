package models

import "fmt"

// Credential holds the login pair for the remote application.
// It is loaded once per run and never mutated.
type Credential struct {
	Identity string
	Secret   string
}

// String implements fmt.Stringer without exposing the secret.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{identity: %s, secret: ***}", c.Identity)
}

// GoString keeps the secret out of %#v output as well.
func (c Credential) GoString() string {
	return c.String()
}

// IsComplete reports whether both fields are populated.
func (c Credential) IsComplete() bool {
	return c.Identity != "" && c.Secret != ""
}
