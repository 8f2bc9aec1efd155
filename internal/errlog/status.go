package errlog

import (
	"fmt"
	"strings"
)

// Credential names one external dependency and the secret configured for it.
type Credential struct {
	Name  string
	Value string
	// Placeholders are sample values from templates that count as unset.
	Placeholders []string
}

// Set reports whether a real-looking value is present. It does not check
// that the value is accepted by the remote service.
func (c Credential) Set() bool {
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return false
	}
	for _, p := range c.Placeholders {
		if v == p {
			return false
		}
	}
	return true
}

// Status renders the one-line status for this credential.
func (c Credential) Status() string {
	if !c.Set() {
		return fmt.Sprintf("%s: not set", c.Name)
	}
	return fmt.Sprintf("%s: key set (%s...)", c.Name, firstRunes(c.Value, 10))
}

// CheckAPIStatus renders the presence of each credential as a pipe-joined line.
func CheckAPIStatus(creds []Credential) string {
	parts := make([]string, 0, len(creds))
	for _, c := range creds {
		parts = append(parts, c.Status())
	}
	return strings.Join(parts, " | ")
}

// Environment maps each credential name to "Set" or "Not set".
func Environment(creds []Credential) map[string]string {
	out := make(map[string]string, len(creds))
	for _, c := range creds {
		if c.Set() {
			out[c.Name] = "Set"
		} else {
			out[c.Name] = "Not set"
		}
	}
	return out
}
