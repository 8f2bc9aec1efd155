// Package errlog collects stage-level failures for operational diagnostics.
package errlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pteargryphon/creative-brief-generator/internal/resilience"
)

// Error kinds assigned by Classify.
const (
	KindMissingCredential = "MissingCredential"
	KindCircuitOpen       = "CircuitOpen"
	KindTimeout           = "Timeout"
	KindCanceled          = "Canceled"
	KindTransient         = "Transient"
	KindMalformed         = "MalformedResponse"
	KindPanic             = "Panic"
	KindRemote            = "RemoteError"
)

// ErrMissingCredential means a remote dependency has no credential
// configured, so no call was attempted.
var ErrMissingCredential = eris.New("credential not configured")

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Entry is one recorded failure.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Stage     string         `json:"module"`
	Kind      string         `json:"error_type"`
	Context   map[string]any `json:"context,omitempty"`
	Detail    string         `json:"error"`
}

// Aggregator is an append-only, process-wide failure log. The zero value is
// not usable; create one with New.
type Aggregator struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// WithClock replaces the timestamp source. Intended for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Record appends one entry for err. A nil err is recorded as an unknown failure.
func (a *Aggregator) Record(stage string, err error, ctx map[string]any) Entry {
	if err == nil {
		err = eris.New("unknown error")
	}
	e := Entry{
		Stage:   stage,
		Kind:    Classify(err),
		Context: ctx,
		Detail:  err.Error(),
	}

	a.mu.Lock()
	e.Timestamp = a.now()
	a.entries = append(a.entries, e)
	a.mu.Unlock()

	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("kind", e.Kind),
		zap.Error(err),
	}
	if len(ctx) > 0 {
		fields = append(fields, zap.Any("context", ctx))
	}
	zap.L().Error("stage error recorded", fields...)
	return e
}

// Entries returns a copy of every entry in append order.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Recent returns up to n of the newest entries, oldest first.
func (a *Aggregator) Recent(n int) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	start := len(a.entries) - n
	if start < 0 || n < 0 {
		start = 0
	}
	out := make([]Entry, len(a.entries)-start)
	copy(out, a.entries[start:])
	return out
}

// ForStage returns the entries recorded for one stage.
func (a *Aggregator) ForStage(stage string) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []Entry
	for _, e := range a.entries {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of recorded entries.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Clear drops all entries.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	a.entries = nil
	a.mu.Unlock()
}

const summaryDetailLimit = 100

// Summary renders one "stage: kind - message" line per entry.
func (a *Aggregator) Summary() string {
	entries := a.Entries()
	if len(entries) == 0 {
		return "No errors logged"
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s - %s", e.Stage, e.Kind, firstRunes(e.Detail, summaryDetailLimit)))
	}
	return strings.Join(lines, "\n")
}

// firstRunes returns at most n runes of s.
func firstRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Classify maps an error chain to one of the Kind constants.
func Classify(err error) string {
	var pe *PanicError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &pe):
		return KindPanic
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, resilience.ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return KindMalformed
	case resilience.IsTransient(err):
		return KindTransient
	default:
		return KindRemote
	}
}
