// SPDX-License-Identifier: MIT
/*
Package fault defines the error taxonomy shared by the engine, the DSP
primitives and the backends.

Three classes of error exist:
  - ErrConfiguration: invalid construction parameters. Returned synchronously
    from constructors and setters, never enters a run.
  - ErrOperation: invalid call sequencing (adding a stage after Run, calling
    Run while running, SetSpan while running). Returned synchronously.
  - RuntimeFailure: everything captured asynchronously while a run is active.
    A run delivers at most one RuntimeFailure through its completion.
*/
package fault

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrOperation     = errors.New("operation error")

	// ErrStall reports that the live producer stopped delivering intervals.
	ErrStall = errors.New("producer stalled")
	// ErrRingFull reports that the producer found no free ring entry.
	ErrRingFull = errors.New("ring buffer full")
)

// Configf returns an ErrConfiguration wrapping the formatted detail.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Operationf returns an ErrOperation wrapping the formatted detail.
func Operationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOperation, fmt.Sprintf(format, args...))
}

// RuntimeFailure aggregates every error captured during one run.
type RuntimeFailure struct {
	RunID  string
	Errors []error
}

func (f *RuntimeFailure) Error() string {
	var sb strings.Builder
	sb.WriteString("runtime failure")
	if f.RunID != "" {
		sb.WriteString(" (run ")
		sb.WriteString(f.RunID)
		sb.WriteString(")")
	}
	switch len(f.Errors) {
	case 0:
		return sb.String()
	case 1:
		sb.WriteString(": ")
		sb.WriteString(f.Errors[0].Error())
		return sb.String()
	}
	fmt.Fprintf(&sb, ": %d errors", len(f.Errors))
	for _, err := range f.Errors {
		sb.WriteString("; ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual causes to errors.Is and errors.As.
func (f *RuntimeFailure) Unwrap() []error {
	return f.Errors
}

// StageError attributes a runtime error to a named stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking stage.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
